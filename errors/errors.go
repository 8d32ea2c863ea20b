package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Source image errors
	ErrorTypeDecode ErrorType = "decode"

	// Transformation errors
	ErrorTypeInvalidDimension ErrorType = "invalid_dimension"
	ErrorTypeValidation       ErrorType = "validation"

	// Output errors
	ErrorTypeEncode ErrorType = "encode"

	// Session errors
	ErrorTypeNotLoaded ErrorType = "not_loaded"

	// System errors
	ErrorTypeInternal ErrorType = "internal"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Sentinels for errors.Is. Matching is by ErrorType only.
var (
	ErrDecode           = &AppError{Type: ErrorTypeDecode}
	ErrInvalidDimension = &AppError{Type: ErrorTypeInvalidDimension}
	ErrValidation       = &AppError{Type: ErrorTypeValidation}
	ErrEncode           = &AppError{Type: ErrorTypeEncode}
	ErrNotLoaded        = &AppError{Type: ErrorTypeNotLoaded}
	ErrInternal         = &AppError{Type: ErrorTypeInternal}
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	InnerError error                  `json:"-"`
	Stack      []string               `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.InnerError != nil {
		return msg + ": " + e.InnerError.Error()
	}
	return msg
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// WithMessage adds a message to the error
func (e *AppError) WithMessage(msg string) *AppError {
	e.Message = msg
	return e
}

// WithCode adds a code to the error
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithInnerError sets the inner error
func (e *AppError) WithInnerError(err error) *AppError {
	e.InnerError = err
	return e
}

// WithStack captures the call stack
func (e *AppError) WithStack() *AppError {
	e.Stack = captureStack(3)
	return e
}

// Is checks if this error is of a specific type
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type
	}
	return false
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Code:    string(errType),
	}
}

// Newf creates a new AppError with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *AppError {
	return New(errType, fmt.Sprintf(format, args...))
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Code:       string(ErrorTypeUnknown),
		Message:    err.Error(),
		InnerError: err,
	}
}

// WrapWithType wraps an error with a specific type
func WrapWithType(err error, errType ErrorType, message string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		InnerError: err,
		Code:       string(errType),
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err carries none.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err (or anything it wraps) is an AppError of errType.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// Decode errors
func NewDecode(path string, err error) *AppError {
	return WrapWithType(err, ErrorTypeDecode, "cannot open file as an image").
		WithDetail("path", path)
}

// Dimension errors
func NewInvalidDimension(width, height, maxWidth int) *AppError {
	return Newf(ErrorTypeInvalidDimension, "invalid dimensions %dx%d for max width %d", width, height, maxWidth).
		WithDetail("width", width).
		WithDetail("height", height).
		WithDetail("max_width", maxWidth)
}

// Validation errors
func NewValidation(field string, value interface{}, reason string) *AppError {
	return Newf(ErrorTypeValidation, "invalid value for %s: %v", field, value).
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("reason", reason)
}

// Encode errors
func NewEncode(format string, err error) *AppError {
	return WrapWithType(err, ErrorTypeEncode, "cannot encode image").
		WithDetail("format", format)
}

// Session errors
func NewNotLoaded() *AppError {
	return New(ErrorTypeNotLoaded, "please load an image first")
}

// Internal errors
func NewInternal(message string) *AppError {
	return New(ErrorTypeInternal, message)
}

// ErrorResponse is the flat form handed to the presentation layer.
type ErrorResponse struct {
	Type    string                 `json:"type"`
	Code    string                 `json:"code"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToResponse converts any error into an ErrorResponse suitable for a dialog.
func ToResponse(err error) ErrorResponse {
	appErr := FromError(err)
	if appErr == nil {
		return ErrorResponse{}
	}
	return ErrorResponse{
		Type:    string(appErr.Type),
		Code:    appErr.Code,
		Title:   Title(appErr.Type),
		Message: appErr.Error(),
		Details: appErr.Details,
	}
}

// Title returns the dialog title used for each error type.
func Title(errType ErrorType) string {
	switch errType {
	case ErrorTypeDecode:
		return "Invalid image"
	case ErrorTypeNotLoaded:
		return "No image"
	case ErrorTypeEncode:
		return "Save failed"
	case ErrorTypeValidation, ErrorTypeInvalidDimension:
		return "Invalid settings"
	default:
		return "Error"
	}
}

// captureStack captures the current call stack
func captureStack(skip int) []string {
	var stack []string
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		name := fn.Name()
		if strings.HasPrefix(name, "runtime.") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, name))
	}
	return stack
}
