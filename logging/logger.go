package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface for structured logging.
type Logger interface {
	// Debug logs a message at DebugLevel.
	Debug(msg string, fields ...zap.Field)
	// Info logs a message at InfoLevel.
	Info(msg string, fields ...zap.Field)
	// Warn logs a message at WarnLevel.
	Warn(msg string, fields ...zap.Field)
	// Error logs a message at ErrorLevel.
	Error(msg string, fields ...zap.Field)

	// Debugf logs a formatted message at DebugLevel.
	Debugf(format string, args ...any)
	// Infof logs a formatted message at InfoLevel.
	Infof(format string, args ...any)
	// Warnf logs a formatted message at WarnLevel.
	Warnf(format string, args ...any)
	// Errorf logs a formatted message at ErrorLevel.
	Errorf(format string, args ...any)

	// With creates a child logger with additional fields.
	With(fields ...zap.Field) Logger
	// WithError creates a child logger with an error field.
	WithError(err error) Logger
	// Named creates a child logger with the given name.
	Named(name string) Logger

	// Zap returns the underlying *zap.Logger.
	Zap() *zap.Logger
	// Sync flushes any buffered log entries.
	Sync() error
}

type zapLogger struct {
	zl *zap.Logger
	sl *zap.SugaredLogger
}

// NewLogger creates a new Logger from the given Config.
func NewLogger(config Config) Logger {
	config.applyDefaults()

	zl := zap.New(zapcore.NewTee(getZapCores(config)...))
	if config.ShowLineNumber {
		zl = zl.WithOptions(zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return FromZap(zl)
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return FromZap(zap.NewNop())
}

// FromZap wraps an existing *zap.Logger as a Logger.
func FromZap(zl *zap.Logger) Logger {
	return &zapLogger{
		zl: zl,
		sl: zl.Sugar(),
	}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.zl.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.zl.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.zl.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.zl.Error(msg, fields...) }

func (l *zapLogger) Debugf(format string, args ...any) { l.sl.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.sl.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.sl.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.sl.Errorf(format, args...) }

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return FromZap(l.zl.With(fields...))
}

func (l *zapLogger) WithError(err error) Logger {
	return FromZap(l.zl.With(zap.Error(err)))
}

func (l *zapLogger) Named(name string) Logger {
	return FromZap(l.zl.Named(name))
}

func (l *zapLogger) Zap() *zap.Logger {
	return l.zl
}

func (l *zapLogger) Sync() error {
	return l.zl.Sync()
}

var _ Logger = (*zapLogger)(nil)
