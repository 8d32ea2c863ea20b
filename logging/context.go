package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	actionKey
)

// WithAction tags ctx with the user action being executed (load, preview, save).
func WithAction(ctx context.Context, action string) context.Context {
	return context.WithValue(ctx, actionKey, action)
}

// GetAction returns the action stored by WithAction.
func GetAction(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(actionKey).(string)
	return s
}

// ToContext stores the Logger in the context.
func ToContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the Logger stored in ctx, or fallback, annotated with the action if any.
func FromContext(ctx context.Context, fallback Logger) Logger {
	l := fallback
	if ctx != nil {
		if stored, ok := ctx.Value(loggerKey).(Logger); ok {
			l = stored
		}
	}
	l = OrNop(l)
	if action := GetAction(ctx); action != "" {
		return l.With(zap.String("action", action))
	}
	return l
}
