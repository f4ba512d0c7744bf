// Package ctxlog threads the per-command logger through request contexts so
// the Buzz client and the cleanup loop log with the same handler and
// attributes as the command that started them.
package ctxlog

import (
	"context"
	"log/slog"
)

type loggerCtxKey struct{}

// WithLogger attaches l to ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, l)
}

// With returns a context whose logger carries the extra attributes.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}

// FromContext returns the logger attached to ctx. Code running outside a
// command (tests, mostly) gets slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	l, _ := ctx.Value(loggerCtxKey{}).(*slog.Logger)
	if l == nil {
		return slog.Default()
	}
	return l
}
