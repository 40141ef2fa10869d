package persistcore

import (
	"context"
	"log/slog"
)

// Logger is the narrow logging surface the Controller uses for warnings
// that are not scoped to any one Object (CryptoWarning fallbacks; schema-
// binding failures are returned from Open, not logged). Grounded on the teacher's dialect/sql/stats.go, which
// already depends on log/slog for its WithSlowQueryLog() default rather
// than rolling a bespoke logging interface.
type Logger interface {
	Warn(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

// slogLogger is the default Logger, backed by log/slog's default handler.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps an existing *slog.Logger as a Logger. A nil l uses
// slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *slogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *slogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}
