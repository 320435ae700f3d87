package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type loggerKey struct{}

func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func Get(ctx context.Context) *slog.Logger {
	if v := ctx.Value(loggerKey{}); v != nil {
		return v.(*slog.Logger)
	}
	return slog.Default()
}

// New returns a JSON logger writing to w at level. Unknown levels fall back to
// INFO.
func New(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func Fail(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}
