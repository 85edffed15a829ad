package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"parcelhub/internal/logx"
)

// NewLogger returns the process logger: JSON to stdout at LOG_LEVEL (info by default).
func NewLogger() logx.Logger {
	return newLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
}

func newLogger(w io.Writer, level string) logx.Logger {
	base := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	return logx.NewSlogAdapter(base).With(logx.String("service", "parcelhub"))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
