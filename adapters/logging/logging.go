package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
)

// New returns a JSON logger writing to stderr at level, which is one of
// debug, info, warn or error.
func New(level string) logr.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string) logr.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return logr.FromSlogHandler(handler)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
// logr V(1) records are emitted at slog debug.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
