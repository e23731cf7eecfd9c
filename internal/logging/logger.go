package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with field helpers used across handlers and workers
type Logger struct {
	*slog.Logger
}

// NewLogger creates a text logger at debug level for development, JSON at info level otherwise
func NewLogger(isDevelopment bool) *Logger {
	if isDevelopment {
		return New(os.Stdout, slog.LevelDebug, false)
	}
	return New(os.Stdout, slog.LevelInfo, true)
}

// New creates a logger writing to w
func New(w io.Writer, level slog.Level, json bool) *Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything, for tests
func Discard() *Logger {
	return New(io.Discard, slog.LevelError, false)
}

// With returns a child logger with the given key/value pairs attached
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithFields returns a child logger with all fields attached
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.With(args...)
}
