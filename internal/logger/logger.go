// Package logger builds the process-wide slog.Logger.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a human-readable text logger at debug level in development
// and a JSON logger at info level everywhere else.
func New(w io.Writer, development bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	if development {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// SetupDefault builds the logger and installs it as slog's default, so
// packages that log through slog.Default agree with injected loggers.
func SetupDefault(w io.Writer, development bool) *slog.Logger {
	l := New(w, development)
	slog.SetDefault(l)
	return l
}
