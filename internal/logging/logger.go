// Package logging builds the daemon's slog handlers. One JSON logger is
// created at startup and handed down through routes.Deps; packages never
// construct their own.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates the JSON logger at the provided level. An unrecognized level
// string falls back to info rather than failing startup.
func New(level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// Discard returns a logger that drops all output, for tests that exercise
// services and pollers without caring about their log lines.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}
