package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger: JSON in deployed environments, text for
// local development. Log lines carry form and field ids only, never
// respondent data or key material.
func New(env string) *slog.Logger {
	var handler slog.Handler
	if env == "dev" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(handler).With("service", "formgate")
}
