// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text handler on stderr as the default slog logger.
func Setup(logLevel string) {
	var level slog.Level

	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns a logger tagged with the component name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
