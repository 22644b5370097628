package testutil

import (
	"io"
	"log/slog"
)

// NewLogger creates an isolated slog.Logger for tests. It does not touch
// the global logger.
func NewLogger(levelStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(outW, &slog.HandlerOptions{Level: level}))
}
