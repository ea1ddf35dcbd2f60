// Package logger builds the process logger.
package logger

import (
	"log/slog"
	"os"
)

// New returns a text slog logger on stderr. Verbose drops the level to
// Debug; everything else stays at Info.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
