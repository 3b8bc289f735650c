package app

import (
	"io"
	"log/slog"
	"strings"
)

// newLogger creates the application logger. It does not set the global
// logger, allowing for isolated logger instances. Every record carries the
// run id so that logs of concurrent runs can be told apart.
func newLogger(levelStr, formatStr string, w io.Writer, runID string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(levelStr))); err != nil {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler).With("run_id", runID)
}
