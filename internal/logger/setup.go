// Package logger configures structured logging and crash capture for gpt-worker.
package logger

import (
	"io"
	"log/slog"
	"strings"
)

// Level picks the log level: an explicit level wins, then --debug, then --verbose.
func Level(explicit string, debug, verbose bool) slog.Level {
	switch strings.ToLower(explicit) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	switch {
	case debug:
		return slog.LevelDebug
	case verbose:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// Setup installs the default slog logger writing to w.
func Setup(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}
