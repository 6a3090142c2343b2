// Package logging builds the slog logger shared by the commands.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/idiomfetch/internal/model"
)

// NewLogger creates a logger on stderr from cfg and installs it as the
// slog default. Format "json" selects the JSON handler, anything else the
// text handler. verbose forces debug level.
func NewLogger(cfg model.LogConfig, verbose bool) *slog.Logger {
	logger := New(os.Stderr, cfg, verbose)
	slog.SetDefault(logger)
	return logger
}

// New creates a logger writing to w without touching the slog default
func New(w io.Writer, cfg model.LogConfig, verbose bool) *slog.Logger {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
