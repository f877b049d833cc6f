package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the level and encoding of the process logger.
type Config struct {
	Level  string
	Format string
	Writer io.Writer
}

const (
	FormatJSON = "json"
	FormatText = "text"
)

// New creates a structured logger. Unknown levels fall back to info and
// unknown formats to JSON.
func New(cfg Config) *slog.Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	options := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case FormatText:
		return slog.New(slog.NewTextHandler(writer, options))
	default:
		return slog.New(slog.NewJSONHandler(writer, options))
	}
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
