package logger

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the process logger. format "json" selects the JSON handler.
func Init(debug bool, format string) *slog.Logger {
	log := New(os.Stdout, debug, format)
	slog.SetDefault(log)
	return log
}

func New(w io.Writer, debug bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
