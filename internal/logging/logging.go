package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup initializes a zerolog.Logger on stderr based on the requested format.
// format can be "text" (human-friendly console) or "json" (structured).
func Setup(format string) zerolog.Logger {
	return New(os.Stderr, format, false)
}

// New builds a logger writing to w. quiet raises the level to warnings so
// only problems reach the terminal while reports go to stdout.
func New(w io.Writer, format string, quiet bool) zerolog.Logger {
	if format == "text" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if quiet {
		level = zerolog.WarnLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
