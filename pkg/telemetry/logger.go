package telemetry

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the process logger. Console format wraps the writer
// in zerolog's ConsoleWriter; otherwise output is structured JSON.
func NewLogger(out io.Writer, level string, console, noColor bool) zerolog.Logger {
	writer := out
	if console {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    noColor,
		}
	}

	return zerolog.New(writer).
		Level(ParseLevel(level)).
		With().Timestamp().Logger()
}

// ParseLevel converts a level name to a zerolog level, defaulting to
// info for unknown names.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
