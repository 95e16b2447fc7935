package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the process-wide logger. It discards everything until Init runs,
// so library code and tests stay quiet by default.
var Logger = zerolog.Nop()

// Init replaces the process-wide logger. The CLI passes os.Stderr so that
// tables and CSV written to stdout stay machine-readable.
func Init(level, format string, out io.Writer) {
	Logger = New(level, format, out)
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = Logger
}

// New builds a logger writing json or console lines to out
func New(level, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	var l zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		l = zerolog.New(out).With().Timestamp().Caller().Logger()
	default:
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}).With().Timestamp().Logger()
	}
	return l.Level(parseLogLevel(level))
}

// parseLogLevel maps a config value to a zerolog level; unknown values mean warn
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	}
	return zerolog.WarnLevel
}

// Component returns a child logger tagged with the component name
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
