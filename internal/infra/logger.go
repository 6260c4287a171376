package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger constructs a zerolog.Logger for the service: human readable
// console output in development, JSON lines otherwise.
func NewLogger(appEnv string) zerolog.Logger {
	return newLogger(os.Stdout, appEnv, "")
}

// NewLoggerWithLevel is NewLogger with an explicit level override
// ("debug", "info", "warn", ...). An unknown or empty level keeps the default.
func NewLoggerWithLevel(appEnv, level string) zerolog.Logger {
	return newLogger(os.Stdout, appEnv, level)
}

func newLogger(out io.Writer, appEnv, levelName string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}
	if levelName != "" {
		if parsed, err := zerolog.ParseLevel(levelName); err == nil && parsed != zerolog.NoLevel {
			level = parsed
		}
	}

	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "image-editor").
		Logger()
}

// NopLogger returns a logger that discards everything. Used as the default
// for components constructed without one.
func NopLogger() *Logger {
	l := zerolog.Nop()
	return &l
}

// Logger aliases the zerolog.Logger so callers outside the infra package can
// depend on the logging contract without importing the third-party module
// directly.
type Logger = zerolog.Logger
