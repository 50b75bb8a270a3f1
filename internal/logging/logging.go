// Package logging configures the process-wide zerolog logger. Subsystems do
// not log on the root directly; they derive a child through ForComponent so
// every line carries the component it came from.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the root logger. Reconfigured in place by Init.
var Logger zerolog.Logger

// Config selects the output shape and verbosity for Init.
type Config struct {
	Level zerolog.Level
	// Output defaults to os.Stderr.
	Output io.Writer
	// Pretty switches to the console writer for interactive runs; the
	// default is one JSON object per line.
	Pretty bool
}

// Init reconfigures the root logger. Loggers obtained from ForComponent
// before Init keep their old configuration, so the daemon calls this before
// wiring any subsystem.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	Logger = zerolog.New(out).Level(cfg.Level).With().Timestamp().Logger()
}

// ParseLevel maps the LOG_LEVEL config strings onto zerolog levels. An
// unknown value falls back to info rather than failing boot.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "FATAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ForComponent returns a child logger tagged with a subsystem name.
func ForComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Error starts an error event on the root logger, for call sites that have
// no component of their own.
func Error() *zerolog.Event {
	return Logger.Error()
}

func init() {
	Init(Config{Level: zerolog.InfoLevel})
}
