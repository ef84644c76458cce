// Package logging configures structured logging for notestream binaries.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Options control log output shape and verbosity.
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values read as info.
	Level string
	// Pretty switches from JSON lines to a human console format.
	Pretty bool
	// Out defaults to stderr so command output stays pipeable.
	Out io.Writer
}

// New builds the root logger for a binary. Components derive sub-loggers
// from it via Component.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var w io.Writer = out
	if opts.Pretty {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	level := zerolog.InfoLevel
	switch opts.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("app", "notestream").
		Logger()
}

// Component returns a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
