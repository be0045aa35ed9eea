// Package tlog provides TinyDB's structured logging, a thin wrapper around
// zerolog that mirrors how the rest of the pack scopes a logger per
// subsystem and chooses between console and JSON output.
package tlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Init must be called once before any
// component logs; components should derive a scoped logger from it via
// WithComponent rather than writing to it directly.
var Logger zerolog.Logger

// Level names the four levels spec.md §7 distinguishes for operator-facing
// log output: INFO, WARNING, ERROR, plus DEBUG for development detail.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how Init configures the global logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger. Safe to call more than once (e.g. in
// tests); the last call wins.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagging every entry with the
// subsystem it came from (e.g. "snapshot", "ttl", "pubsub", "server").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

func init() {
	// Sensible default so packages that log before cmd/tinydb-server calls
	// Init (unit tests, for instance) don't panic on a zero-value Logger.
	Init(Config{Level: InfoLevel})
}
