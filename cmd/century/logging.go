package main

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"

	"github.com/lox/century/internal/config"
)

// SetupLogger configures zerolog with pretty console output
func SetupLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: w != os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// SetupStructuredLogger configures zerolog for structured (JSON) output
func SetupStructuredLogger(w io.Writer, debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// loggers builds the zerolog logger for the core and the charm logger for
// the terminal components, both writing to w.
func loggers(cfg *config.Config, w io.Writer, debug bool) (zerolog.Logger, *log.Logger) {
	var logger zerolog.Logger
	if cfg.Log.Format == "json" {
		logger = SetupStructuredLogger(w, debug)
	} else {
		logger = SetupLogger(w, debug)
	}
	if !debug {
		if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
			logger = logger.Level(level)
		}
	}

	charm := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
	if debug {
		charm.SetLevel(log.DebugLevel)
	} else if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		charm.SetLevel(level)
	}
	if cfg.Log.Format == "json" {
		charm.SetFormatter(log.JSONFormatter)
	}
	return logger, charm
}

// openLogFile opens path for appending, or returns io.Discard when path is
// empty. The terminal UI owns the screen, so play never logs to stderr.
func openLogFile(path string) (io.Writer, func() error, error) {
	if path == "" {
		return io.Discard, func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
