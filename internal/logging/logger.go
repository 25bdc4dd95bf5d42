// Package logging builds the zerolog logger used across the workspace. The
// interactive UI owns stdout, so diagnostics go to a log file unless a writer
// is given explicitly.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Level represents logging severity levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config holds logger configuration.
type Config struct {
	Level Level

	// File is appended to when Output is nil. Empty discards logs.
	File string

	// JSONFormat writes JSON lines instead of console output.
	JSONFormat bool

	// Output overrides File.
	Output io.Writer
}

// New returns a logger and a close func releasing the log file, if any.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	closer := func() error { return nil }

	out := cfg.Output
	if out == nil {
		if cfg.File == "" {
			return zerolog.Nop(), closer, nil
		}
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("logging: ensure log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("logging: open log file: %w", err)
		}
		out = f
		closer = f.Close
	}

	if !cfg.JSONFormat {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.Output == nil,
		}
	}

	zl := zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service_name", "minutes-workspace").
		Logger()
	return zl, closer, nil
}

// parseLevel converts Level to zerolog.Level.
func parseLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
