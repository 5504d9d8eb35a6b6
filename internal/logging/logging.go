// Package logging configures zerolog for the localrag binary.
//
// Console output always goes to stderr because stdout carries the MCP stdio
// protocol. An optional JSON log file receives the same events.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level   string    // trace, debug, info, warn, error; default info
	File    string    // optional path of a JSON log file
	Console io.Writer // defaults to os.Stderr
	NoColor bool      // force plain console output
}

// Setup builds a logger from cfg. The returned cleanup closes the log file,
// if one was opened.
func Setup(cfg Config) (zerolog.Logger, func(), error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	noColor := cfg.NoColor
	if f, ok := console.(*os.File); ok && !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		noColor = true
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339, NoColor: noColor}}
	cleanup := func() {}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		cleanup = func() { _ = f.Close() }
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, cleanup, nil
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// Timer logs the elapsed time of an operation at debug level when stopped.
//
//	defer logging.Timer(logger, "update")()
func Timer(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	return func() {
		logger.Debug().
			Str("operation", operation).
			Float64("elapsed_ms", float64(time.Since(start).Microseconds())/1000).
			Msg("timing")
	}
}
