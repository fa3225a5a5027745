// Package logging builds the structured logger shared by every component.
//
// The level comes from CARGO_RENAME_LOG_LEVEL unless the command line asks
// for more (-v, -vv) or less (-q) output. Debug output includes timestamps.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Options controls logger construction.
type Options struct {
	// Level is the configured level name (debug, info, warn, error)
	Level string

	// Verbosity is the number of -v flags; each one lowers the level by one step
	Verbosity int

	// Quiet restricts output to errors
	Quiet bool

	// Output defaults to os.Stderr
	Output io.Writer
}

// New returns a logger configured from opts.
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := resolveLevel(opts)
	return log.NewWithOptions(out, log.Options{
		Prefix:          "cargo-rename",
		Level:           level,
		ReportTimestamp: level <= log.DebugLevel,
	})
}

// Discard returns a logger that writes nowhere.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func resolveLevel(opts Options) log.Level {
	if opts.Quiet {
		return log.ErrorLevel
	}

	level, ok := ParseLevel(opts.Level)
	if !ok {
		level = log.InfoLevel
	}

	for i := 0; i < opts.Verbosity && level > log.DebugLevel; i++ {
		level = lower(level)
	}
	return level
}

func lower(level log.Level) log.Level {
	switch level {
	case log.ErrorLevel:
		return log.WarnLevel
	case log.WarnLevel:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}

// ParseLevel maps a level name to a log.Level. The second result is false for
// empty or unknown input.
func ParseLevel(raw string) (log.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace", "debug":
		return log.DebugLevel, true
	case "info":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error", "off", "quiet":
		return log.ErrorLevel, true
	default:
		return log.InfoLevel, false
	}
}
