// Package config holds cargo-rename settings read from the environment.
//
// Settings are parsed with caarlos0/env into a typed struct. Command-line
// flags take precedence: the CLI loads Settings first and then lets any flag
// the user set explicitly override the matching field.
//
// Recognized variables:
//
//	CARGO_RENAME_ALLOW_DIRTY    skip the git cleanliness check
//	CARGO_RENAME_YES            skip the confirmation prompt
//	CARGO_RENAME_STRICT_VERIFY  roll back when post-apply verification fails
//	CARGO_RENAME_LOG_LEVEL      debug, info, warn or error
//	CARGO_RENAME_SKIP           extra comma-separated glob patterns the scanner ignores
//	CARGO_RENAME_GIT            git binary used for the cleanliness check
//	CARGO                       cargo binary, set by cargo itself when it runs a subcommand
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Settings is the environment-derived configuration for one invocation.
type Settings struct {
	// AllowDirty bypasses the version-control cleanliness check
	AllowDirty bool `env:"CARGO_RENAME_ALLOW_DIRTY" envDefault:"false"`

	// AssumeYes bypasses the confirmation prompt
	AssumeYes bool `env:"CARGO_RENAME_YES" envDefault:"false"`

	// StrictVerify turns a post-commit inconsistency into a rollback
	StrictVerify bool `env:"CARGO_RENAME_STRICT_VERIFY" envDefault:"false"`

	// LogLevel is the default log level when no -v/-q flag is given
	LogLevel string `env:"CARGO_RENAME_LOG_LEVEL" envDefault:"info"`

	// SkipPatterns are workspace-relative globs excluded from source scanning
	SkipPatterns []string `env:"CARGO_RENAME_SKIP" envSeparator:","`

	// GitBin is the git executable
	GitBin string `env:"CARGO_RENAME_GIT" envDefault:"git"`

	// CargoBin is the cargo executable used as the metadata oracle
	CargoBin string `env:"CARGO" envDefault:"cargo"`
}

// Load parses the process environment into Settings.
func Load() (*Settings, error) {
	cfg := &Settings{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses an explicit environment map, for tests and embedding.
func LoadFrom(environ map[string]string) (*Settings, error) {
	cfg := &Settings{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return cfg, nil
}
