package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/cargo-rename/internal/clock"
	"github.com/danieljhkim/cargo-rename/internal/config"
	"github.com/danieljhkim/cargo-rename/internal/engine"
	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/gitx"
	"github.com/danieljhkim/cargo-rename/internal/hash"
	"github.com/danieljhkim/cargo-rename/internal/logging"
	"github.com/danieljhkim/cargo-rename/internal/verify"
)

// newEngine creates a new engine with real implementations of all dependencies.
func newEngine(settings *config.Settings, logger *log.Logger, confirm engine.Confirmer) *engine.Engine {
	fs := fsops.NewRealFS()
	gitRepo := gitx.NewRealGitRepo(settings.GitBin)
	resolver := verify.NewCargoMetadata(settings.CargoBin)
	hasher := hash.NewSHA256Hasher()
	clk := &clock.RealClock{}

	return engine.New(gitRepo, resolver, confirm, fs, hasher, clk, logger, settings.SkipPatterns)
}

// loadSettings reads the environment and applies any flag the user set
// explicitly on cmd.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	override := func(name string, dst *bool) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	override("allow-dirty", &settings.AllowDirty)
	override("yes", &settings.AssumeYes)
	override("strict-verify", &settings.StrictVerify)
	return settings, nil
}

// newLogger builds the logger from settings and the global verbosity flags.
func newLogger(settings *config.Settings) *log.Logger {
	return logging.New(logging.Options{
		Level:     settings.LogLevel,
		Verbosity: verbosity,
		Quiet:     quiet,
		Output:    os.Stderr,
	})
}

// outputJSON writes a value as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
