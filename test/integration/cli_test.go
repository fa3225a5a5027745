package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/danieljhkim/cargo-rename/internal/cli"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"cargo-rename": cli.Main,
	}))
}

// TestCLI runs the scripts in testdata. Cargo and git are pointed at missing
// binaries so both oracles are skipped unless a script installs its own.
func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			env.Setenv("CARGO", filepath.Join(env.WorkDir, "no-such-cargo"))
			env.Setenv("CARGO_RENAME_GIT", filepath.Join(env.WorkDir, "no-such-git"))
			env.Setenv("NO_COLOR", "1")
			return nil
		},
		ContinueOnError: true,
	})
}
