package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/cargo-rename/internal/engine"
	"github.com/danieljhkim/cargo-rename/internal/preflight"
)

// moveBeside is the --move value used when the flag is given without a directory.
const moveBeside = "<beside>"

var (
	renameMove         string
	renameManifestPath string
	renameDryRun       bool
	renameYes          bool
	renameAllowDirty   bool
	renameStrictVerify bool
)

var renameCmd = &cobra.Command{
	Use:   "rename OLD [NEW]",
	Short: "Rename a package and update every reference to it",
	Long: `Rename the workspace package OLD to NEW and rewrite every reference to it.

Dependency entries in every manifest are renamed; aliased entries keep their
alias and only change the package they point to. Rust paths, use
declarations and extern crate items that name the old crate are rewritten.

With --move the package directory moves too. A bare --move puts it next to
the current directory under the new name; --move=DIR moves it to DIR,
relative to the workspace root. Path dependencies and the workspace member
list are updated to match.

The command refuses to run on a git working tree with uncommitted changes
unless --allow-dirty is given, and asks for confirmation unless --yes is.`,
	Example: `  cargo rename old-crate new-crate
  cargo rename old-crate new-crate --move
  cargo rename old-crate new-crate --move=libs/new-crate --dry-run
  cargo rename old-crate --move=crates/old-crate`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRename,
}

func init() {
	flags := renameCmd.Flags()
	flags.StringVar(&renameMove, "move", "", "Move the package directory, next to the current one or to DIR")
	flags.Lookup("move").NoOptDefVal = moveBeside
	flags.StringVar(&renameManifestPath, "manifest-path", "", "Path to the workspace Cargo.toml")
	flags.BoolVarP(&renameDryRun, "dry-run", "n", false, "Show the plan without changing anything")
	flags.BoolVarP(&renameYes, "yes", "y", false, "Apply without asking for confirmation")
	flags.BoolVar(&renameAllowDirty, "allow-dirty", false, "Allow uncommitted changes in the git working tree")
	flags.BoolVar(&renameStrictVerify, "strict-verify", false, "Revert the rename when the workspace fails verification afterwards")
}

func runRename(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(settings)

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	req := &engine.RenameRequest{
		CWD:          cwd,
		ManifestPath: renameManifestPath,
		OldName:      args[0],
		DryRun:       renameDryRun,
		Yes:          settings.AssumeYes,
		AllowDirty:   settings.AllowDirty,
		StrictVerify: settings.StrictVerify,
	}
	if len(args) > 1 {
		req.NewName = args[1]
	}
	req.Move, req.Destination = moveMode(cmd, renameMove)
	if err := checkMoveArgs(req.Move, req.NewName); err != nil {
		return err
	}

	eng := newEngine(settings, logger, newPromptConfirmer(cwd))
	result, err := eng.Rename(cmd.Context(), req)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := outputJSON(cmd.OutOrStdout(), newRenameView(result, req.DryRun)); err != nil {
			return err
		}
	} else {
		printResult(cwd, result, req.DryRun)
	}

	if result.Warning != nil {
		return &ExitError{Code: ExitInconsistent}
	}
	return nil
}

func moveMode(cmd *cobra.Command, value string) (preflight.MoveMode, string) {
	switch {
	case !cmd.Flags().Changed("move"):
		return preflight.MoveNone, ""
	case value == moveBeside:
		return preflight.MoveDefault, ""
	default:
		return preflight.MoveTo, value
	}
}

// checkMoveArgs catches `--move DIR`, which pflag parses as a bare --move
// followed by DIR as the new name.
func checkMoveArgs(mode preflight.MoveMode, newName string) error {
	if mode != preflight.MoveDefault || !strings.ContainsAny(newName, `/\`) {
		return nil
	}
	return &preflight.Violation{
		Err:    preflight.ErrInvalidIdentifier,
		Detail: fmt.Sprintf("%q looks like a directory; write --move=%s to move the package there", newName, newName),
	}
}
