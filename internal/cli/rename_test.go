package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/cargo-rename/internal/engine"
	"github.com/danieljhkim/cargo-rename/internal/planner"
	"github.com/danieljhkim/cargo-rename/internal/preflight"
	"github.com/danieljhkim/cargo-rename/internal/scan"
	"github.com/danieljhkim/cargo-rename/internal/txn"
	"github.com/danieljhkim/cargo-rename/internal/verify"
)

// newTestCommand mirrors the rename flags on a fresh command so flag state
// does not leak between tests.
func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "rename"}
	var move string
	cmd.Flags().StringVar(&move, "move", "", "")
	cmd.Flags().Lookup("move").NoOptDefVal = moveBeside
	cmd.Flags().Bool("allow-dirty", false, "")
	cmd.Flags().BoolP("yes", "y", false, "")
	cmd.Flags().Bool("strict-verify", false, "")
	return cmd
}

func TestMoveMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantMode preflight.MoveMode
		wantDest string
	}{
		{"flag absent", nil, preflight.MoveNone, ""},
		{"bare flag", []string{"--move"}, preflight.MoveDefault, ""},
		{"explicit directory", []string{"--move=libs/new-crate"}, preflight.MoveTo, "libs/new-crate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newTestCommand()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}
			value, _ := cmd.Flags().GetString("move")
			mode, dest := moveMode(cmd, value)
			if mode != tt.wantMode || dest != tt.wantDest {
				t.Errorf("moveMode() = (%v, %q), want (%v, %q)", mode, dest, tt.wantMode, tt.wantDest)
			}
		})
	}
}

func TestCheckMoveArgs(t *testing.T) {
	tests := []struct {
		name    string
		mode    preflight.MoveMode
		newName string
		wantErr bool
	}{
		{"bare move with directory as new name", preflight.MoveDefault, "crates/x", true},
		{"bare move with windows separator", preflight.MoveDefault, `crates\x`, true},
		{"bare move with plain name", preflight.MoveDefault, "new-crate", false},
		{"bare move without new name", preflight.MoveDefault, "", false},
		{"explicit destination", preflight.MoveTo, "crates/x", false},
		{"no move", preflight.MoveNone, "crates/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkMoveArgs(tt.mode, tt.newName)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkMoveArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, preflight.ErrInvalidIdentifier) {
				t.Errorf("error should wrap ErrInvalidIdentifier, got %v", err)
			}
			if !strings.Contains(err.Error(), "--move="+tt.newName) {
				t.Errorf("error should suggest --move=%s, got %q", tt.newName, err)
			}
		})
	}
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("CARGO_RENAME_YES", "true")
	t.Setenv("CARGO_RENAME_ALLOW_DIRTY", "true")

	cmd := newTestCommand()
	if err := cmd.ParseFlags([]string{"--allow-dirty=false", "--strict-verify"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if !settings.AssumeYes {
		t.Error("AssumeYes should come from the environment when the flag is not set")
	}
	if settings.AllowDirty {
		t.Error("an explicit --allow-dirty=false should override the environment")
	}
	if !settings.StrictVerify {
		t.Error("--strict-verify should enable strict verification")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain error", errors.New("boom"), ExitFailure},
		{"violation", &preflight.Violation{Err: preflight.ErrDirtyWorkingTree}, ExitFailure},
		{"rollback failed", &txn.RollbackFailedError{Cause: errors.New("disk full")}, ExitRollbackFailed},
		{"not restored", fmt.Errorf("%w: 1 path differs", engine.ErrNotRestored), ExitRollbackFailed},
		{"strict verification", fmt.Errorf("rename reverted: %w", &verify.PostCommitInconsistency{}), ExitInconsistent},
		{"explicit code", &ExitError{Code: ExitInconsistent}, ExitInconsistent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	if msg := (&ExitError{Code: 3}).Error(); msg != "" {
		t.Errorf("silent ExitError message = %q", msg)
	}
	cause := errors.New("boom")
	err := &ExitError{Code: 1, Err: cause}
	if !errors.Is(err, cause) || err.Error() != "boom" {
		t.Errorf("ExitError should wrap its cause, got %v", err)
	}
}

func samplePlan(root string) *planner.RenamePlan {
	plan := &planner.RenamePlan{OldName: "old-crate", NewName: "new-crate"}
	plan.AddOperation(planner.Operation{
		Kind: planner.OpReplaceTextSpan, Ref: scan.SourceImport,
		Path: filepath.Join(root, "app", "src", "main.rs"), Offset: 4, Length: 9, Old: "old_crate", New: "new_crate", Line: 1,
	})
	plan.AddOperation(planner.Operation{
		Kind: planner.OpMoveDirectory, Path: filepath.Join(root, "lib"), Dest: filepath.Join(root, "libs", "new-crate"),
	})
	plan.AddOperation(planner.Operation{
		Kind: planner.OpRewriteMembers, Ref: scan.WorkspaceMemberGlob,
		Path: filepath.Join(root, "Cargo.toml"), Offset: 30, Old: "", New: `, "libs/new-crate"`, Line: 2,
	})
	return plan
}

func TestPlanRows(t *testing.T) {
	root := filepath.FromSlash("/work/ws")
	rows := planRows(root, samplePlan(root))

	want := [][]string{
		{"app/src/main.rs:1", "source-use", "old_crate -> new_crate"},
		{"lib", "move", "-> libs/new-crate"},
		{"Cargo.toml:2", "workspace-member-glob", `+ "libs/new-crate"`},
	}
	if len(rows) != len(want) {
		t.Fatalf("planRows() returned %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestDisplayPath(t *testing.T) {
	base := filepath.FromSlash("/work/ws")
	tests := []struct {
		path string
		want string
	}{
		{filepath.FromSlash("/work/ws/app/Cargo.toml"), "app/Cargo.toml"},
		{filepath.FromSlash("/work/ws"), "."},
		{filepath.FromSlash("/elsewhere/lib"), filepath.FromSlash("/elsewhere/lib")},
	}
	for _, tt := range tests {
		if got := displayPath(base, tt.path); got != tt.want {
			t.Errorf("displayPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestNewRenameView(t *testing.T) {
	root := filepath.FromSlash("/work/ws")
	result := &engine.RenameResult{
		Root: root,
		Plan: samplePlan(root),
		Resolution: &preflight.Resolution{
			OldName: "old-crate", NewName: "new-crate",
			OldDir: filepath.Join(root, "lib"), NewDir: filepath.Join(root, "libs", "new-crate"),
		},
		Dependents: []string{"app"},
		Summary: &txn.Summary{
			ID: "txn-1", Operations: 3, Duration: 1500 * time.Millisecond,
			Files:   []string{filepath.Join(root, "app", "src", "main.rs")},
			MovedTo: filepath.Join(root, "libs", "new-crate"),
		},
		Warning: &verify.PostCommitInconsistency{Issues: []string{"app/Cargo.toml: path does not lead to a package"}},
	}

	view := newRenameView(result, false)
	if view.OldDir != "lib" || view.NewDir != "libs/new-crate" {
		t.Errorf("dirs = %q, %q", view.OldDir, view.NewDir)
	}
	if len(view.Operations) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(view.Operations))
	}
	if op := view.Operations[1]; op.Dest != "libs/new-crate" || op.Reference != "" {
		t.Errorf("move view = %+v", op)
	}
	if view.Transaction == nil || view.Transaction.DurationMS != 1500 || view.Transaction.Files[0] != "app/src/main.rs" {
		t.Errorf("transaction view = %+v", view.Transaction)
	}
	if len(view.Dependents) != 1 || view.Dependents[0] != "app" {
		t.Errorf("dependents = %v", view.Dependents)
	}
	if len(view.Warnings) != 1 {
		t.Errorf("warnings = %v", view.Warnings)
	}

	result.Summary = nil
	result.Warning = nil
	result.Dependents = nil
	if view := newRenameView(result, true); view.Transaction != nil || !view.DryRun || view.Warnings != nil || view.Dependents == nil {
		t.Errorf("dry run view = %+v", view)
	}
}

func TestPromptConfirmer_NotATerminal(t *testing.T) {
	p := &promptConfirmer{base: t.TempDir(), in: os.Stdin, isTTY: func(int) bool { return false }}

	ok, err := p.Confirm(context.Background(), samplePlan(p.base))
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if ok {
		t.Error("Confirm() should decline when stdin is not a terminal")
	}
}
