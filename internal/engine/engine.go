// Package engine runs one package rename from start to finish.
//
// The engine is the orchestration layer between the CLI and the components
// that do the work. It resolves the workspace, gates the request through the
// precondition checker, builds the plan and hands it to a transaction.
//
// Key components:
//   - Engine: owns the collaborators and runs Rename
//   - Confirmer: asks the user before anything changes
//   - verify.Verifier: checks the workspace once the transaction committed
package engine

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/danieljhkim/cargo-rename/internal/clock"
	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/gitx"
	"github.com/danieljhkim/cargo-rename/internal/hash"
	"github.com/danieljhkim/cargo-rename/internal/planner"
	"github.com/danieljhkim/cargo-rename/internal/scan"
	"github.com/danieljhkim/cargo-rename/internal/snapshot"
	"github.com/danieljhkim/cargo-rename/internal/verify"
)

// Confirmer asks whether a plan should be applied.
type Confirmer interface {
	Confirm(ctx context.Context, plan *planner.RenamePlan) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, plan *planner.RenamePlan) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, plan *planner.RenamePlan) (bool, error) {
	return f(ctx, plan)
}

// Engine orchestrates renames.
// It is the main API surface called by the CLI.
type Engine struct {
	status   gitx.StatusOracle
	resolver verify.MetadataResolver
	confirm  Confirmer
	fs       fsops.FS
	hasher   hash.Hasher
	clock    clock.Clock
	logger   *log.Logger
	skip     []string
}

// New creates a new Engine with the given dependencies. skip holds extra
// workspace-relative globs the scanner and snapshots ignore.
func New(
	status gitx.StatusOracle,
	resolver verify.MetadataResolver,
	confirm Confirmer,
	fs fsops.FS,
	hasher hash.Hasher,
	clk clock.Clock,
	logger *log.Logger,
	skip []string,
) *Engine {
	return &Engine{
		status:   status,
		resolver: resolver,
		confirm:  confirm,
		fs:       fs,
		hasher:   hasher,
		clock:    clk,
		logger:   logger,
		skip:     skip,
	}
}

func (e *Engine) snapshots() *snapshot.Manager {
	patterns := append(append([]string{}, scan.DefaultSkipPatterns...), e.skip...)
	return snapshot.NewManager(e.fs, e.hasher, patterns)
}
