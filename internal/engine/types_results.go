package engine

import (
	"github.com/danieljhkim/cargo-rename/internal/planner"
	"github.com/danieljhkim/cargo-rename/internal/preflight"
	"github.com/danieljhkim/cargo-rename/internal/txn"
)

// RenameResult represents the result of a rename.
type RenameResult struct {
	// Root is the absolute workspace root
	Root string

	// Plan is the generated plan
	Plan *planner.RenamePlan

	// Resolution is what the precondition check settled on
	Resolution *preflight.Resolution

	// Dependents names the packages that depend directly on the renamed package
	Dependents []string

	// Summary describes the committed transaction (nil on dry run)
	Summary *txn.Summary

	// Warning is set when post-apply verification found an inconsistency
	Warning error
}

// Applied reports whether the rename changed the workspace.
func (r *RenameResult) Applied() bool {
	return r.Summary != nil
}
