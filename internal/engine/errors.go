package engine

import "errors"

var (
	// ErrWorkspaceUnresolvable indicates the metadata oracle rejected the workspace before any change.
	ErrWorkspaceUnresolvable = errors.New("workspace cannot be resolved")

	// ErrCancelled indicates the user declined the confirmation prompt.
	ErrCancelled = errors.New("rename cancelled")

	// ErrNotRestored indicates a rollback finished but the tree differs from its state before the rename.
	ErrNotRestored = errors.New("workspace not restored")
)
