package engine

import "github.com/danieljhkim/cargo-rename/internal/preflight"

// RenameRequest represents a request to rename and optionally move a package.
type RenameRequest struct {
	// CWD is the directory the search for the root manifest starts from
	CWD string

	// ManifestPath overrides the root manifest search when set
	ManifestPath string

	// OldName is the current package name
	OldName string

	// NewName is the new package name, empty to keep the current one
	NewName string

	// Move selects whether and where the package directory moves
	Move preflight.MoveMode

	// Destination is the explicit move target when Move is MoveTo
	Destination string

	// DryRun performs planning only without making changes
	DryRun bool

	// Yes skips the confirmation prompt
	Yes bool

	// AllowDirty skips the version-control cleanliness check
	AllowDirty bool

	// StrictVerify reverts the rename when post-apply verification fails
	StrictVerify bool
}
