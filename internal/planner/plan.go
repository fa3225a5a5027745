package planner

import (
	"github.com/danieljhkim/cargo-rename/internal/scan"
)

// RenamePlan is the ordered set of edits for one rename.
type RenamePlan struct {
	// OldName is the current package name
	OldName string

	// NewName is the effective new package name
	NewName string

	// OldDir is the current absolute package directory
	OldDir string

	// NewDir is the absolute package directory after the move, equal to OldDir without one
	NewDir string

	// Operations is the ordered list of operations to execute
	Operations []Operation
}

// Operation represents a single edit of the workspace.
type Operation struct {
	// Kind is the operation type: "replace_manifest_field", "replace_text_span", "move_directory", "rewrite_workspace_members"
	Kind string

	// Ref is the kind of reference the operation rewrites (unused for moves)
	Ref scan.Kind

	// Path is the absolute file edited, or the directory moved
	Path string

	// Dest is the absolute move destination
	Dest string

	// Offset is the byte offset of the span in the file as scanned
	Offset int

	// Length is the byte length of the span
	Length int

	// Old is the expected current text of the span
	Old string

	// New is the replacement text
	New string

	// Line is the 1-based line of the span, for display
	Line int
}

// Operation type constants
const (
	OpReplaceManifestField = "replace_manifest_field"
	OpReplaceTextSpan      = "replace_text_span"
	OpMoveDirectory        = "move_directory"
	OpRewriteMembers       = "rewrite_workspace_members"
)

// IsEdit reports whether the operation rewrites a span of a file.
func (op Operation) IsEdit() bool {
	return op.Kind != OpMoveDirectory
}

// End returns the offset just past the span.
func (op Operation) End() int {
	return op.Offset + op.Length
}

// Inverse returns the operation that undoes op once it has been applied.
func (op Operation) Inverse() Operation {
	inv := op
	if op.Kind == OpMoveDirectory {
		inv.Path, inv.Dest = op.Dest, op.Path
		return inv
	}
	inv.Old, inv.New = op.New, op.Old
	inv.Length = len(op.New)
	return inv
}

// IsEmpty reports whether the plan has nothing to do.
func (p *RenamePlan) IsEmpty() bool {
	return len(p.Operations) == 0
}

// AddOperation adds an operation to the plan.
func (p *RenamePlan) AddOperation(op Operation) {
	p.Operations = append(p.Operations, op)
}

// Count returns the number of operations of the given kind.
func (p *RenamePlan) Count(kind string) int {
	n := 0
	for _, op := range p.Operations {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Files returns the distinct files the plan edits, in plan order.
func (p *RenamePlan) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, op := range p.Operations {
		if op.IsEdit() && !seen[op.Path] {
			seen[op.Path] = true
			files = append(files, op.Path)
		}
	}
	return files
}

// Move returns the move operation, if the plan has one.
func (p *RenamePlan) Move() (Operation, bool) {
	for _, op := range p.Operations {
		if op.Kind == OpMoveDirectory {
			return op, true
		}
	}
	return Operation{}, false
}
