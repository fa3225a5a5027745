package planner

import (
	"errors"
	"fmt"
	"sort"
)

// ErrAmbiguousReference indicates two edits claim overlapping text.
var ErrAmbiguousReference = errors.New("ambiguous reference")

// Conflict represents a conflict detected during planning.
type Conflict struct {
	// Path is the file where the conflict was detected
	Path string

	// Reason is a human-readable explanation of the conflict
	Reason string

	// Existing describes the edit that claimed the text first
	Existing string

	// Incoming describes the overlapping edit
	Incoming string
}

// PlanningError reports a plan that cannot be executed safely.
type PlanningError struct {
	Conflicts []Conflict
}

func (e *PlanningError) Error() string {
	if len(e.Conflicts) == 0 {
		return ErrAmbiguousReference.Error()
	}
	first := e.Conflicts[0]
	msg := fmt.Sprintf("%v in %s: %s", ErrAmbiguousReference, first.Path, first.Reason)
	if n := len(e.Conflicts) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func (e *PlanningError) Unwrap() error {
	return ErrAmbiguousReference
}

// DetectConflicts returns every edit whose span overlaps an earlier span in
// the same file. An insertion at the end of a span does not overlap it.
func DetectConflicts(ops []Operation) []Conflict {
	byFile := make(map[string][]Operation)
	var files []string
	for _, op := range ops {
		if !op.IsEdit() {
			continue
		}
		if _, ok := byFile[op.Path]; !ok {
			files = append(files, op.Path)
		}
		byFile[op.Path] = append(byFile[op.Path], op)
	}

	var conflicts []Conflict
	for _, file := range files {
		edits := byFile[file]
		sort.SliceStable(edits, func(i, j int) bool {
			return edits[i].Offset < edits[j].Offset
		})

		claimed := edits[0]
		for _, cur := range edits[1:] {
			if cur.Offset >= claimed.End() {
				claimed = cur
				continue
			}
			conflicts = append(conflicts, Conflict{
				Path:     file,
				Reason:   fmt.Sprintf("edits at line %d overlap (bytes %d-%d and %d-%d)", cur.Line, claimed.Offset, claimed.End(), cur.Offset, cur.End()),
				Existing: describe(claimed),
				Incoming: describe(cur),
			})
			if cur.End() > claimed.End() {
				claimed = cur
			}
		}
	}
	return conflicts
}

func describe(op Operation) string {
	return fmt.Sprintf("%s %q -> %q", op.Ref, op.Old, op.New)
}
