package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/danieljhkim/cargo-rename/internal/engine"
	"github.com/danieljhkim/cargo-rename/internal/planner"
	"github.com/danieljhkim/cargo-rename/internal/verify"
)

type operationView struct {
	Kind      string `json:"kind"`
	Reference string `json:"reference,omitempty"`
	Path      string `json:"path"`
	Dest      string `json:"destination,omitempty"`
	Line      int    `json:"line,omitempty"`
	Old       string `json:"old,omitempty"`
	New       string `json:"new,omitempty"`
}

type transactionView struct {
	ID         string   `json:"id"`
	Operations int      `json:"operations"`
	Files      []string `json:"files"`
	MovedTo    string   `json:"moved_to,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

type renameView struct {
	Root        string           `json:"root"`
	OldName     string           `json:"old_name"`
	NewName     string           `json:"new_name"`
	OldDir      string           `json:"old_dir"`
	NewDir      string           `json:"new_dir"`
	DryRun      bool             `json:"dry_run"`
	Dependents  []string         `json:"dependents"`
	Operations  []operationView  `json:"operations"`
	Transaction *transactionView `json:"transaction,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// newRenameView renders result with paths relative to the workspace root.
func newRenameView(result *engine.RenameResult, dryRun bool) renameView {
	root := result.Root
	res := result.Resolution
	view := renameView{
		Root:       root,
		OldName:    res.OldName,
		NewName:    res.NewName,
		OldDir:     displayPath(root, res.OldDir),
		NewDir:     displayPath(root, res.NewDir),
		DryRun:     dryRun,
		Dependents: []string{},
		Operations: []operationView{},
	}
	view.Dependents = append(view.Dependents, result.Dependents...)

	for _, op := range result.Plan.Operations {
		v := operationView{Kind: op.Kind, Path: displayPath(root, op.Path), Line: op.Line, Old: op.Old, New: op.New}
		if op.Kind == planner.OpMoveDirectory {
			v.Dest = displayPath(root, op.Dest)
		} else {
			v.Reference = op.Ref.String()
		}
		view.Operations = append(view.Operations, v)
	}

	if s := result.Summary; s != nil {
		tv := &transactionView{ID: s.ID, Operations: s.Operations, DurationMS: s.Duration.Milliseconds(), Files: []string{}}
		for _, f := range s.Files {
			tv.Files = append(tv.Files, displayPath(root, f))
		}
		if s.MovedTo != "" {
			tv.MovedTo = displayPath(root, s.MovedTo)
		}
		view.Transaction = tv
	}

	view.Warnings = warnings(result.Warning)
	return view
}

func warnings(err error) []string {
	if err == nil {
		return nil
	}
	var inc *verify.PostCommitInconsistency
	if errors.As(err, &inc) && len(inc.Issues) > 0 {
		return inc.Issues
	}
	return []string{err.Error()}
}

// displayPath returns p relative to base in slash form, or p itself when it
// lies outside base.
func displayPath(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}

// planRows renders each operation as a location, a kind and a change.
func planRows(base string, plan *planner.RenamePlan) [][]string {
	rows := make([][]string, 0, len(plan.Operations))
	for _, op := range plan.Operations {
		if op.Kind == planner.OpMoveDirectory {
			rows = append(rows, []string{displayPath(base, op.Path), "move", "-> " + displayPath(base, op.Dest)})
			continue
		}
		location := fmt.Sprintf("%s:%d", displayPath(base, op.Path), op.Line)
		change := fmt.Sprintf("%s -> %s", op.Old, op.New)
		if op.Old == "" {
			change = "+ " + strings.TrimSpace(strings.TrimPrefix(op.New, ","))
		}
		rows = append(rows, []string{location, op.Ref.String(), change})
	}
	return rows
}

// printPlan prints the plan as a table.
func printPlan(base string, plan *planner.RenamePlan) {
	PrintSection(fmt.Sprintf("Plan: %s", PrintCount(len(plan.Operations), "change", "changes")))
	if plan.IsEmpty() {
		PrintEmptyState("nothing to do")
		return
	}
	PrintTable([]string{"LOCATION", "KIND", "CHANGE"}, planRows(base, plan))
	fmt.Println()
}

// printDependents lists the packages whose manifests point at the renamed package.
func printDependents(names []string) {
	if len(names) == 0 {
		return
	}
	PrintLabelValue("Dependents", strings.Join(names, ", "))
	fmt.Println()
}

// printResult prints the outcome of a rename.
func printResult(base string, result *engine.RenameResult, dryRun bool) {
	res := result.Resolution
	if dryRun {
		printPlan(base, result.Plan)
		printDependents(result.Dependents)
		PrintInfo("Dry run: no files were changed.")
		return
	}
	if !result.Applied() {
		PrintEmptyState("nothing to do")
		return
	}

	switch {
	case res.Renaming() && res.Moving():
		PrintSuccess(fmt.Sprintf("Renamed %s to %s and moved it to %s", res.OldName, res.NewName, displayPath(base, res.NewDir)))
	case res.Renaming():
		PrintSuccess(fmt.Sprintf("Renamed %s to %s", res.OldName, res.NewName))
	default:
		PrintSuccess(fmt.Sprintf("Moved %s to %s", res.OldName, displayPath(base, res.NewDir)))
	}

	s := result.Summary
	PrintLabelValue("Transaction", s.ID)
	PrintLabelValue("Changes", PrintCount(s.Operations, "operation", "operations"))
	PrintLabelValue("Files", PrintCount(len(s.Files), "file", "files"))
	if len(result.Dependents) > 0 {
		PrintLabelValue("Dependents", strings.Join(result.Dependents, ", "))
	}
	PrintLabelValue("Duration", s.Duration.Round(time.Millisecond).String())

	if issues := warnings(result.Warning); len(issues) > 0 {
		fmt.Println()
		PrintWarning("The workspace may need attention:")
		PrintList(issues, 1)
	}
}
