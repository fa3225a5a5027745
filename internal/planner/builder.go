package planner

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/danieljhkim/cargo-rename/internal/manifest"
	"github.com/danieljhkim/cargo-rename/internal/preflight"
	"github.com/danieljhkim/cargo-rename/internal/rustsrc"
	"github.com/danieljhkim/cargo-rename/internal/scan"
)

// BuildRenamePlan lowers refs into an ordered plan for res.
//
// Field and span edits keep scan order, the directory move follows them and
// member list edits come last. Operations whose new text equals the old text
// are dropped, so a plan for an already-renamed workspace is empty.
func BuildRenamePlan(refs *scan.ReferenceSet, res *preflight.Resolution) (*RenamePlan, error) {
	plan := &RenamePlan{
		OldName: res.OldName,
		NewName: res.NewName,
		OldDir:  res.OldDir,
		NewDir:  res.NewDir,
	}

	newIdent := rustsrc.CrateIdent(res.NewName)
	var members []Operation

	for _, ref := range refs.Refs {
		op := Operation{
			Ref:    ref.Kind,
			Path:   ref.Path,
			Offset: ref.Offset,
			Length: ref.Length,
			Old:    ref.Text,
			Line:   ref.Line,
		}

		switch ref.Kind {
		case scan.PackageName, scan.DependencyKey, scan.DependencyPackage:
			op.Kind = OpReplaceManifestField
			op.New = manifest.Requote(ref.Text, res.NewName)

		case scan.SourceQualifiedPath, scan.SourceImport, scan.SourceExternCrate:
			op.Kind = OpReplaceTextSpan
			op.New = newIdent

		case scan.PathDependency:
			rebased, err := rebase(ref.Value, ref.ManifestDir, res.OldDir, res.NewDir)
			if err != nil {
				return nil, err
			}
			op.Kind = OpReplaceTextSpan
			op.New = manifest.Requote(ref.Text, rebased)

		case scan.WorkspaceMember:
			op.Kind = OpRewriteMembers
			op.New = manifest.Requote(ref.Text, memberPath(ref.Path, res.NewDir))
			members = append(members, op)
			continue

		case scan.WorkspaceMemberGlob:
			newRel := memberPath(ref.Path, res.NewDir)
			if coveredByGlob(ref.Globs, newRel) {
				continue
			}
			// Insert after the last member, keeping its quote style
			op.Kind = OpRewriteMembers
			op.Offset = ref.End()
			op.Length = 0
			op.Old = ""
			op.New = ", " + manifest.Requote(quoteOf(ref.Text), newRel)
			members = append(members, op)
			continue

		default:
			return nil, fmt.Errorf("unknown reference kind: %s", ref.Kind)
		}

		if op.New != op.Old {
			plan.AddOperation(op)
		}
	}

	if res.Moving() {
		plan.AddOperation(Operation{
			Kind: OpMoveDirectory,
			Path: res.OldDir,
			Dest: res.NewDir,
		})
	}

	for _, op := range members {
		if op.New != op.Old {
			plan.AddOperation(op)
		}
	}

	if conflicts := DetectConflicts(plan.Operations); len(conflicts) > 0 {
		return nil, &PlanningError{Conflicts: conflicts}
	}

	return plan, nil
}

// rebase rewrites a path dependency value for the post-move layout. The
// manifest holding it and the directory it points at each move when they lie
// inside oldDir.
func rebase(value, manifestDir, oldDir, newDir string) (string, error) {
	if filepath.IsAbs(value) {
		return relocate(filepath.Clean(value), oldDir, newDir), nil
	}

	target := filepath.Join(manifestDir, filepath.FromSlash(value))
	newTarget := relocate(target, oldDir, newDir)
	newManifestDir := relocate(manifestDir, oldDir, newDir)

	rel, err := filepath.Rel(newManifestDir, newTarget)
	if err != nil {
		return "", fmt.Errorf("failed to rebase path %q: %w", value, err)
	}
	rel = filepath.ToSlash(rel)

	// Keep the author's spelling when only cosmetics would change
	if rel == path.Clean(filepath.ToSlash(value)) {
		return value, nil
	}
	return rel, nil
}

// relocate maps p to its location after oldDir becomes newDir.
func relocate(p, oldDir, newDir string) string {
	if p == oldDir {
		return newDir
	}
	if rest, ok := strings.CutPrefix(p, oldDir+string(filepath.Separator)); ok {
		return filepath.Join(newDir, rest)
	}
	return p
}

// memberPath returns dir relative to the directory of the root manifest.
func memberPath(rootManifest, dir string) string {
	rel, err := filepath.Rel(filepath.Dir(rootManifest), dir)
	if err != nil {
		return filepath.ToSlash(dir)
	}
	return filepath.ToSlash(rel)
}

func coveredByGlob(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// quoteOf returns an empty string literal in the quote style of raw.
func quoteOf(raw string) string {
	if strings.HasPrefix(raw, "'") {
		return "''"
	}
	return `""`
}
