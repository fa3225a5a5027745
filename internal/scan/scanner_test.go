package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/hash"
	"github.com/danieljhkim/cargo-rename/internal/logging"
	"github.com/danieljhkim/cargo-rename/internal/preflight"
	"github.com/danieljhkim/cargo-rename/internal/workspace"
)

var fixture = map[string]string{
	"Cargo.toml": `[workspace]
members = ["lib", "app"]
default-members = ["app"]

[workspace.dependencies]
old-crate = { path = "lib" }
`,
	"lib/Cargo.toml": `[package]
name = "old-crate"
version = "0.1.0"

[dependencies]
helper = { path = "../helper" }
`,
	"lib/src/lib.rs": `pub fn thing() {}
`,
	"app/Cargo.toml": `[package]
name = "app"
version = "0.1.0"

[dependencies]
old-crate = { path = "../lib" }
oc = { package = "old-crate", path = "../lib" }

[dev-dependencies]
old-crate.workspace = true
`,
	"app/src/main.rs": `use old_crate::thing;
// old_crate::thing in a comment
fn main() {
    let s = "old_crate::x";
    old_crate_extended::y();
    old_crate::thing();
}
`,
	"app/target/debug/gen.rs": "use old_crate::generated;\n",
	"app/vendor/copy.rs":      "use old_crate::vendored;\n",
	"app/nested/Cargo.toml":   "[package]\nname = \"nested\"\n",
	"app/nested/src/lib.rs":   "use old_crate::skipped;\n",
	"helper/Cargo.toml":       "[package]\nname = \"helper\"\n",
}

func setup(t *testing.T, files map[string]string) *workspace.Workspace {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	ws, err := workspace.Load(fsops.NewRealFS(), filepath.Join(root, "Cargo.toml"))
	require.NoError(t, err)
	return ws
}

func resolution(t *testing.T, ws *workspace.Workspace, newName, newRel string) *preflight.Resolution {
	t.Helper()
	pkg, err := ws.Resolve("old-crate")
	require.NoError(t, err)
	res := &preflight.Resolution{
		Package: pkg,
		OldName: pkg.Name,
		NewName: newName,
		OldDir:  pkg.Dir,
		NewDir:  pkg.Dir,
	}
	if newRel != "" {
		res.NewDir = filepath.Join(ws.Root, filepath.FromSlash(newRel))
	}
	return res
}

func newScanner(skip ...string) *Scanner {
	return NewScanner(fsops.NewRealFS(), hash.NewSHA256Hasher(), logging.Discard(), skip)
}

func byKind(set *ReferenceSet, kind Kind) []Reference {
	var refs []Reference
	for _, ref := range set.Refs {
		if ref.Kind == kind {
			refs = append(refs, ref)
		}
	}
	return refs
}

func TestScan_RenameOnly(t *testing.T) {
	ws := setup(t, fixture)
	set, err := newScanner("**/vendor/**").Scan(ws, resolution(t, ws, "new-crate", ""))
	require.NoError(t, err)

	names := byKind(set, PackageName)
	require.Len(t, names, 1)
	assert.Equal(t, `"old-crate"`, names[0].Text)
	assert.Equal(t, 2, names[0].Line)

	// workspace.dependencies, app dependencies and the dotted dev-dependency
	assert.Len(t, byKind(set, DependencyKey), 3)

	pkgRefs := byKind(set, DependencyPackage)
	require.Len(t, pkgRefs, 1)
	assert.Equal(t, `"old-crate"`, pkgRefs[0].Text)
	assert.Contains(t, pkgRefs[0].Context, "oc = {")

	assert.Empty(t, byKind(set, PathDependency))
	assert.Empty(t, byKind(set, WorkspaceMember))

	src := byKind(set, SourceImport)
	require.Len(t, src, 1)
	assert.Equal(t, filepath.Join(ws.Root, "app", "src", "main.rs"), src[0].Path)
	assert.Equal(t, 1, src[0].Line)

	paths := byKind(set, SourceQualifiedPath)
	require.Len(t, paths, 1)
	assert.Equal(t, 6, paths[0].Line)
	assert.Equal(t, "old_crate::thing();", paths[0].Context)

	for _, ref := range set.Refs {
		assert.Contains(t, set.Digests, ref.Path)
	}
}

func TestScan_Move(t *testing.T) {
	ws := setup(t, fixture)
	set, err := newScanner().Scan(ws, resolution(t, ws, "new-crate", "libs/new-crate"))
	require.NoError(t, err)

	var values []string
	for _, ref := range byKind(set, PathDependency) {
		values = append(values, ref.Value)
	}
	// root workspace dependency, both app entries, and lib's own outward path
	assert.ElementsMatch(t, []string{"lib", "../lib", "../lib", "../helper"}, values)

	members := byKind(set, WorkspaceMember)
	require.Len(t, members, 1)
	assert.Equal(t, `"lib"`, members[0].Text)
	assert.Equal(t, "members", members[0].List)
	assert.Empty(t, byKind(set, WorkspaceMemberGlob))
}

func TestScan_MoveOnlySkipsSources(t *testing.T) {
	ws := setup(t, fixture)
	set, err := newScanner().Scan(ws, resolution(t, ws, "old-crate", "crates/lib"))
	require.NoError(t, err)

	assert.Zero(t, set.Count(SourceImport, SourceQualifiedPath, SourceExternCrate))
	assert.NotEmpty(t, byKind(set, PathDependency))
}

func TestScan_GlobMember(t *testing.T) {
	files := map[string]string{
		"Cargo.toml":            "[workspace]\nmembers = [\"crates/*\", \"tools\"]\n",
		"crates/old/Cargo.toml": "[package]\nname = \"old-crate\"\n",
		"tools/Cargo.toml":      "[package]\nname = \"tools\"\n",
	}
	ws := setup(t, files)
	set, err := newScanner().Scan(ws, resolution(t, ws, "old-crate", "elsewhere/old"))
	require.NoError(t, err)

	globs := byKind(set, WorkspaceMemberGlob)
	require.Len(t, globs, 1)
	assert.Equal(t, `"tools"`, globs[0].Text)
	assert.Empty(t, byKind(set, WorkspaceMember))
}

func TestScan_SkipsSourcesOutsideOwnership(t *testing.T) {
	ws := setup(t, fixture)
	set, err := newScanner().Scan(ws, resolution(t, ws, "new-crate", ""))
	require.NoError(t, err)

	for _, ref := range set.Refs {
		assert.NotContains(t, ref.Path, filepath.Join("app", "target"))
		assert.NotContains(t, ref.Path, filepath.Join("app", "nested"))
	}
	// vendor is only skipped when configured
	assert.Equal(t, 2, len(byKind(set, SourceImport)))
}

func TestScan_InvalidSkipPattern(t *testing.T) {
	ws := setup(t, fixture)
	_, err := newScanner("[").Scan(ws, resolution(t, ws, "new-crate", ""))
	assert.Error(t, err)
}

func TestScan_UnparseableSourceIsSkipped(t *testing.T) {
	files := map[string]string{
		"Cargo.toml":    "[package]\nname = \"old-crate\"\n",
		"src/lib.rs":    "use old_crate::a;\n",
		"src/broken.rs": "let s = \"unterminated\n",
	}
	ws := setup(t, files)
	set, err := newScanner().Scan(ws, resolution(t, ws, "new-crate", ""))
	require.NoError(t, err)
	assert.Len(t, byKind(set, SourceImport), 1)
}

func TestReferenceSet_Files(t *testing.T) {
	set := &ReferenceSet{Refs: []Reference{{Path: "b"}, {Path: "a"}, {Path: "b"}}}
	assert.Equal(t, []string{"b", "a"}, set.Files())
	assert.Equal(t, 0, set.Count(SourceImport))
}
