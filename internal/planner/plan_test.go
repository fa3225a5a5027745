package planner

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/hash"
	"github.com/danieljhkim/cargo-rename/internal/logging"
	"github.com/danieljhkim/cargo-rename/internal/preflight"
	"github.com/danieljhkim/cargo-rename/internal/scan"
	"github.com/danieljhkim/cargo-rename/internal/workspace"
)

var fixture = map[string]string{
	"Cargo.toml": `[workspace]
members = ["lib", "app"]

[workspace.dependencies]
old-crate = { path = "lib" }
`,
	"lib/Cargo.toml": `[package]
name = "old-crate"
version = "0.1.0"

[dependencies]
helper = { path = "../helper" }
`,
	"lib/src/lib.rs": "pub fn thing() {}\n",
	"app/Cargo.toml": `[package]
name = "app"
version = "0.1.0"

[dependencies]
old-crate = { path = "../lib" }
oc = { package = 'old-crate', path = "../lib" }
`,
	"app/src/main.rs": `use old_crate::thing;
fn main() {
    let s = "old_crate::x";
    old_crate_extended::y();
    old_crate::thing();
    oc::thing();
}
`,
	"helper/Cargo.toml": "[package]\nname = \"helper\"\n",
}

type env struct {
	ws  *workspace.Workspace
	res *preflight.Resolution
}

func setup(t *testing.T, files map[string]string, newName, newRel string) env {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return load(t, root, "old-crate", newName, newRel)
}

func load(t *testing.T, root, pkgName, newName, newRel string) env {
	t.Helper()
	ws, err := workspace.Load(fsops.NewRealFS(), filepath.Join(root, "Cargo.toml"))
	require.NoError(t, err)
	pkg, err := ws.Resolve(pkgName)
	require.NoError(t, err)

	res := &preflight.Resolution{
		Package: pkg,
		OldName: "old-crate",
		NewName: newName,
		OldDir:  pkg.Dir,
		NewDir:  pkg.Dir,
	}
	if newRel != "" {
		res.NewDir = filepath.Join(root, filepath.FromSlash(newRel))
	}
	return env{ws: ws, res: res}
}

func build(t *testing.T, e env) *RenamePlan {
	t.Helper()
	scanner := scan.NewScanner(fsops.NewRealFS(), hash.NewSHA256Hasher(), logging.Discard(), nil)
	refs, err := scanner.Scan(e.ws, e.res)
	require.NoError(t, err)
	plan, err := BuildRenamePlan(refs, e.res)
	require.NoError(t, err)
	return plan
}

// execute applies a plan directly, without journaling.
func execute(t *testing.T, plan *RenamePlan) {
	t.Helper()
	byFile := make(map[string][]Operation)
	for _, op := range plan.Operations {
		if op.Kind == OpMoveDirectory {
			continue
		}
		byFile[op.Path] = append(byFile[op.Path], op)
	}
	for file, ops := range byFile {
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		sort.Slice(ops, func(i, j int) bool { return ops[i].Offset > ops[j].Offset })
		for _, op := range ops {
			require.Equal(t, op.Old, string(data[op.Offset:op.End()]))
			data = append(data[:op.Offset:op.Offset], append([]byte(op.New), data[op.End():]...)...)
		}
		require.NoError(t, os.WriteFile(file, data, 0o644))
	}
	if move, ok := plan.Move(); ok {
		require.NoError(t, os.MkdirAll(filepath.Dir(move.Dest), 0o755))
		require.NoError(t, os.Rename(move.Path, move.Dest))
	}
}

func read(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestBuildRenamePlan_Ordering(t *testing.T) {
	e := setup(t, fixture, "new-crate", "libs/new-crate")
	plan := build(t, e)

	require.NotEmpty(t, plan.Operations)
	moveAt := -1
	for i, op := range plan.Operations {
		switch op.Kind {
		case OpMoveDirectory:
			moveAt = i
		case OpRewriteMembers:
			assert.Greater(t, i, moveAt, "member edits follow the move")
		default:
			assert.Equal(t, -1, moveAt, "text edits precede the move")
		}
	}
	require.NotEqual(t, -1, moveAt)
	assert.Equal(t, OpRewriteMembers, plan.Operations[len(plan.Operations)-1].Kind)
	assert.Equal(t, 1, plan.Count(OpMoveDirectory))
}

func TestBuildRenamePlan_EndToEnd(t *testing.T) {
	e := setup(t, fixture, "new-crate", "libs/new-crate")
	root := e.ws.Root
	execute(t, build(t, e))

	assert.Equal(t, `[workspace]
members = ["libs/new-crate", "app"]

[workspace.dependencies]
new-crate = { path = "libs/new-crate" }
`, read(t, root, "Cargo.toml"))

	assert.Equal(t, `[package]
name = "new-crate"
version = "0.1.0"

[dependencies]
helper = { path = "../../helper" }
`, read(t, root, "libs/new-crate/Cargo.toml"))

	assert.Equal(t, `[package]
name = "app"
version = "0.1.0"

[dependencies]
new-crate = { path = "../libs/new-crate" }
oc = { package = 'new-crate', path = "../libs/new-crate" }
`, read(t, root, "app/Cargo.toml"))

	assert.Equal(t, `use new_crate::thing;
fn main() {
    let s = "old_crate::x";
    old_crate_extended::y();
    new_crate::thing();
    oc::thing();
}
`, read(t, root, "app/src/main.rs"))
}

func TestBuildRenamePlan_Idempotent(t *testing.T) {
	e := setup(t, fixture, "new-crate", "libs/new-crate")
	root := e.ws.Root
	execute(t, build(t, e))

	again := load(t, root, "new-crate", "new-crate", "")
	plan := build(t, again)
	assert.True(t, plan.IsEmpty(), "second plan should be empty, got %+v", plan.Operations)
}

func TestBuildRenamePlan_AliasPreserved(t *testing.T) {
	e := setup(t, fixture, "new-crate", "")
	plan := build(t, e)

	for _, op := range plan.Operations {
		assert.NotEqual(t, "oc", op.Old, "alias key must not be edited")
	}
	execute(t, plan)
	assert.Contains(t, read(t, e.ws.Root, "app/Cargo.toml"), `oc = { package = 'new-crate', path = "../lib" }`)
	assert.Contains(t, read(t, e.ws.Root, "app/src/main.rs"), "oc::thing();")
}

func TestBuildRenamePlan_MoveOnly(t *testing.T) {
	e := setup(t, fixture, "old-crate", "crates/old-crate")
	plan := build(t, e)

	for _, op := range plan.Operations {
		assert.NotEqual(t, OpReplaceManifestField, op.Kind, "names are unchanged: %+v", op)
	}
	move, ok := plan.Move()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(e.ws.Root, "lib"), move.Path)
	assert.Equal(t, filepath.Join(e.ws.Root, "crates", "old-crate"), move.Dest)
}

func TestBuildRenamePlan_SnakeCaseUnchanged(t *testing.T) {
	// old-crate -> old_crate keeps the source identifier
	e := setup(t, fixture, "old_crate", "")
	plan := build(t, e)

	assert.Zero(t, plan.Count(OpReplaceTextSpan))
	assert.NotZero(t, plan.Count(OpReplaceManifestField))
}

func TestBuildRenamePlan_GlobMembers(t *testing.T) {
	files := map[string]string{
		"Cargo.toml":            "[workspace]\nmembers = ['crates/*']\n",
		"crates/lib/Cargo.toml": "[package]\nname = \"old-crate\"\n",
	}

	t.Run("destination outside globs is appended", func(t *testing.T) {
		e := setup(t, files, "old-crate", "libs/old-crate")
		root := e.ws.Root
		plan := build(t, e)
		require.Equal(t, 1, plan.Count(OpRewriteMembers))
		execute(t, plan)
		assert.Equal(t, "[workspace]\nmembers = ['crates/*', 'libs/old-crate']\n", read(t, root, "Cargo.toml"))
	})

	t.Run("destination covered by glob needs no edit", func(t *testing.T) {
		e := setup(t, files, "new-crate", "crates/new-crate")
		plan := build(t, e)
		assert.Zero(t, plan.Count(OpRewriteMembers))
	})
}

func TestRebase(t *testing.T) {
	root := filepath.FromSlash("/ws")
	oldDir := filepath.Join(root, "lib")
	newDir := filepath.Join(root, "libs", "new")

	tests := []struct {
		name        string
		value       string
		manifestDir string
		want        string
	}{
		{"dependent points at moved dir", "../lib", filepath.Join(root, "app"), "../libs/new"},
		{"root points at moved dir", "lib", root, "libs/new"},
		{"moved manifest points outward", "../helper", oldDir, "../../helper"},
		{"moved manifest points inward", "sub", oldDir, "sub"},
		{"unrelated path", "../other", filepath.Join(root, "app"), "../other"},
		{"trailing slash kept when unchanged", "../other/", filepath.Join(root, "app"), "../other/"},
		{"subdirectory of moved dir", "../lib/macros", filepath.Join(root, "app"), "../libs/new/macros"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rebase(tt.value, tt.manifestDir, oldDir, newDir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOperation_Inverse(t *testing.T) {
	edit := Operation{Kind: OpReplaceTextSpan, Path: "f", Offset: 4, Length: 9, Old: "old_crate", New: "n"}
	inv := edit.Inverse()
	assert.Equal(t, "n", inv.Old)
	assert.Equal(t, "old_crate", inv.New)
	assert.Equal(t, 1, inv.Length)
	assert.Equal(t, edit, inv.Inverse())

	move := Operation{Kind: OpMoveDirectory, Path: "a", Dest: "b"}
	assert.Equal(t, "b", move.Inverse().Path)
	assert.Equal(t, "a", move.Inverse().Dest)
	assert.False(t, move.IsEdit())
}

func TestRenamePlan_Files(t *testing.T) {
	plan := &RenamePlan{}
	plan.AddOperation(Operation{Kind: OpReplaceTextSpan, Path: "b"})
	plan.AddOperation(Operation{Kind: OpMoveDirectory, Path: "dir"})
	plan.AddOperation(Operation{Kind: OpReplaceManifestField, Path: "a"})
	plan.AddOperation(Operation{Kind: OpReplaceTextSpan, Path: "b"})
	assert.Equal(t, []string{"b", "a"}, plan.Files())
	assert.False(t, plan.IsEmpty())
}
