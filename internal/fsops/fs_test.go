package fsops

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func TestRealFS_ValidateRelPath(t *testing.T) {
	fs := &RealFS{}

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{
			name:      "valid relative path",
			path:      "libs/new-crate",
			wantError: false,
		},
		{
			name:      "single component",
			path:      "core",
			wantError: false,
		},
		{
			name:      "empty path",
			path:      "",
			wantError: true,
		},
		{
			name:      "current directory",
			path:      ".",
			wantError: true,
		},
		{
			name:      "absolute path",
			path:      "/etc/hosts",
			wantError: true,
		},
		{
			name:      "parent directory traversal",
			path:      "../outside",
			wantError: true,
		},
		{
			name:      "traversal that cleans back inside",
			path:      "libs/../crates",
			wantError: true,
		},
		{
			name:      "hidden directory",
			path:      ".crates/core",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fs.ValidateRelPath(tt.path)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateRelPath(%q) error = %v, wantError %v", tt.path, err, tt.wantError)
			}
		})
	}
}

func TestRealFS_Exists(t *testing.T) {
	fs := NewRealFS()
	tmpDir := t.TempDir()

	existing := filepath.Join(tmpDir, "Cargo.toml")
	if err := os.WriteFile(existing, []byte("[workspace]\n"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	exists, err := fs.Exists(existing)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false for existing file")
	}

	exists, err = fs.Exists(filepath.Join(tmpDir, "missing"))
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true for missing file")
	}
}

func TestRealFS_AtomicWrite(t *testing.T) {
	fs := NewRealFS()
	tmpDir := t.TempDir()

	path := filepath.Join(tmpDir, "nested", "lib.rs")
	if err := fs.AtomicWrite(path, []byte("pub fn f() {}\n"), 0640); err != nil {
		t.Fatalf("AtomicWrite() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if string(data) != "pub fn f() {}\n" {
		t.Errorf("content = %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat: %v", err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}

	// No temp files may be left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestRealFS_Move(t *testing.T) {
	fs := NewRealFS()
	tmpDir := t.TempDir()

	src := filepath.Join(tmpDir, "lib")
	if err := os.MkdirAll(filepath.Join(src, "src"), 0755); err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "src", "lib.rs"), []byte("//! lib\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	dst := filepath.Join(tmpDir, "libs", "new-crate")
	if err := fs.Move(src, dst); err != nil {
		t.Fatalf("Move() error = %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists after move")
	}
	data, err := os.ReadFile(filepath.Join(dst, "src", "lib.rs"))
	if err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
	if string(data) != "//! lib\n" {
		t.Errorf("moved content = %q", data)
	}
}

func TestRealFS_Move_DestinationExists(t *testing.T) {
	fs := NewRealFS()
	tmpDir := t.TempDir()

	src := filepath.Join(tmpDir, "a")
	dst := filepath.Join(tmpDir, "b")
	for _, dir := range []string{src, dst} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	if err := fs.Move(src, dst); err == nil {
		t.Fatal("Move() onto an existing destination should fail")
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should be untouched: %v", err)
	}
}

func TestRealFS_Copy_Directory(t *testing.T) {
	fs := NewRealFS()
	tmpDir := t.TempDir()

	src := filepath.Join(tmpDir, "src")
	if err := os.MkdirAll(filepath.Join(src, "inner"), 0755); err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "inner", "mod.rs"), []byte("mod x;"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.Symlink("inner/mod.rs", filepath.Join(src, "link.rs")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	dst := filepath.Join(tmpDir, "dst")
	if err := fs.Copy(src, dst); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dst, "inner", "mod.rs"))
	if err != nil {
		t.Fatalf("copied file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("copied mode = %v, want 0600", info.Mode().Perm())
	}

	target, err := os.Readlink(filepath.Join(dst, "link.rs"))
	if err != nil {
		t.Fatalf("symlink not recreated: %v", err)
	}
	if target != "inner/mod.rs" {
		t.Errorf("symlink target = %q", target)
	}
}

func TestRealFS_WalkDir(t *testing.T) {
	fsys := NewRealFS()
	tmpDir := t.TempDir()

	for _, rel := range []string{"src/lib.rs", "src/a/b.rs", "README.md"} {
		path := filepath.Join(tmpDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}

	var files []string
	err := fsys.WalkDir(tmpDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(tmpDir, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir() error = %v", err)
	}

	want := []string{"README.md", "src/a/b.rs", "src/lib.rs"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestRealFS_Glob(t *testing.T) {
	fsys := NewRealFS()
	tmpDir := t.TempDir()

	for _, rel := range []string{"crates/a/Cargo.toml", "crates/b/Cargo.toml", "tools/c/Cargo.toml"} {
		path := filepath.Join(tmpDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"crates/*", []string{"crates/a", "crates/b"}},
		{"**/c", []string{"tools/c"}},
		{"missing/*", nil},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := fsys.Glob(tmpDir, tt.pattern)
			if err != nil {
				t.Fatalf("Glob() error = %v", err)
			}
			sort.Strings(got)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Glob(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}
