// Package snapshot captures the content and layout of a workspace tree.
//
// A Snapshot records every directory, file digest, file mode and symlink
// target under a root. Comparing the snapshot taken before a transaction with
// one taken after its rollback proves the workspace was restored.
package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/hash"
)

// Entry kinds
const (
	KindDir     = "directory"
	KindFile    = "file"
	KindSymlink = "symlink"
)

// Entry describes one path in a snapshot.
type Entry struct {
	// Kind is "directory", "file" or "symlink"
	Kind string

	// Mode is the permission bits
	Mode os.FileMode

	// Digest is the content hash of a file
	Digest string

	// Target is the link target of a symlink
	Target string
}

// Snapshot is the state of a tree at one point in time.
type Snapshot struct {
	// Root is the absolute directory captured
	Root string

	// Entries maps slash-separated paths relative to Root to their state
	Entries map[string]Entry
}

// Change is one difference between two snapshots.
type Change struct {
	// Path is the slash-separated path relative to the root
	Path string

	// Reason is a human-readable description of the difference
	Reason string
}

// Manager takes snapshots.
type Manager struct {
	fs     fsops.FS
	hasher hash.Hasher
	skip   []string
}

// NewManager creates a Manager. Paths matching any skip pattern are left out
// of every snapshot.
func NewManager(fs fsops.FS, hasher hash.Hasher, skip []string) *Manager {
	return &Manager{fs: fs, hasher: hasher, skip: skip}
}

// Capture records the tree under root.
func (m *Manager) Capture(root string) (*Snapshot, error) {
	snap := &Snapshot{Root: root, Entries: make(map[string]Entry)}

	err := m.fs.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("failed to compute relative path: %w", err)
		}
		rel = filepath.ToSlash(rel)
		if m.skipped(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := m.fs.Lstat(p)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", p, err)
		}

		entry := Entry{Mode: info.Mode().Perm()}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			entry.Kind = KindSymlink
			if entry.Target, err = m.fs.Readlink(p); err != nil {
				return fmt.Errorf("failed to read symlink %s: %w", p, err)
			}
		case info.IsDir():
			entry.Kind = KindDir
		default:
			entry.Kind = KindFile
			if entry.Digest, err = m.hasher.HashFile(p); err != nil {
				return fmt.Errorf("failed to hash %s: %w", p, err)
			}
		}
		snap.Entries[rel] = entry
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture snapshot of %s: %w", root, err)
	}

	return snap, nil
}

func (m *Manager) skipped(rel string) bool {
	for _, p := range m.skip {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Paths returns the captured paths in lexical order.
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.Entries))
	for p := range s.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Diff returns the differences from before to after, ordered by path.
func Diff(before, after *Snapshot) []Change {
	var changes []Change

	for _, p := range before.Paths() {
		was := before.Entries[p]
		now, ok := after.Entries[p]
		switch {
		case !ok:
			changes = append(changes, Change{Path: p, Reason: was.Kind + " removed"})
		case was.Kind != now.Kind:
			changes = append(changes, Change{Path: p, Reason: fmt.Sprintf("%s became %s", was.Kind, now.Kind)})
		case was.Digest != now.Digest:
			changes = append(changes, Change{Path: p, Reason: "content changed"})
		case was.Target != now.Target:
			changes = append(changes, Change{Path: p, Reason: fmt.Sprintf("link target changed from %s to %s", was.Target, now.Target)})
		case was.Mode != now.Mode:
			changes = append(changes, Change{Path: p, Reason: fmt.Sprintf("mode changed from %v to %v", was.Mode, now.Mode)})
		}
	}

	for _, p := range after.Paths() {
		if _, ok := before.Entries[p]; !ok {
			changes = append(changes, Change{Path: p, Reason: after.Entries[p].Kind + " added"})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}
