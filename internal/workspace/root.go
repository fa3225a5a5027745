package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/manifest"
)

// FindRootManifest locates the root manifest for a run.
//
// A non-empty override wins and may name either a Cargo.toml or the
// directory holding one. Otherwise the search walks upward from start and
// returns the nearest manifest declaring [workspace], falling back to the
// nearest manifest of any kind.
func FindRootManifest(fsys fsops.FS, start, override string) (string, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("failed to resolve manifest path: %w", err)
		}
		if info, err := fsys.Lstat(abs); err == nil && info.IsDir() {
			abs = filepath.Join(abs, ManifestName)
		}
		ok, err := fsys.Exists(abs)
		if err != nil {
			return "", fmt.Errorf("failed to check manifest: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrNoManifest, abs)
		}
		return abs, nil
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve start directory: %w", err)
	}

	nearest := ""
	for {
		candidate := filepath.Join(dir, ManifestName)
		if ok, _ := fsys.Exists(candidate); ok {
			if nearest == "" {
				nearest = candidate
			}
			data, err := fsys.ReadFile(candidate)
			if err != nil {
				return "", fmt.Errorf("failed to read %s: %w", candidate, err)
			}
			if declaresWorkspace(candidate, data) {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if nearest == "" {
		return "", fmt.Errorf("%w in %s or any parent directory", ErrNoManifest, start)
	}
	return nearest, nil
}

// declaresWorkspace reports whether a manifest has a [workspace] table. A
// malformed manifest is treated as not declaring one; Load reports the error.
func declaresWorkspace(path string, data []byte) bool {
	doc, err := manifest.Parse(path, data)
	if err != nil {
		return false
	}
	return doc.IsWorkspace
}
