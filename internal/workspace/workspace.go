// Package workspace builds the read-only model of a Cargo workspace.
//
// Load reads the root manifest, expands workspace.members (globs included,
// exclude honored) and reads every member manifest. Each manifest is decoded
// twice: once with go-toml's Unmarshal, which validates the whole document,
// and once with the manifest package, which records byte spans for editing.
package workspace

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/manifest"
)

// ManifestName is the file name of every Cargo manifest.
const ManifestName = "Cargo.toml"

// Package is one workspace member.
type Package struct {
	// Name is the [package] name
	Name string

	// Version is the [package] version when it is a plain string
	Version string

	// Dir is the absolute package directory
	Dir string

	// RelDir is Dir relative to the workspace root, slash separated ("." for the root package)
	RelDir string

	// ManifestPath is the absolute path of the package manifest
	ManifestPath string

	// Manifest is the located view of the package manifest
	Manifest *manifest.Document
}

// Dependencies returns the package's own dependency edges. Workspace and patch
// tables are excluded since they do not make this package a dependent.
func (p *Package) Dependencies() []*manifest.Dependency {
	var deps []*manifest.Dependency
	for _, dep := range p.Manifest.Dependencies {
		switch dep.Table[0] {
		case "workspace", "patch":
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}

// Workspace is the set of packages under one root manifest.
type Workspace struct {
	// Root is the absolute workspace root directory
	Root string

	// ManifestPath is the absolute root manifest path
	ManifestPath string

	// Manifest is the located view of the root manifest
	Manifest *manifest.Document

	// Packages are the members ordered by RelDir
	Packages []*Package

	byName map[string]*Package
}

// cargoManifest is the subset of Cargo.toml decoded for validation.
type cargoManifest struct {
	Package *struct {
		Name    string `toml:"name"`
		Version any    `toml:"version"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
		Exclude []string `toml:"exclude"`
	} `toml:"workspace"`
}

// Load builds the workspace rooted at rootManifest.
func Load(fsys fsops.FS, rootManifest string) (*Workspace, error) {
	rootManifest, err := filepath.Abs(rootManifest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}

	decoded, doc, err := readManifest(fsys, rootManifest)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{
		Root:         filepath.Dir(rootManifest),
		ManifestPath: rootManifest,
		Manifest:     doc,
		byName:       make(map[string]*Package),
	}

	dirs, err := ws.memberDirs(fsys, decoded)
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		pkg, err := loadPackage(fsys, ws.Root, dir)
		if err != nil {
			return nil, err
		}
		if existing, ok := ws.byName[pkg.Name]; ok {
			return nil, &DuplicatePackageError{Name: pkg.Name, First: existing.RelDir, Second: pkg.RelDir}
		}
		ws.byName[pkg.Name] = pkg
		ws.Packages = append(ws.Packages, pkg)
	}

	sort.Slice(ws.Packages, func(i, j int) bool {
		return ws.Packages[i].RelDir < ws.Packages[j].RelDir
	})

	return ws, nil
}

// memberDirs returns the absolute directories of all members.
func (w *Workspace) memberDirs(fsys fsops.FS, decoded *cargoManifest) ([]string, error) {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	if decoded.Package != nil {
		add(w.Root)
	}
	if decoded.Workspace == nil {
		return dirs, nil
	}

	excluded := func(rel string) bool {
		for _, ex := range decoded.Workspace.Exclude {
			ex = strings.TrimSuffix(path.Clean(filepath.ToSlash(ex)), "/")
			if rel == ex || strings.HasPrefix(rel, ex+"/") {
				return true
			}
			if ok, _ := doublestar.Match(ex, rel); ok {
				return true
			}
		}
		return false
	}

	for _, member := range decoded.Workspace.Members {
		pattern := path.Clean(filepath.ToSlash(member))

		if !hasGlobMeta(pattern) {
			dir := filepath.Join(w.Root, filepath.FromSlash(pattern))
			ok, err := fsys.Exists(filepath.Join(dir, ManifestName))
			if err != nil {
				return nil, fmt.Errorf("failed to check member %s: %w", member, err)
			}
			if !ok {
				return nil, &MemberNotFoundError{Member: member, Dir: dir}
			}
			add(dir)
			continue
		}

		matches, err := fsys.Glob(w.Root, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to expand member pattern %q: %w", member, err)
		}
		sort.Strings(matches)
		for _, rel := range matches {
			if excluded(rel) {
				continue
			}
			dir := filepath.Join(w.Root, filepath.FromSlash(rel))
			// Globs may match plain directories and files, which cargo skips
			if ok, _ := fsys.Exists(filepath.Join(dir, ManifestName)); ok {
				add(dir)
			}
		}
	}

	return dirs, nil
}

func loadPackage(fsys fsops.FS, root, dir string) (*Package, error) {
	manifestPath := filepath.Join(dir, ManifestName)
	decoded, doc, err := readManifest(fsys, manifestPath)
	if err != nil {
		return nil, err
	}
	if decoded.Package == nil || decoded.Package.Name == "" {
		return nil, &ManifestParseError{Path: manifestPath, Err: fmt.Errorf("missing [package] name")}
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to compute relative path: %w", err)
	}

	pkg := &Package{
		Name:         decoded.Package.Name,
		Dir:          dir,
		RelDir:       filepath.ToSlash(rel),
		ManifestPath: manifestPath,
		Manifest:     doc,
	}
	if v, ok := decoded.Package.Version.(string); ok {
		pkg.Version = v
	}
	return pkg, nil
}

func readManifest(fsys fsops.FS, manifestPath string) (*cargoManifest, *manifest.Document, error) {
	data, err := fsys.ReadFile(manifestPath)
	if err != nil {
		return nil, nil, &ManifestParseError{Path: manifestPath, Err: err}
	}

	var decoded cargoManifest
	if err := toml.Unmarshal(data, &decoded); err != nil {
		return nil, nil, &ManifestParseError{Path: manifestPath, Err: err}
	}

	doc, err := manifest.Parse(manifestPath, data)
	if err != nil {
		return nil, nil, &ManifestParseError{Path: manifestPath, Err: err}
	}

	return &decoded, doc, nil
}

// Resolve returns the package with the given name.
func (w *Workspace) Resolve(name string) (*Package, error) {
	if pkg, ok := w.byName[name]; ok {
		return pkg, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
}

// DependentsOf returns the packages that declare a direct dependency on name,
// matched by the entry's package field or, without one, by its key.
func (w *Workspace) DependentsOf(name string) []*Package {
	var dependents []*Package
	for _, pkg := range w.Packages {
		if pkg.Name == name {
			continue
		}
		for _, dep := range pkg.Dependencies() {
			if dep.Name() == name {
				dependents = append(dependents, pkg)
				break
			}
		}
	}
	return dependents
}

// RelPath returns abs relative to the workspace root in slash form.
func (w *Workspace) RelPath(abs string) string {
	rel, err := filepath.Rel(w.Root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// Contains reports whether abs lies inside the workspace root.
func (w *Workspace) Contains(abs string) bool {
	rel, err := filepath.Rel(w.Root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
