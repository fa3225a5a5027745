// Package scan finds every reference to the package being renamed.
//
// The scanner reads manifests through the workspace model and Rust sources
// through the rustsrc tokenizer. It never writes. Alongside the references it
// records a digest of every file a plan may edit, so the executor can refuse
// to touch a file that changed after the scan.
//
// Key responsibilities:
//   - Dependency entries naming the package, by key or package field
//   - The renamed package's own name
//   - Path dependencies whose target changes with a move
//   - Workspace member entries naming the moved directory
//   - Crate-rooted paths, use declarations and extern crate in .rs files
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/hash"
	"github.com/danieljhkim/cargo-rename/internal/manifest"
	"github.com/danieljhkim/cargo-rename/internal/preflight"
	"github.com/danieljhkim/cargo-rename/internal/rustsrc"
	"github.com/danieljhkim/cargo-rename/internal/workspace"
)

// DefaultSkipPatterns are workspace-relative globs never walked for sources.
var DefaultSkipPatterns = []string{"**/target/**", "**/.git/**"}

// Scanner locates references for one rename.
type Scanner struct {
	fs     fsops.FS
	hasher hash.Hasher
	logger *log.Logger
	skip   []string
}

// NewScanner creates a Scanner. skip adds to DefaultSkipPatterns.
func NewScanner(fs fsops.FS, hasher hash.Hasher, logger *log.Logger, skip []string) *Scanner {
	patterns := append([]string{}, DefaultSkipPatterns...)
	for _, p := range skip {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, filepath.ToSlash(p))
		}
	}
	return &Scanner{fs: fs, hasher: hasher, logger: logger, skip: patterns}
}

// Scan collects the references res implies across the whole workspace.
func (s *Scanner) Scan(ws *workspace.Workspace, res *preflight.Resolution) (*ReferenceSet, error) {
	for _, p := range s.skip {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid skip pattern %q", p)
		}
	}

	set := &ReferenceSet{Digests: make(map[string]string)}

	docs := []*manifest.Document{ws.Manifest}
	for _, pkg := range ws.Packages {
		if pkg.ManifestPath != ws.ManifestPath {
			docs = append(docs, pkg.Manifest)
		}
	}

	for _, doc := range docs {
		set.Digests[doc.Path] = s.hasher.HashBytes(doc.Data)
		s.scanManifest(set, doc, res)
	}

	if res.Moving() {
		s.scanMembers(set, ws, res)
	}

	if res.Renaming() {
		ident := rustsrc.CrateIdent(res.OldName)
		for _, pkg := range ws.Packages {
			if err := s.scanSources(set, ws, pkg, ident); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Debug("scan complete", "references", len(set.Refs), "files", len(set.Digests))
	return set, nil
}

func (s *Scanner) scanManifest(set *ReferenceSet, doc *manifest.Document, res *preflight.Resolution) {
	add := func(kind Kind, span manifest.Span, value string) {
		ref := Reference{
			Kind:   kind,
			Path:   doc.Path,
			Offset: span.Offset,
			Length: span.Length,
			Text:   doc.Text(span),
			Value:  value,
		}
		ref.Line, ref.Context = locate(doc.Data, span.Offset)
		set.Refs = append(set.Refs, ref)
	}

	if doc.Path == res.Package.ManifestPath {
		add(PackageName, doc.PackageNameSpan, doc.PackageName)
	}

	manifestDir := filepath.Dir(doc.Path)
	ownManifest := doc.Path == res.Package.ManifestPath

	for _, dep := range doc.Dependencies {
		if dep.Name() == res.OldName {
			if dep.Aliased() {
				add(DependencyPackage, dep.PackageSpan, dep.Package)
			} else {
				for _, span := range dep.KeySpans {
					add(DependencyKey, span, dep.Key)
				}
			}
		}

		if !res.Moving() || dep.Path == "" {
			continue
		}
		abs := filepath.IsAbs(dep.Path)
		target := filepath.Clean(dep.Path)
		if !abs {
			target = filepath.Join(manifestDir, filepath.FromSlash(dep.Path))
		}
		pointsIn := within(target, res.OldDir)
		// Relative paths inside the moved package move with it, and absolute
		// paths only change when they point into it
		if ownManifest == pointsIn || (abs && !pointsIn) {
			continue
		}
		add(PathDependency, dep.PathSpan, dep.Path)
		set.Refs[len(set.Refs)-1].ManifestDir = manifestDir
	}
}

// scanMembers records member list entries naming the old directory, or the
// glob anchor when only a glob covers it.
func (s *Scanner) scanMembers(set *ReferenceSet, ws *workspace.Workspace, res *preflight.Resolution) {
	doc := ws.Manifest
	oldRel := ws.RelPath(res.OldDir)

	literal := false
	covered := false
	var globs []string
	lists := []struct {
		name  string
		items []manifest.Item
	}{
		{"members", doc.Members},
		{"default-members", doc.DefaultMembers},
	}

	for _, list := range lists {
		for _, item := range list.items {
			entry := path.Clean(filepath.ToSlash(item.Value))
			if entry == oldRel {
				if list.name == "members" {
					literal = true
				}
				ref := Reference{
					Kind:   WorkspaceMember,
					Path:   doc.Path,
					Offset: item.Span.Offset,
					Length: item.Span.Length,
					Text:   doc.Text(item.Span),
					Value:  item.Value,
					List:   list.name,
				}
				ref.Line, ref.Context = locate(doc.Data, item.Span.Offset)
				set.Refs = append(set.Refs, ref)
				continue
			}
			if list.name == "members" {
				globs = append(globs, entry)
				if ok, _ := doublestar.Match(entry, oldRel); ok {
					covered = true
				}
			}
		}
	}

	if literal || !covered || len(doc.Members) == 0 {
		return
	}

	last := doc.Members[len(doc.Members)-1]
	ref := Reference{
		Kind:   WorkspaceMemberGlob,
		Path:   doc.Path,
		Offset: last.Span.Offset,
		Length: last.Span.Length,
		Text:   doc.Text(last.Span),
		Value:  last.Value,
		List:   "members",
		Globs:  globs,
	}
	ref.Line, ref.Context = locate(doc.Data, last.Span.Offset)
	set.Refs = append(set.Refs, ref)
}

// scanSources tokenizes every .rs file owned by pkg.
func (s *Scanner) scanSources(set *ReferenceSet, ws *workspace.Workspace, pkg *workspace.Package, ident string) error {
	err := s.fs.WalkDir(pkg.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel := ws.RelPath(p)
		if d.IsDir() {
			if p == pkg.Dir {
				return nil
			}
			if s.skipped(rel) {
				return filepath.SkipDir
			}
			// Nested packages are scanned as their own member, or not at all
			if ok, _ := s.fs.Exists(filepath.Join(p, workspace.ManifestName)); ok {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || filepath.Ext(p) != ".rs" || s.skipped(rel) {
			return nil
		}
		return s.scanSource(set, p, ident)
	})
	if err != nil {
		return fmt.Errorf("failed to scan sources of %s: %w", pkg.Name, err)
	}
	return nil
}

func (s *Scanner) scanSource(set *ReferenceSet, p, ident string) error {
	data, err := s.fs.ReadFile(p)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", p, err)
	}

	tokens, err := rustsrc.Tokenize(data)
	if err != nil {
		var lexErr *rustsrc.LexError
		if errors.As(err, &lexErr) {
			line, _ := locate(data, min(lexErr.Offset, len(data)))
			s.logger.Warn("skipping unparseable source file", "file", p, "line", line, "err", lexErr.Msg)
			return nil
		}
		return err
	}

	matches := rustsrc.FindCrateRefs(tokens, ident)
	if len(matches) == 0 {
		return nil
	}

	set.Digests[p] = s.hasher.HashBytes(data)
	for _, m := range matches {
		ref := Reference{
			Kind:   sourceKind(m.Kind),
			Path:   p,
			Offset: m.Offset,
			Length: m.Length,
			Text:   string(data[m.Offset : m.Offset+m.Length]),
		}
		ref.Line, ref.Context = locate(data, m.Offset)
		set.Refs = append(set.Refs, ref)
	}
	return nil
}

func (s *Scanner) skipped(rel string) bool {
	for _, p := range s.skip {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func sourceKind(k rustsrc.MatchKind) Kind {
	switch k {
	case rustsrc.Import:
		return SourceImport
	case rustsrc.ExternCrate:
		return SourceExternCrate
	default:
		return SourceQualifiedPath
	}
}

// within reports whether p is dir or lies below it.
func within(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}
