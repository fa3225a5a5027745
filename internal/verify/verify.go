// Package verify checks a workspace after a rename has been committed.
//
// The checks are advisory. A failure produces a *PostCommitInconsistency which
// the caller reports as a warning, unless strict verification is enabled.
package verify

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/manifest"
	"github.com/danieljhkim/cargo-rename/internal/workspace"
)

// PostCommitInconsistency reports a committed rename that left the workspace
// in a questionable state.
type PostCommitInconsistency struct {
	// Issues are human-readable findings
	Issues []string

	// Err is the underlying failure, if one stopped verification
	Err error
}

func (e *PostCommitInconsistency) Error() string {
	if len(e.Issues) == 0 {
		return "workspace inconsistent after rename"
	}
	msg := fmt.Sprintf("workspace inconsistent after rename: %s", e.Issues[0])
	if n := len(e.Issues) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func (e *PostCommitInconsistency) Unwrap() error {
	return e.Err
}

// Verifier runs the post-commit checks.
type Verifier struct {
	fs       fsops.FS
	resolver MetadataResolver
	logger   *log.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(fs fsops.FS, resolver MetadataResolver, logger *log.Logger) *Verifier {
	return &Verifier{fs: fs, resolver: resolver, logger: logger}
}

// Verify checks the workspace at rootManifest. When oldName is not empty no
// manifest may still refer to a package of that name.
func (v *Verifier) Verify(ctx context.Context, rootManifest, oldName string) error {
	if err := v.resolver.Resolve(ctx, rootManifest); err != nil {
		if !errors.Is(err, ErrResolverUnavailable) {
			return &PostCommitInconsistency{Issues: []string{err.Error()}, Err: err}
		}
		v.logger.Info("skipping metadata check", "reason", err)
	}

	ws, err := workspace.Load(v.fs, rootManifest)
	if err != nil {
		return &PostCommitInconsistency{Issues: []string{fmt.Sprintf("failed to reload workspace: %v", err)}, Err: err}
	}

	docs := []*manifest.Document{ws.Manifest}
	for _, pkg := range ws.Packages {
		if pkg.ManifestPath != ws.ManifestPath {
			docs = append(docs, pkg.Manifest)
		}
	}

	var issues []string
	for _, doc := range docs {
		rel := ws.RelPath(doc.Path)
		if oldName != "" {
			issues = append(issues, staleNames(rel, doc, oldName)...)
		}
		issues = append(issues, v.brokenPaths(rel, doc)...)
	}

	if len(issues) > 0 {
		for _, issue := range issues {
			v.logger.Debug("verification issue", "issue", issue)
		}
		return &PostCommitInconsistency{Issues: issues}
	}
	v.logger.Debug("workspace verified", "packages", len(ws.Packages))
	return nil
}

func staleNames(rel string, doc *manifest.Document, oldName string) []string {
	var issues []string
	if doc.HasPackage && doc.PackageName == oldName {
		issues = append(issues, fmt.Sprintf("%s: package is still named %s", rel, oldName))
	}
	for _, dep := range doc.Dependencies {
		if dep.Name() == oldName {
			issues = append(issues, fmt.Sprintf("%s: [%s] still depends on %s", rel, dep.Section(), oldName))
		}
	}
	return issues
}

func (v *Verifier) brokenPaths(rel string, doc *manifest.Document) []string {
	var issues []string
	dir := filepath.Dir(doc.Path)
	for _, dep := range doc.Dependencies {
		if dep.Path == "" {
			continue
		}
		target := filepath.FromSlash(dep.Path)
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		ok, err := v.fs.Exists(filepath.Join(target, workspace.ManifestName))
		if err != nil || !ok {
			issues = append(issues, fmt.Sprintf("%s: path %q of %s does not lead to a package", rel, dep.Path, dep.Key))
		}
	}
	return issues
}
