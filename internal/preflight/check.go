// Package preflight decides whether a rename may proceed.
//
// Every check is read-only. A failed check returns a *Violation wrapping one
// of the package sentinels, so callers can branch with errors.Is.
//
// Key responsibilities:
//   - Resolve the package being renamed
//   - Validate the new name and compute the destination directory
//   - Refuse no-op requests and occupied destinations
//   - Consult the version-control oracle unless dirty trees are allowed
package preflight

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/gitx"
	"github.com/danieljhkim/cargo-rename/internal/workspace"
)

// MoveMode selects whether and where the package directory moves.
type MoveMode int

const (
	// MoveNone keeps the package where it is.
	MoveNone MoveMode = iota
	// MoveDefault moves the package next to its current directory, named after the new name.
	MoveDefault
	// MoveTo moves the package to Request.Destination.
	MoveTo
)

// Request is the rename as the user asked for it.
type Request struct {
	// OldName is the current package name
	OldName string

	// NewName is the new package name, empty to keep the old one
	NewName string

	// Move selects the directory move
	Move MoveMode

	// Destination is the explicit target for MoveTo, absolute or relative to the workspace root
	Destination string

	// AllowDirty skips the version-control check
	AllowDirty bool
}

// Resolution is the outcome of a successful check.
type Resolution struct {
	// Package is the package being renamed
	Package *workspace.Package

	// OldName is the current package name
	OldName string

	// NewName is the effective new name, equal to OldName when unchanged
	NewName string

	// OldDir is the current absolute package directory
	OldDir string

	// NewDir is the absolute package directory after the run
	NewDir string
}

// Renaming reports whether the package name changes.
func (r *Resolution) Renaming() bool {
	return r.NewName != r.OldName
}

// Moving reports whether the package directory changes.
func (r *Resolution) Moving() bool {
	return r.NewDir != r.OldDir
}

// Checker runs the preconditions against a workspace.
type Checker struct {
	fs     fsops.FS
	status gitx.StatusOracle
	logger *log.Logger
}

// NewChecker creates a Checker.
func NewChecker(fs fsops.FS, status gitx.StatusOracle, logger *log.Logger) *Checker {
	return &Checker{fs: fs, status: status, logger: logger}
}

// Check validates req against ws.
func (c *Checker) Check(ctx context.Context, ws *workspace.Workspace, req Request) (*Resolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pkg, err := ws.Resolve(req.OldName)
	if err != nil {
		return nil, violation(ErrPackageNotFound, "no workspace member is named %q", req.OldName)
	}

	res := &Resolution{
		Package: pkg,
		OldName: pkg.Name,
		NewName: pkg.Name,
		OldDir:  pkg.Dir,
		NewDir:  pkg.Dir,
	}

	if req.NewName != "" {
		if err := ValidateName(req.NewName); err != nil {
			return nil, &Violation{Err: ErrInvalidIdentifier, Detail: err.Error()}
		}
		if req.NewName != pkg.Name {
			if other, err := ws.Resolve(req.NewName); err == nil {
				return nil, violation(ErrNameInUse, "%q is the package in %s", req.NewName, other.RelDir)
			}
		}
		for _, w := range NameWarnings(req.NewName) {
			c.logger.Warn(w, "name", req.NewName)
		}
		res.NewName = req.NewName
	}

	if req.Move != MoveNone {
		dest, err := c.destination(ws, pkg, res.NewName, req)
		if err != nil {
			return nil, err
		}
		res.NewDir = dest
	}

	if !res.Renaming() && !res.Moving() {
		return nil, violation(ErrNoOpRequested, "%q already has that name and location", pkg.Name)
	}

	if !req.AllowDirty {
		if err := c.checkClean(ctx, ws.Root); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// destination computes and validates the directory the package moves to.
func (c *Checker) destination(ws *workspace.Workspace, pkg *workspace.Package, newName string, req Request) (string, error) {
	if pkg.Dir == ws.Root {
		return "", violation(ErrInvalidDestination, "the workspace root package cannot be moved")
	}

	var dest string
	switch req.Move {
	case MoveDefault:
		dest = filepath.Join(filepath.Dir(pkg.Dir), newName)
	case MoveTo:
		raw := strings.TrimSpace(req.Destination)
		if raw == "" {
			return "", violation(ErrInvalidDestination, "empty destination")
		}
		if filepath.IsAbs(raw) {
			dest = filepath.Clean(raw)
		} else {
			dest = filepath.Join(ws.Root, raw)
		}
	default:
		return pkg.Dir, nil
	}

	if dest == pkg.Dir {
		return dest, nil
	}
	if dest == ws.Root || !ws.Contains(dest) {
		return "", violation(ErrInvalidDestination, "%s is outside the workspace", dest)
	}
	if err := c.fs.ValidateRelPath(ws.RelPath(dest)); err != nil {
		return "", &Violation{Err: ErrInvalidDestination, Detail: err.Error()}
	}
	if strings.HasPrefix(dest, pkg.Dir+string(filepath.Separator)) {
		return "", violation(ErrInvalidDestination, "%s is inside the package being moved", ws.RelPath(dest))
	}

	exists, err := c.fs.Exists(dest)
	if err != nil {
		return "", fmt.Errorf("failed to check destination: %w", err)
	}
	if exists {
		return "", violation(ErrDestinationExists, "%s", ws.RelPath(dest))
	}
	return dest, nil
}

func (c *Checker) checkClean(ctx context.Context, root string) error {
	changes, err := c.status.Changes(ctx, root)
	if errors.Is(err, gitx.ErrNotRepository) {
		c.logger.Debug("not a git repository, skipping working tree check", "root", root)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check working tree: %w", err)
	}
	if len(changes) > 0 {
		return violation(ErrDirtyWorkingTree, "%s; commit or stash your changes, or pass --allow-dirty", summarizeChanges(changes))
	}
	return nil
}

// maxListedChanges caps how many status lines a dirty-tree violation names.
const maxListedChanges = 5

func summarizeChanges(changes []string) string {
	if len(changes) <= maxListedChanges {
		return strings.Join(changes, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(changes[:maxListedChanges], ", "), len(changes)-maxListedChanges)
}
