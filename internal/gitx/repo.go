// Package gitx answers one question about a workspace: which tracked files in
// its git working tree have uncommitted changes. The precondition checker
// consults it before a rename. Untracked files are ignored.
package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotRepository indicates the directory is not inside a git work tree, or
// git is not installed. Callers treat it as "nothing to protect".
var ErrNotRepository = errors.New("not a git repository")

// StatusOracle reports working tree changes.
type StatusOracle interface {
	// Changes returns one porcelain status line per modified tracked file
	// under root. An empty result means the tree is clean.
	Changes(ctx context.Context, root string) ([]string, error)
}

// RealGitRepo implements StatusOracle by shelling out to git.
type RealGitRepo struct {
	bin string
}

// NewRealGitRepo creates a new RealGitRepo that runs the given git binary.
func NewRealGitRepo(bin string) *RealGitRepo {
	if bin == "" {
		bin = "git"
	}
	return &RealGitRepo{bin: bin}
}

// Changes runs `git rev-parse --git-dir` to confirm root is inside a work
// tree, then `git status --porcelain -uno`.
func (g *RealGitRepo) Changes(ctx context.Context, root string) ([]string, error) {
	if _, err := exec.LookPath(g.bin); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrNotRepository, g.bin)
	}

	inside := exec.CommandContext(ctx, g.bin, "rev-parse", "--git-dir")
	inside.Dir = root
	if err := inside.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, root)
		}
		return nil, fmt.Errorf("failed to run %s: %w", g.bin, err)
	}

	cmd := exec.CommandContext(ctx, g.bin, "status", "--porcelain", "-uno")
	cmd.Dir = root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	var changes []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			changes = append(changes, line)
		}
	}
	return changes, nil
}

// FakeGitRepo implements StatusOracle with predetermined values for testing.
type FakeGitRepo struct {
	changes []string
	err     error
	calls   int
}

// NewFakeGitRepo creates a new FakeGitRepo. A dirty fake reports a single
// modified Cargo.toml.
func NewFakeGitRepo(clean bool) *FakeGitRepo {
	g := &FakeGitRepo{}
	if !clean {
		g.changes = []string{"M Cargo.toml"}
	}
	return g
}

// SetChanges replaces the reported status lines.
func (g *FakeGitRepo) SetChanges(changes ...string) {
	g.changes = changes
}

// SetError sets an error to be returned by Changes.
func (g *FakeGitRepo) SetError(err error) {
	g.err = err
}

// Calls returns how many times Changes was consulted.
func (g *FakeGitRepo) Calls() int {
	return g.calls
}

// Changes returns the predetermined result.
func (g *FakeGitRepo) Changes(ctx context.Context, root string) ([]string, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.changes, nil
}
