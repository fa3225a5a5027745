package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrResolverUnavailable indicates the metadata tool could not be run at all.
var ErrResolverUnavailable = errors.New("metadata resolver unavailable")

// MetadataResolver asks the build tool whether a workspace is well formed.
type MetadataResolver interface {
	// Resolve returns nil when the workspace rooted at manifestPath resolves.
	Resolve(ctx context.Context, manifestPath string) error
}

// ResolveError carries the diagnostics of a failed resolution.
type ResolveError struct {
	// Diagnostics is the tool's stderr, trimmed
	Diagnostics string

	// Err is the exit error
	Err error
}

func (e *ResolveError) Error() string {
	if e.Diagnostics == "" {
		return fmt.Sprintf("cargo metadata failed: %v", e.Err)
	}
	return fmt.Sprintf("cargo metadata failed: %s", e.Diagnostics)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// CargoMetadata implements MetadataResolver by running `cargo metadata`.
type CargoMetadata struct {
	bin string
}

// NewCargoMetadata creates a resolver running the given cargo binary.
func NewCargoMetadata(bin string) *CargoMetadata {
	if bin == "" {
		bin = "cargo"
	}
	return &CargoMetadata{bin: bin}
}

// Resolve runs `cargo metadata --format-version=1 --no-deps`. Only the exit
// status matters; the JSON on stdout is discarded.
func (c *CargoMetadata) Resolve(ctx context.Context, manifestPath string) error {
	if _, err := exec.LookPath(c.bin); err != nil {
		return fmt.Errorf("%w: %s not found", ErrResolverUnavailable, c.bin)
	}

	cmd := exec.CommandContext(ctx, c.bin, "metadata", "--format-version=1", "--no-deps", "--manifest-path", manifestPath)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ResolveError{Diagnostics: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}

// FakeResolver implements MetadataResolver with a predetermined result.
type FakeResolver struct {
	err   error
	calls []string
}

// NewFakeResolver creates a FakeResolver that returns err from every call.
func NewFakeResolver(err error) *FakeResolver {
	return &FakeResolver{err: err}
}

// SetError changes the result of later calls.
func (r *FakeResolver) SetError(err error) {
	r.err = err
}

// Calls returns the manifest paths Resolve was called with.
func (r *FakeResolver) Calls() []string {
	return r.calls
}

// Resolve records the call and returns the predetermined error.
func (r *FakeResolver) Resolve(ctx context.Context, manifestPath string) error {
	r.calls = append(r.calls, manifestPath)
	return r.err
}
