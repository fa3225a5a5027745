package workspace

import (
	"errors"
	"fmt"
)

var (
	// ErrPackageNotFound indicates no member declares the requested name.
	ErrPackageNotFound = errors.New("package not found")

	// ErrNoManifest indicates no Cargo.toml was found.
	ErrNoManifest = errors.New("could not find Cargo.toml")
)

// ManifestParseError reports a manifest that cannot be read or is malformed.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// MemberNotFoundError reports a workspace member path without a package.
type MemberNotFoundError struct {
	// Member is the entry as written in workspace.members
	Member string

	// Dir is the directory it resolved to
	Dir string
}

func (e *MemberNotFoundError) Error() string {
	return fmt.Sprintf("workspace member %q not found: no Cargo.toml in %s", e.Member, e.Dir)
}

// DuplicatePackageError reports two members declaring the same name.
type DuplicatePackageError struct {
	Name   string
	First  string
	Second string
}

func (e *DuplicatePackageError) Error() string {
	return fmt.Sprintf("package name %q is declared by both %s and %s", e.Name, e.First, e.Second)
}
