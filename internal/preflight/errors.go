package preflight

import (
	"errors"
	"fmt"
)

var (
	// ErrPackageNotFound indicates the old name is not a workspace member.
	ErrPackageNotFound = errors.New("package not found")

	// ErrInvalidIdentifier indicates the new name is not a valid package name.
	ErrInvalidIdentifier = errors.New("invalid package name")

	// ErrNameInUse indicates another member already uses the new name.
	ErrNameInUse = errors.New("package name already in use")

	// ErrDestinationExists indicates the move target is already occupied.
	ErrDestinationExists = errors.New("destination already exists")

	// ErrInvalidDestination indicates the move target cannot hold the package.
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrDirtyWorkingTree indicates uncommitted changes in the repository.
	ErrDirtyWorkingTree = errors.New("working tree has uncommitted changes")

	// ErrNoOpRequested indicates neither the name nor the location would change.
	ErrNoOpRequested = errors.New("nothing to do")
)

// Violation is a failed precondition. Err is one of the sentinels above.
type Violation struct {
	Err    error
	Detail string
}

func (v *Violation) Error() string {
	if v.Detail == "" {
		return v.Err.Error()
	}
	return fmt.Sprintf("%v: %s", v.Err, v.Detail)
}

func (v *Violation) Unwrap() error {
	return v.Err
}

func violation(err error, format string, args ...any) *Violation {
	return &Violation{Err: err, Detail: fmt.Sprintf(format, args...)}
}
