package txn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danieljhkim/cargo-rename/internal/planner"
)

var (
	// ErrInvalidState indicates a call not allowed in the executor's state.
	ErrInvalidState = errors.New("invalid transaction state")

	// ErrDrift indicates a file changed between the scan and the edit.
	ErrDrift = errors.New("drift detected")

	// ErrSpanMismatch indicates the text at an edit's span is not what the plan expects.
	ErrSpanMismatch = errors.New("span does not match")
)

// ApplyFailedError reports an operation that failed and was rolled back cleanly.
type ApplyFailedError struct {
	// Index is the position of the operation in the plan
	Index int

	// Op is the failed operation
	Op planner.Operation

	// Err is the cause
	Err error
}

func (e *ApplyFailedError) Error() string {
	return fmt.Sprintf("operation %d (%s %s) failed, changes rolled back: %v", e.Index+1, e.Op.Kind, e.Op.Path, e.Err)
}

func (e *ApplyFailedError) Unwrap() error {
	return e.Err
}

// EntryFailure is a journal entry that could not be undone.
type EntryFailure struct {
	Seq int
	Op  planner.Operation
	Err error
}

// RollbackFailedError reports a rollback that left the workspace partially
// modified. Failures lists every entry that could not be undone.
type RollbackFailedError struct {
	// Cause is the error that triggered the rollback
	Cause error

	// Failures are the entries left in place, in rollback order
	Failures []EntryFailure
}

func (e *RollbackFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rollback failed, %d change(s) could not be undone", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  #%d %s %s: %v", f.Seq, f.Op.Kind, f.Op.Path, f.Err)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "\ncaused by: %v", e.Cause)
	}
	return b.String()
}

func (e *RollbackFailedError) Unwrap() error {
	return e.Cause
}
