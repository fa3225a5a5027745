package cli

import (
	"errors"

	"github.com/danieljhkim/cargo-rename/internal/engine"
	"github.com/danieljhkim/cargo-rename/internal/txn"
	"github.com/danieljhkim/cargo-rename/internal/verify"
)

// Process exit codes
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitRollbackFailed = 2
	ExitInconsistent   = 3
)

// ExitError carries an explicit exit code. A nil Err means the message was
// already shown.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	var exitErr *ExitError
	var rollbackErr *txn.RollbackFailedError
	var inconsistency *verify.PostCommitInconsistency

	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.As(err, &rollbackErr), errors.Is(err, engine.ErrNotRestored):
		return ExitRollbackFailed
	case errors.As(err, &inconsistency):
		return ExitInconsistent
	default:
		return ExitFailure
	}
}
