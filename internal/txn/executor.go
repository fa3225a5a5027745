// Package txn applies a rename plan as a single transaction.
//
// Before each mutation the executor appends the inverse of the operation to
// an in-memory journal: the full prior bytes and mode of an edited file, or
// the prior path and created parents of a move. Any failure rolls the journal
// back in reverse order. The workspace is either fully renamed or restored.
//
// State machine:
//
//	Idle -> Applying -> Committed -> Done
//	            |           |
//	            +-----------+-> RollingBack -> Done | RollbackFailed
package txn

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/danieljhkim/cargo-rename/internal/clock"
	"github.com/danieljhkim/cargo-rename/internal/fsops"
	"github.com/danieljhkim/cargo-rename/internal/hash"
	"github.com/danieljhkim/cargo-rename/internal/planner"
)

// State is the executor lifecycle state.
type State int

// Executor states
const (
	Idle State = iota
	Applying
	Committed
	RollingBack
	Done
	RollbackFailed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Applying:
		return "applying"
	case Committed:
		return "committed"
	case RollingBack:
		return "rolling-back"
	case Done:
		return "done"
	case RollbackFailed:
		return "rollback-failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Inverse is what an entry needs to undo its operation.
type Inverse struct {
	// Data is the full prior content of an edited file
	Data []byte

	// Mode is the prior permission bits of an edited file
	Mode os.FileMode

	// CreatedDirs are the parents a move created, outermost first
	CreatedDirs []string
}

// Entry is one journaled operation.
type Entry struct {
	Seq     int
	Op      planner.Operation
	Inverse Inverse
	Applied bool
}

// Summary describes a committed transaction.
type Summary struct {
	// ID identifies the transaction in logs
	ID string

	// Operations is the number of operations applied
	Operations int

	// Files are the files edited, in first-touch order
	Files []string

	// MovedTo is the move destination, empty without a move
	MovedTo string

	// Started is when Apply began
	Started time.Time

	// Duration is how long Apply took
	Duration time.Duration
}

// shift records how an applied edit changed a file's length.
type shift struct {
	offset int
	length int
	delta  int
}

// Executor runs one plan. It is single-use.
type Executor struct {
	fs     fsops.FS
	hasher hash.Hasher
	clock  clock.Clock
	logger *log.Logger

	id      string
	state   State
	journal []*Entry
	shifts  map[string][]shift
	touched map[string]bool
	moves   [][2]string
	files   []string
}

// NewExecutor creates an Executor in the Idle state.
func NewExecutor(fs fsops.FS, hasher hash.Hasher, clk clock.Clock, logger *log.Logger) *Executor {
	return &Executor{
		fs:      fs,
		hasher:  hasher,
		clock:   clk,
		logger:  logger,
		state:   Idle,
		shifts:  make(map[string][]shift),
		touched: make(map[string]bool),
	}
}

// State returns the current state.
func (e *Executor) State() State {
	return e.state
}

// Journal returns a copy of the journal entries.
func (e *Executor) Journal() []Entry {
	entries := make([]Entry, len(e.journal))
	for i, entry := range e.journal {
		entries[i] = *entry
	}
	return entries
}

// Apply executes plan. digests maps files to their content digest at scan
// time; a file whose digest no longer matches is not edited.
//
// On failure every applied operation is undone and an *ApplyFailedError is
// returned, or a *RollbackFailedError when undoing failed too.
func (e *Executor) Apply(ctx context.Context, plan *planner.RenamePlan, digests map[string]string) (*Summary, error) {
	if e.state != Idle {
		return nil, fmt.Errorf("%w: apply called in state %s", ErrInvalidState, e.state)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.id = uuid.NewString()
	e.state = Applying
	started := e.clock.Now()
	logger := e.logger.With("txn", e.id)
	logger.Debug("applying plan", "operations", len(plan.Operations))

	for i, op := range plan.Operations {
		var err error
		if op.Kind == planner.OpMoveDirectory {
			err = e.move(op)
		} else {
			err = e.edit(op, digests)
		}
		if err != nil {
			failure := &ApplyFailedError{Index: i, Op: op, Err: err}
			logger.Warn("operation failed, rolling back", "index", i+1, "kind", op.Kind, "path", op.Path, "err", err)
			if rbErr := e.rollback(failure); rbErr != nil {
				return nil, rbErr
			}
			return nil, failure
		}
	}

	e.state = Committed
	summary := &Summary{
		ID:         e.id,
		Operations: len(e.journal),
		Files:      e.files,
		Started:    started,
		Duration:   clock.Elapsed(e.clock, started),
	}
	if move, ok := plan.Move(); ok {
		summary.MovedTo = move.Dest
	}
	logger.Debug("transaction committed", "operations", summary.Operations, "duration", summary.Duration)
	return summary, nil
}

// Finalize discards the journal of a committed transaction.
func (e *Executor) Finalize() error {
	if e.state != Committed {
		return fmt.Errorf("%w: finalize called in state %s", ErrInvalidState, e.state)
	}
	e.journal = nil
	e.state = Done
	return nil
}

// Revert rolls back a committed transaction that has not been finalized.
func (e *Executor) Revert(cause error) error {
	if e.state != Committed {
		return fmt.Errorf("%w: revert called in state %s", ErrInvalidState, e.state)
	}
	e.logger.Warn("reverting committed transaction", "txn", e.id, "cause", cause)
	return e.rollback(cause)
}

func (e *Executor) edit(op planner.Operation, digests map[string]string) error {
	path := e.currentPath(op.Path)

	data, err := e.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	info, err := e.fs.Lstat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if !e.touched[op.Path] {
		if want, ok := digests[op.Path]; ok && e.hasher.HashBytes(data) != want {
			return fmt.Errorf("%w: %s changed since it was scanned", ErrDrift, op.Path)
		}
	}

	offset := e.translate(op.Path, op.Offset, op.Length)
	end := offset + op.Length
	if offset < 0 || end > len(data) || !bytes.Equal(data[offset:end], []byte(op.Old)) {
		return fmt.Errorf("%w: expected %q at line %d of %s", ErrSpanMismatch, op.Old, op.Line, op.Path)
	}

	updated := make([]byte, 0, len(data)-op.Length+len(op.New))
	updated = append(updated, data[:offset]...)
	updated = append(updated, op.New...)
	updated = append(updated, data[end:]...)

	entry := e.record(op, Inverse{Data: data, Mode: info.Mode().Perm()})
	if err := e.fs.AtomicWrite(path, updated, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	entry.Applied = true

	e.shifts[op.Path] = append(e.shifts[op.Path], shift{offset: op.Offset, length: op.Length, delta: len(op.New) - op.Length})
	if !e.touched[op.Path] {
		e.touched[op.Path] = true
		e.files = append(e.files, op.Path)
	}
	return nil
}

func (e *Executor) move(op planner.Operation) error {
	exists, err := e.fs.Exists(op.Dest)
	if err != nil {
		return fmt.Errorf("failed to check destination: %w", err)
	}
	if exists {
		return fmt.Errorf("destination %s already exists", op.Dest)
	}

	var created []string
	for dir := filepath.Dir(op.Dest); ; dir = filepath.Dir(dir) {
		ok, err := e.fs.Exists(dir)
		if err != nil {
			return fmt.Errorf("failed to check parent directory: %w", err)
		}
		if ok || dir == filepath.Dir(dir) {
			break
		}
		created = append([]string{dir}, created...)
	}

	entry := e.record(op, Inverse{CreatedDirs: created})
	if len(created) > 0 {
		if err := e.fs.MkdirAll(filepath.Dir(op.Dest), 0o755); err != nil {
			return fmt.Errorf("failed to create parent directory: %w", err)
		}
	}
	if err := e.fs.Move(op.Path, op.Dest); err != nil {
		return fmt.Errorf("failed to move directory: %w", err)
	}
	entry.Applied = true
	e.moves = append(e.moves, [2]string{op.Path, op.Dest})
	return nil
}

// record journals an operation before it is attempted.
func (e *Executor) record(op planner.Operation, inv Inverse) *Entry {
	entry := &Entry{Seq: len(e.journal) + 1, Op: op, Inverse: inv}
	e.journal = append(e.journal, entry)
	return entry
}

// translate maps a scan-time offset to the file's current content.
func (e *Executor) translate(path string, offset, length int) int {
	current := offset
	for _, s := range e.shifts[path] {
		if s.offset < offset || (s.offset == offset && s.length == 0 && length > 0) {
			current += s.delta
		}
	}
	return current
}

// currentPath follows moves already applied in this transaction.
func (e *Executor) currentPath(path string) string {
	for _, m := range e.moves {
		if rest, ok := strings.CutPrefix(path, m[0]+string(filepath.Separator)); ok {
			path = filepath.Join(m[1], rest)
		}
	}
	return path
}

// rollback undoes the journal in reverse order.
func (e *Executor) rollback(cause error) error {
	e.state = RollingBack

	var failures []EntryFailure
	for i := len(e.journal) - 1; i >= 0; i-- {
		entry := e.journal[i]
		if err := e.undo(entry); err != nil {
			e.logger.Error("failed to undo operation", "txn", e.id, "seq", entry.Seq, "kind", entry.Op.Kind, "path", entry.Op.Path, "err", err)
			failures = append(failures, EntryFailure{Seq: entry.Seq, Op: entry.Op, Err: err})
			continue
		}
		if entry.Op.Kind == planner.OpMoveDirectory && entry.Applied {
			e.moves = e.moves[:len(e.moves)-1]
		}
		entry.Applied = false
	}

	if len(failures) > 0 {
		e.state = RollbackFailed
		return &RollbackFailedError{Cause: cause, Failures: failures}
	}

	e.journal = nil
	e.state = Done
	e.logger.Info("rolled back all changes", "txn", e.id)
	return nil
}

func (e *Executor) undo(entry *Entry) error {
	op := entry.Op
	if op.Kind != planner.OpMoveDirectory {
		// Restoring prior bytes is idempotent, applied or not
		if err := e.fs.AtomicWrite(e.currentPath(op.Path), entry.Inverse.Data, entry.Inverse.Mode); err != nil {
			return fmt.Errorf("failed to restore file: %w", err)
		}
		return nil
	}

	if entry.Applied {
		inv := op.Inverse()
		if err := e.fs.Move(inv.Path, inv.Dest); err != nil {
			return fmt.Errorf("failed to move directory back: %w", err)
		}
	}
	dirs := entry.Inverse.CreatedDirs
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := e.fs.Remove(dirs[i]); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove created directory %s: %w", dirs[i], err)
		}
	}
	return nil
}
