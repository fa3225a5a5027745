package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/danieljhkim/cargo-rename/internal/planner"
	"github.com/danieljhkim/cargo-rename/internal/preflight"
	"github.com/danieljhkim/cargo-rename/internal/scan"
	"github.com/danieljhkim/cargo-rename/internal/snapshot"
	"github.com/danieljhkim/cargo-rename/internal/txn"
	"github.com/danieljhkim/cargo-rename/internal/verify"
	"github.com/danieljhkim/cargo-rename/internal/workspace"
)

// Rename renames and optionally moves a workspace package.
func (e *Engine) Rename(ctx context.Context, req *RenameRequest) (*RenameResult, error) {
	rootManifest, err := workspace.FindRootManifest(e.fs, req.CWD, req.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to locate workspace: %w", err)
	}

	if err := e.resolver.Resolve(ctx, rootManifest); err != nil {
		if !errors.Is(err, verify.ErrResolverUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrWorkspaceUnresolvable, err)
		}
		e.logger.Info("skipping metadata check", "reason", err)
	}

	ws, err := workspace.Load(e.fs, rootManifest)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	e.logger.Debug("workspace loaded", "root", ws.Root, "packages", len(ws.Packages))

	checker := preflight.NewChecker(e.fs, e.status, e.logger)
	res, err := checker.Check(ctx, ws, preflight.Request{
		OldName:     req.OldName,
		NewName:     req.NewName,
		Move:        req.Move,
		Destination: req.Destination,
		AllowDirty:  req.AllowDirty,
	})
	if err != nil {
		return nil, err
	}

	refs, err := scan.NewScanner(e.fs, e.hasher, e.logger, e.skip).Scan(ws, res)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	plan, err := planner.BuildRenamePlan(refs, res)
	if err != nil {
		return nil, err
	}

	result := &RenameResult{Root: ws.Root, Plan: plan, Resolution: res}
	for _, dep := range ws.DependentsOf(res.OldName) {
		result.Dependents = append(result.Dependents, dep.Name)
	}
	if req.DryRun || plan.IsEmpty() {
		return result, nil
	}

	if !req.Yes {
		if err := e.confirmPlan(ctx, plan); err != nil {
			return nil, err
		}
	}

	snaps := e.snapshots()
	before, err := snaps.Capture(ws.Root)
	if err != nil {
		return nil, err
	}

	exec := txn.NewExecutor(e.fs, e.hasher, e.clock, e.logger)
	summary, err := exec.Apply(ctx, plan, refs.Digests)
	if err != nil {
		var failed *txn.ApplyFailedError
		if errors.As(err, &failed) {
			return nil, e.checkRestored(snaps, before, err)
		}
		return nil, err
	}

	oldName := ""
	if res.Renaming() {
		oldName = res.OldName
	}
	verifier := verify.NewVerifier(e.fs, e.resolver, e.logger)
	if verr := verifier.Verify(ctx, ws.ManifestPath, oldName); verr != nil {
		if req.StrictVerify {
			if err := exec.Revert(verr); err != nil {
				return nil, err
			}
			return nil, e.checkRestored(snaps, before, fmt.Errorf("rename reverted: %w", verr))
		}
		e.logger.Warn("post-apply verification found problems", "err", verr)
		result.Warning = verr
	}

	if err := exec.Finalize(); err != nil {
		return nil, err
	}
	result.Summary = summary
	return result, nil
}

func (e *Engine) confirmPlan(ctx context.Context, plan *planner.RenamePlan) error {
	if e.confirm == nil {
		return fmt.Errorf("%w: confirmation required", ErrCancelled)
	}
	ok, err := e.confirm.Confirm(ctx, plan)
	if err != nil {
		return fmt.Errorf("failed to confirm: %w", err)
	}
	if !ok {
		return ErrCancelled
	}
	return nil
}

// checkRestored compares the tree with its state before the transaction.
// cause is returned as is when nothing differs.
func (e *Engine) checkRestored(snaps *snapshot.Manager, before *snapshot.Snapshot, cause error) error {
	after, err := snaps.Capture(before.Root)
	if err != nil {
		e.logger.Error("failed to confirm rollback", "err", err)
		return cause
	}
	changes := snapshot.Diff(before, after)
	if len(changes) == 0 {
		return cause
	}
	for _, c := range changes {
		e.logger.Error("path differs after rollback", "path", c.Path, "change", c.Reason)
	}
	return fmt.Errorf("%w, %d path(s) differ: %w", ErrNotRestored, len(changes), cause)
}
