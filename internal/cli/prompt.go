package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/danieljhkim/cargo-rename/internal/planner"
)

// promptConfirmer shows the plan and asks before it is applied.
type promptConfirmer struct {
	base  string
	in    *os.File
	isTTY func(fd int) bool
}

func newPromptConfirmer(base string) *promptConfirmer {
	return &promptConfirmer{base: base, in: os.Stdin, isTTY: term.IsTerminal}
}

// Confirm declines without asking when stdin is not a terminal.
func (p *promptConfirmer) Confirm(ctx context.Context, plan *planner.RenamePlan) (bool, error) {
	if !p.isTTY(int(p.in.Fd())) {
		PrintWarning("stdin is not a terminal, pass --yes to apply without confirmation")
		return false, nil
	}

	printPlan(p.base, plan)

	var ok bool
	confirm := huh.NewConfirm().
		Title(fmt.Sprintf("Apply %s?", PrintCount(len(plan.Operations), "change", "changes"))).
		Affirmative("Apply").
		Negative("Cancel").
		Value(&ok)

	if err := huh.NewForm(huh.NewGroup(confirm)).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}
