package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/manifoldco/promptui"
)

// Action is a choice offered while stepping a runner by hand.
type Action string

const (
	ActionStep Action = "Step"
	ActionRun  Action = "Run to completion"
	ActionQuit Action = "Quit"
)

// Actions lists the choices in menu order.
var Actions = []Action{ActionStep, ActionRun, ActionQuit} //nolint:gochecknoglobals

// Chooser picks the next action. The label describes the runner's position.
type Chooser func(label string) (Action, error)

// PromptChooser offers Actions through a promptui select menu.
func (p *Prompter) PromptChooser() Chooser {
	items := make([]string, len(Actions))
	for i, a := range Actions {
		items[i] = string(a)
	}

	return func(label string) (Action, error) {
		idx, _, err := p.Select(label, items...)
		if err != nil {
			return "", err
		}

		return Actions[idx], nil
	}
}

// Drive steps runner under the control of choose and writes a transcript to
// out. It returns when the runner halts, the user quits or interrupts, or a
// step fails.
func Drive[D any](ctx context.Context, runner *fsm.Runner[D], choose Chooser, out io.Writer, cols int) error {
	for !runner.Halted() {
		err := ctx.Err()
		if err != nil {
			return err
		}

		label := fmt.Sprintf("%s [%s] after %d steps", runner.Machine().Name(), runner.Active(), runner.Steps())

		action, err := choose(label)
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}

			return err
		}

		switch action {
		case ActionStep:
			result, err := runner.Step(ctx)
			if err != nil {
				_, _ = fmt.Fprint(out, Box("step failed: "+err.Error(), cols, AlignLeft))

				return err
			}

			_, _ = fmt.Fprintln(out, StepLine(runner.Steps(), result.String()))
		case ActionRun:
			err := runner.Run(ctx)
			if err != nil {
				return err
			}
		case ActionQuit:
			return nil
		default:
			return fmt.Errorf("%w: %q", ErrUnknownAction, action)
		}
	}

	_, _ = fmt.Fprint(out, Box(fmt.Sprintf("%s halted after %d steps", runner.Machine().Name(), runner.Steps()),
		cols, AlignCenter))

	return nil
}

// ErrUnknownAction is returned by Drive for an action it does not know.
var ErrUnknownAction = errors.New("unknown action")
