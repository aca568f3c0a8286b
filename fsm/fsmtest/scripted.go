package fsmtest

import (
	"context"
	"sync"
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/require"
)

// Scripted is a state that replays a fixed list of outcomes, one per step.
// Once the script runs out it keeps returning the last outcome, or Continue
// when the script is empty.
type Scripted[D any] struct {
	mu       sync.Mutex
	outcomes []fsm.Outcome
	steps    int
	closed   bool
}

// Script creates a scripted state.
func Script[D any](outcomes ...fsm.Outcome) *Scripted[D] {
	return &Scripted[D]{outcomes: outcomes}
}

func (s *Scripted[D]) Step(context.Context, *D) fsm.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.steps++

	switch {
	case len(s.outcomes) == 0:
		return fsm.Continue()
	case s.steps > len(s.outcomes):
		return s.outcomes[len(s.outcomes)-1]
	default:
		return s.outcomes[s.steps-1]
	}
}

func (s *Scripted[D]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// Steps returns how many times the state was stepped.
func (s *Scripted[D]) Steps() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.steps
}

// Closed reports whether the runner released the state.
func (s *Scripted[D]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Replay returns a constructor that builds a fresh Scripted state on every
// entry and appends each received income to incomes when it is not nil.
func Replay[D, I any](incomes *[]I, outcomes ...fsm.Outcome) func(context.Context, I, *D) (fsm.State[D, fsm.Outcome], error) {
	var mu sync.Mutex

	return func(_ context.Context, income I, _ *D) (fsm.State[D, fsm.Outcome], error) {
		if incomes != nil {
			mu.Lock()
			*incomes = append(*incomes, income)
			mu.Unlock()
		}

		return Script[D](outcomes...), nil
	}
}

// RequireStep steps the runner and requires the step to succeed with kind,
// landing on to.
func RequireStep[D any](
	t testing.TB, ctx context.Context, runner *fsm.Runner[D], kind fsm.StepKind, to fsm.ID,
) fsm.StepResult {
	t.Helper()

	result, err := runner.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, kind, result.Kind, "unexpected step %s", result)
	require.Equal(t, to, runner.Active())

	return result
}

// RequireStepError steps the runner and requires it to fail with target while
// keeping the active state.
func RequireStepError[D any](t testing.TB, ctx context.Context, runner *fsm.Runner[D], target error) error {
	t.Helper()

	before := runner.Active()

	_, err := runner.Step(ctx)
	require.ErrorIs(t, err, target)
	require.Equal(t, before, runner.Active(), "a failed step must not change the active state")

	return err
}

// RequireRun starts the machine at entry and runs it to completion.
func RequireRun[D any](t testing.TB, ctx context.Context, machine *fsm.Machine[D], entry fsm.Entry, data D) D {
	t.Helper()

	final, err := machine.Run(ctx, entry.ID, entry.Income, data)
	require.NoError(t, err)

	return final
}
