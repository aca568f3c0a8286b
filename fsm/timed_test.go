package fsm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchState struct {
	closed bool
}

func (s *searchState) Step(_ context.Context, data *scenarioData) Outcome {
	data.Ticks++

	return Continue().Named("searching")
}

func (s *searchState) Timeout(context.Context, *scenarioData) Outcome {
	return Complete().Named("gave up")
}

func (s *searchState) Close() error {
	s.closed = true

	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func newTimedMachine(t *testing.T, clock *fakeClock, timeout time.Duration, state *searchState) *Machine[scenarioData] {
	t.Helper()

	b := NewBuilder[scenarioData]("timed").WithLogger(NopLogger{})

	Register(b, startRef, TimedClock(clock.Now,
		func(context.Context, struct{}, *scenarioData) (TimedState[scenarioData, Outcome], time.Duration, error) {
			return state, timeout, nil
		}))

	machine, err := b.Build()
	require.NoError(t, err)

	return machine
}

func TestTimedStateTimesOut(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	state := &searchState{}

	runner, err := newTimedMachine(t, clock, 10*time.Second, state).
		Start(ctx, startRef.ID(), struct{}{}, scenarioData{})
	require.NoError(t, err)

	clock.now = clock.now.Add(5 * time.Second)

	result, err := runner.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepContinued, result.Kind)
	assert.Equal(t, "searching", result.Label)

	clock.now = clock.now.Add(6 * time.Second)

	result, err = runner.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepCompleted, result.Kind)
	assert.Equal(t, "gave up", result.Label)
	assert.Equal(t, 1, runner.Data().Ticks)
	assert.True(t, state.closed, "the wrapped state is closed on exit")
}

func TestTimedStateWithoutDeadline(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	clock := &fakeClock{now: time.Unix(1000, 0)}

	runner, err := newTimedMachine(t, clock, 0, &searchState{}).
		Start(ctx, startRef.ID(), struct{}{}, scenarioData{})
	require.NoError(t, err)

	clock.now = clock.now.Add(1000 * time.Hour)

	result, err := runner.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepContinued, result.Kind)

	timed, ok := runner.ActiveState().(interface {
		Expired() bool
		Unwrap() any
	})
	require.True(t, ok)
	assert.False(t, timed.Expired())
	assert.IsType(t, &searchState{}, timed.Unwrap())
}

func TestTimedConstructorError(t *testing.T) {
	t.Parallel()

	errNoSensor := errors.New("no sensor")
	b := NewBuilder[scenarioData]("timed-error").WithLogger(NopLogger{})

	Register(b, startRef, Timed(
		func(context.Context, struct{}, *scenarioData) (TimedState[scenarioData, Outcome], time.Duration, error) {
			return nil, 0, errNoSensor
		}))

	machine, err := b.Build()
	require.NoError(t, err)

	_, err = machine.Start(t.Context(), startRef.ID(), struct{}{}, scenarioData{})
	require.ErrorIs(t, err, ErrConstruction)
	require.ErrorIs(t, err, errNoSensor)
}
