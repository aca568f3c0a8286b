package fsm

import (
	"context"
	"io"
	"time"
)

// TimedState is a state that may loop indefinitely but gives up after a
// deadline. Before the deadline Step is called; once it has passed Timeout is
// called instead, which usually switches somewhere else.
type TimedState[D any, T IntoOutcome] interface {
	Step(ctx context.Context, data *D) T
	Timeout(ctx context.Context, data *D) T
}

// Timed turns a timed-state constructor into a regular one. The constructor
// returns the state and how long it may run; a non-positive duration means it
// never times out. The clock starts when the state is entered.
func Timed[D, I any, T IntoOutcome](
	construct func(ctx context.Context, income I, data *D) (TimedState[D, T], time.Duration, error),
) func(ctx context.Context, income I, data *D) (State[D, T], error) {
	return TimedClock(time.Now, construct)
}

// TimedClock is Timed with an explicit clock.
func TimedClock[D, I any, T IntoOutcome](
	now func() time.Time,
	construct func(ctx context.Context, income I, data *D) (TimedState[D, T], time.Duration, error),
) func(ctx context.Context, income I, data *D) (State[D, T], error) {
	return func(ctx context.Context, income I, data *D) (State[D, T], error) {
		inner, timeout, err := construct(ctx, income, data)
		if err != nil {
			return nil, err
		}

		state := &timedState[D, T]{
			inner: inner,
			now:   now,
		}

		if timeout > 0 {
			state.deadline = now().Add(timeout)
		}

		return state, nil
	}
}

type timedState[D any, T IntoOutcome] struct {
	inner    TimedState[D, T]
	now      func() time.Time
	deadline time.Time
}

func (s *timedState[D, T]) Step(ctx context.Context, data *D) T {
	if s.Expired() {
		return s.inner.Timeout(ctx, data)
	}

	return s.inner.Step(ctx, data)
}

// Expired reports whether the deadline has passed.
func (s *timedState[D, T]) Expired() bool {
	return !s.deadline.IsZero() && s.now().After(s.deadline)
}

// Unwrap returns the wrapped timed state.
func (s *timedState[D, T]) Unwrap() any {
	return s.inner
}

func (s *timedState[D, T]) Close() error {
	if closer, ok := s.inner.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
