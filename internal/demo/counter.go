// Package demo holds the example machines driven by cmd/fsmdemo.
package demo

import (
	"context"
	"strconv"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
)

// CounterLimit is the value at which the counter machine stops.
const CounterLimit = 10

var (
	CounterStart = fsm.NewRef[struct{}]("Start")
	CounterMid   = fsm.NewRef[int32]("Mid")
	CounterStop  = fsm.NewRef[string]("Stop")
)

// midTransition is either another lap of Mid or the end with the final count.
type midTransition struct {
	lap   int32
	final int
	done  bool
}

func (t midTransition) IntoOutcome() fsm.Outcome {
	if t.done {
		return CounterStop.With(strconv.Itoa(t.final)).Named("MidOutcome::End")
	}

	return CounterMid.With(t.lap).Named("MidOutcome::Continue")
}

type midState struct {
	lap int32
}

func (s *midState) Step(_ context.Context, count *int) midTransition {
	if *count > CounterLimit {
		return midTransition{done: true, final: *count}
	}

	*count++

	return midTransition{lap: int32(*count) + 10000} //nolint:gosec // Bounded by CounterLimit
}

type stopState struct {
	final string
}

func (s *stopState) Step(ctx context.Context, _ *int) fsm.Outcome {
	logger.Get(ctx).Info("on end", "final", s.final)

	return fsm.Complete().Named("Stop")
}

// NewCounterMachine builds Start -> Mid (loops while the count is at most
// CounterLimit) -> Stop.
func NewCounterMachine(opts Options) (*fsm.Machine[int], error) {
	b := newBuilder[int]("counter", opts)

	fsm.RegisterFunc(b, CounterStart, func(ctx context.Context, count *int) fsm.Outcome {
		logger.Get(ctx).Info("on start", "count", *count)

		return CounterMid.With(0).Named("StartTransition")
	})

	fsm.Register(b, CounterMid, func(_ context.Context, lap int32, _ *int) (fsm.State[int, midTransition], error) {
		return &midState{lap: lap}, nil
	})

	fsm.Register(b, CounterStop, func(_ context.Context, final string, _ *int) (fsm.State[int, fsm.Outcome], error) {
		return &stopState{final: final}, nil
	})

	return b.Build()
}
