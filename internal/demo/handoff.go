package demo

import (
	"context"
	"errors"

	"github.com/amp-labs/amp-fsm/fsm"
)

// ErrNegativeValue is returned when Middle is handed a negative value.
var ErrNegativeValue = errors.New("value must not be negative")

var (
	HandoffStart  = fsm.NewRef[struct{}]("Start")
	HandoffMiddle = fsm.NewRef[int32]("Middle")
)

// Handoff is the shared data of the handoff machine.
type Handoff struct {
	// Waits is how many times Start keeps itself before advancing.
	Waits int
	// Value is sent from Start to Middle.
	Value int32

	Ticks    int
	Received int32
}

// StartMove is Start's transition vocabulary.
type StartMove struct {
	advance bool
	value   int32
}

// Keep stays in Start.
func Keep() StartMove {
	return StartMove{}
}

// Advance moves to Middle carrying value.
func Advance(value int32) StartMove {
	return StartMove{advance: true, value: value}
}

func (m StartMove) IntoOutcome() fsm.Outcome {
	if !m.advance {
		return fsm.Continue().Named("Keep")
	}

	return HandoffMiddle.With(m.value).Named("Advance")
}

type handoffStart struct{}

func (handoffStart) Step(_ context.Context, data *Handoff) StartMove {
	data.Ticks++
	if data.Ticks <= data.Waits {
		return Keep()
	}

	return Advance(data.Value)
}

type handoffMiddle struct {
	value int32
}

func (s *handoffMiddle) Step(_ context.Context, data *Handoff) fsm.Outcome {
	data.Received = s.value

	return fsm.Complete().Named("Done")
}

// NewHandoffMachine builds Start (keeps itself Waits times, then advances
// with Value) -> Middle (records the value and completes).
func NewHandoffMachine(opts Options) (*fsm.Machine[Handoff], error) {
	b := newBuilder[Handoff]("handoff", opts)

	fsm.Register(b, HandoffStart, func(context.Context, struct{}, *Handoff) (fsm.State[Handoff, StartMove], error) {
		return handoffStart{}, nil
	})

	fsm.Register(b, HandoffMiddle, func(_ context.Context, value int32, _ *Handoff) (fsm.State[Handoff, fsm.Outcome], error) {
		if value < 0 {
			return nil, ErrNegativeValue
		}

		return &handoffMiddle{value: value}, nil
	})

	return b.Build()
}
