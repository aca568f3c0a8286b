package fsm

import (
	"context"
	"errors"
	"io"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/atomic"
)

// Runner drives one instance of a machine. It owns the shared data and the
// single active state. A runner must not be stepped from more than one
// goroutine at a time; Steps, Halted and Active may be read concurrently.
type Runner[D any] struct {
	id      uuid.UUID
	machine *Machine[D]
	data    D

	state   active[D]
	stateID *atomic.String

	steps  *atomic.Int64
	halted *atomic.Bool
}

func newRunner[D any](machine *Machine[D], data D) *Runner[D] {
	return &Runner[D]{
		id:      uuid.New(),
		machine: machine,
		data:    data,
		stateID: atomic.NewString(""),
		steps:   atomic.NewInt64(0),
		halted:  atomic.NewBool(false),
	}
}

// ID returns the runner's unique id, used in logs and spans.
func (r *Runner[D]) ID() uuid.UUID {
	return r.id
}

// Machine returns the machine this runner executes.
func (r *Runner[D]) Machine() *Machine[D] {
	return r.machine
}

// Data returns the shared data. Only the active state may mutate it while the
// runner is being stepped; read it freely once the runner has halted.
func (r *Runner[D]) Data() *D {
	return &r.data
}

// Active returns the id of the active state, or Terminal once halted.
func (r *Runner[D]) Active() ID {
	return ID(r.stateID.Load())
}

// ActiveState returns the active state value, or nil once halted.
func (r *Runner[D]) ActiveState() any {
	if r.state == nil {
		return nil
	}

	return r.state.instance()
}

// Halted reports whether the runner reached the terminal state.
func (r *Runner[D]) Halted() bool {
	return r.halted.Load()
}

// Steps returns the number of steps taken so far.
func (r *Runner[D]) Steps() int64 {
	return r.steps.Load()
}

// Step runs the active state once and resolves its outcome. On error the
// active state is left unchanged.
func (r *Runner[D]) Step(ctx context.Context) (result StepResult, err error) {
	from := r.Active()

	if r.halted.Load() {
		return StepResult{}, ErrHalted
	}

	ctx = r.withLabels(ctx)

	ctx, span := r.startStepSpan(ctx, from)
	defer func() { endSpan(span, err) }()

	start := time.Now()
	outcome, ok := r.state.step(ctx, &r.data)
	r.steps.Inc()

	if !ok {
		err = WrapStateError(from, ErrNilOutcome)
	} else {
		result, err = r.resolve(ctx, from, outcome)
	}

	result.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("step.kind", result.Kind.String()),
		attribute.String("step.label", result.Label),
		attribute.String("step.to", string(result.To)),
	)

	r.observeStep(ctx, from, result, err)

	return result, err
}

// Run steps the runner until it reaches the terminal state, a step fails, the
// context is done, or the configured step limit is hit. Step errors are
// returned as-is and never retried.
func (r *Runner[D]) Run(ctx context.Context) (err error) {
	ctx = r.withLabels(ctx)

	ctx, span := r.startRunSpan(ctx)
	defer func() { endSpan(span, err) }()

	started := time.Now()

	r.runStarted()
	defer func() { r.runFinished(ctx, time.Since(started), err) }()

	var taken int64

	maxSteps := r.machine.config.MaxSteps

	for !r.halted.Load() {
		select {
		case <-ctx.Done():
			return WrapStateError(r.Active(), ctx.Err())
		default:
		}

		if maxSteps > 0 && taken >= maxSteps {
			return WrapStateError(r.Active(), ErrStepLimit)
		}

		_, err = r.Step(ctx)
		taken++

		if err != nil {
			return err
		}
	}

	return nil
}

// Close releases the active state, closing it when it is an io.Closer, and
// halts the runner. Close errors are logged like those of a discarded state.
// Closing a halted runner does nothing.
func (r *Runner[D]) Close(ctx context.Context) {
	if r.halted.Load() {
		return
	}

	ctx = r.withLabels(ctx)

	id := r.Active()
	prev := r.state

	r.halt()
	r.release(ctx, id, prev)
}

// enter constructs the start state.
func (r *Runner[D]) enter(ctx context.Context, id ID, income any) error {
	ctx = r.withLabels(ctx)

	if id == Terminal {
		if _, ok := income.(struct{}); !ok {
			return r.startFailed(ctx, id, terminalMismatch("", "start", income))
		}

		r.halt()

		return nil
	}

	v, ok := r.machine.lookup(id)
	if !ok {
		return r.startFailed(ctx, id, &UnknownTargetError{Target: id, Label: "start"})
	}

	state, err := v.construct(ctx, income, &r.data)
	if err != nil {
		return r.startFailed(ctx, id, annotate(err, "", "start"))
	}

	r.state = state
	r.stateID.Store(string(id))
	r.machine.logger.StateEntered(ctx, id, "start")

	return nil
}

func (r *Runner[D]) resolve(ctx context.Context, from ID, outcome Outcome) (StepResult, error) {
	label := outcome.Label()

	if outcome.IsContinue() {
		return StepResult{Kind: StepContinued, From: from, To: from, Label: label}, nil
	}

	// A switch naming the active state keeps it, like Continue, once its
	// payload has passed the same income check as any other switch.
	if outcome.Target() == from {
		if v, ok := r.machine.lookup(from); ok && !v.accepts(outcome.Income()) {
			return StepResult{}, annotate(v.mismatch(outcome.Income()), from, label)
		}

		return StepResult{Kind: StepContinued, From: from, To: from, Label: label}, nil
	}

	target := outcome.Target()

	if target == Terminal {
		if _, ok := outcome.Income().(struct{}); !ok {
			return StepResult{}, terminalMismatch(from, label, outcome.Income())
		}

		prev := r.state
		r.halt()
		r.release(ctx, from, prev)

		return StepResult{Kind: StepCompleted, From: from, To: Terminal, Label: label}, nil
	}

	v, ok := r.machine.lookup(target)
	if !ok {
		return StepResult{}, &UnknownTargetError{From: from, Target: target, Label: label}
	}

	next, err := v.construct(ctx, outcome.Income(), &r.data)
	if err != nil {
		return StepResult{}, annotate(err, from, label)
	}

	prev := r.state
	r.state = next
	r.stateID.Store(string(target))
	r.release(ctx, from, prev)

	r.machine.logger.StateEntered(ctx, target, label)

	return StepResult{Kind: StepTransitioned, From: from, To: target, Label: label}, nil
}

func (r *Runner[D]) halt() {
	r.state = nil
	r.stateID.Store(string(Terminal))
	r.halted.Store(true)
}

// release closes a discarded state when it holds resources.
func (r *Runner[D]) release(ctx context.Context, id ID, prev active[D]) {
	if prev == nil {
		return
	}

	closer, ok := prev.instance().(io.Closer)
	if !ok {
		return
	}

	err := closer.Close()
	if err != nil {
		r.machine.logger.StateCloseFailed(ctx, id, err)
		r.observeCloseError(id)
	}
}

func (r *Runner[D]) startFailed(ctx context.Context, id ID, err error) error {
	r.machine.logger.StepFailed(ctx, id, err)
	r.observeError(id, err)

	return err
}

// annotate fills in the source side of errors produced by a constructor.
func annotate(err error, from ID, label string) error {
	var mismatch *IncomeTypeMismatchError
	if errors.As(err, &mismatch) {
		mismatch.From = from
		mismatch.Label = label
	}

	return err
}

func terminalMismatch(from ID, label string, income any) error {
	return &IncomeTypeMismatchError{
		From:     from,
		Target:   Terminal,
		Label:    label,
		Expected: terminalIncome,
		Actual:   reflect.TypeOf(income),
		Received: income,
	}
}
