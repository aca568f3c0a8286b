package fsm

import (
	"context"
	"reflect"
)

// State is one behavior of a machine over shared data D. Step is called once
// per driver iteration while the state is active and may freely mutate data.
// T is the state's own transition vocabulary.
//
// A state that also implements io.Closer is closed when the runner leaves it.
type State[D any, T IntoOutcome] interface {
	Step(ctx context.Context, data *D) T
}

// Constructor builds a state from its income. It runs exactly once per entry
// into the state and should treat data as read-only. A non-nil error rejects
// the income and surfaces as a ConstructionError.
type Constructor[D, I any, T IntoOutcome] func(ctx context.Context, income I, data *D) (State[D, T], error)

// StepFunc adapts a plain function to State.
type StepFunc[D any, T IntoOutcome] func(ctx context.Context, data *D) T

// Step calls f.
func (f StepFunc[D, T]) Step(ctx context.Context, data *D) T {
	return f(ctx, data)
}

// Register adds a state variant to the builder under ref.
// The constructor's signature is spelled out rather than using Constructor so
// that D, I and T are inferred from a plain function value.
func Register[D, I any, T IntoOutcome](
	b *Builder[D],
	ref Ref[I],
	construct func(ctx context.Context, income I, data *D) (State[D, T], error),
) *Builder[D] {
	if construct == nil {
		b.fail(ref.id, ErrNilConstructor)

		return b
	}

	v := &variant[D]{
		id:     ref.id,
		income: reflect.TypeFor[I](),
		accepts: func(income any) bool {
			_, ok := income.(I)

			return ok
		},
	}

	v.construct = func(ctx context.Context, income any, data *D) (active[D], error) {
		typed, ok := income.(I)
		if !ok {
			return nil, v.mismatch(income)
		}

		state, err := construct(ctx, typed, data)
		if err != nil {
			return nil, &ConstructionError{Target: ref.id, Err: err}
		}

		if state == nil {
			return nil, &ConstructionError{Target: ref.id, Err: ErrNilConstructor}
		}

		return &erased[D, T]{state: state}, nil
	}

	b.add(v)

	return b
}

// RegisterFunc registers a stateless variant whose step ignores its income.
func RegisterFunc[D, I any, T IntoOutcome](
	b *Builder[D],
	ref Ref[I],
	step func(ctx context.Context, data *D) T,
) *Builder[D] {
	if step == nil {
		b.fail(ref.id, ErrNilConstructor)

		return b
	}

	return Register(b, ref, func(context.Context, I, *D) (State[D, T], error) {
		return StepFunc[D, T](step), nil
	})
}

// variant is the erased construction recipe for one registered state.
type variant[D any] struct {
	id        ID
	income    reflect.Type
	accepts   func(income any) bool
	construct func(ctx context.Context, income any, data *D) (active[D], error)
}

// mismatch builds the error returned when income is not accepted.
func (v *variant[D]) mismatch(income any) *IncomeTypeMismatchError {
	return &IncomeTypeMismatchError{
		Target:   v.id,
		Expected: v.income,
		Actual:   reflect.TypeOf(income),
		Received: income,
	}
}

// active is an erased, constructed state.
type active[D any] interface {
	step(ctx context.Context, data *D) (Outcome, bool)
	instance() any
}

type erased[D any, T IntoOutcome] struct {
	state State[D, T]
}

// step returns false when the state produced a nil transition.
func (e *erased[D, T]) step(ctx context.Context, data *D) (Outcome, bool) {
	transition := e.state.Step(ctx, data)

	if isNil(transition) {
		return Outcome{}, false
	}

	return transition.IntoOutcome(), true
}

func (e *erased[D, T]) instance() any {
	return e.state
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive // Only nillable kinds matter here
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
