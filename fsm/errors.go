package fsm

import (
	"errors"
	"fmt"
	"reflect"
)

// Structural errors surfaced by the driver.
var (
	// ErrUnknownTarget indicates that an outcome named a state that is not registered.
	ErrUnknownTarget = errors.New("unknown target state")
	// ErrIncomeTypeMismatch indicates that an outcome carried a payload of the wrong type.
	ErrIncomeTypeMismatch = errors.New("income type mismatch")
	// ErrConstruction indicates that a state's constructor rejected its income.
	ErrConstruction = errors.New("state construction failed")
	// ErrNilOutcome indicates that a state's step returned a nil transition.
	ErrNilOutcome = errors.New("state returned a nil transition")
	// ErrHalted indicates that the runner already reached the terminal state.
	ErrHalted = errors.New("state machine has halted")
	// ErrStepLimit indicates that a run exceeded its configured step budget.
	ErrStepLimit = errors.New("step limit exceeded")
)

// Builder and configuration errors.
var (
	// ErrMachineNameRequired indicates that a machine name is required.
	ErrMachineNameRequired = errors.New("machine name is required")
	// ErrEmptyStateID indicates that a state was registered without an id.
	ErrEmptyStateID = errors.New("state id is required")
	// ErrReservedState indicates an attempt to register the terminal id.
	ErrReservedState = errors.New("state id is reserved")
	// ErrDuplicateState indicates that a state id was registered twice.
	ErrDuplicateState = errors.New("duplicate state id")
	// ErrNilConstructor indicates that a state was registered without a constructor.
	ErrNilConstructor = errors.New("state constructor is nil")
	// ErrNoStates indicates that a machine was built with no states.
	ErrNoStates = errors.New("at least one state is required")
	// ErrInvalidConfig indicates that a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UnknownTargetError reports a switch to an id that the machine does not know.
type UnknownTargetError struct {
	From   ID
	Target ID
	Label  string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("%s --[%s]--> %s: %v", e.From, e.Label, e.Target, ErrUnknownTarget)
}

func (e *UnknownTargetError) Is(target error) bool {
	return target == ErrUnknownTarget
}

// IncomeTypeMismatchError reports a switch whose payload does not have the
// income type declared by the target state.
type IncomeTypeMismatchError struct {
	From     ID
	Target   ID
	Label    string
	Expected reflect.Type
	Actual   reflect.Type
	// Received is the rejected payload, kept for diagnostics.
	Received any
}

func (e *IncomeTypeMismatchError) Error() string {
	return fmt.Sprintf("%s --[%s!]--> %s: %v: expected %s, got %s",
		e.From, e.Label, e.Target, ErrIncomeTypeMismatch, typeName(e.Expected), typeName(e.Actual))
}

func (e *IncomeTypeMismatchError) Is(target error) bool {
	return target == ErrIncomeTypeMismatch
}

// ConstructionError wraps the cause returned by a state's constructor.
type ConstructionError struct {
	Target ID
	Err    error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct %s: %v", e.Target, e.Err)
}

func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstruction
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// StateError wraps an error with the id of the state that was active.
type StateError struct {
	State ID
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// WrapStateError wraps an error with state context.
func WrapStateError(state ID, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{
		State: state,
		Err:   err,
	}
}

// errorKind maps a driver error to a low-cardinality metric label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownTarget):
		return "unknown_target"
	case errors.Is(err, ErrIncomeTypeMismatch):
		return "income_type_mismatch"
	case errors.Is(err, ErrConstruction):
		return "construction"
	case errors.Is(err, ErrNilOutcome):
		return "nil_outcome"
	case errors.Is(err, ErrStepLimit):
		return "step_limit"
	case errors.Is(err, ErrHalted):
		return "halted"
	default:
		return "other"
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	return t.String()
}
