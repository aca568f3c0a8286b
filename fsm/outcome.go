package fsm

import "fmt"

// ID identifies a state variant within a machine.
type ID string

// Terminal is the reserved id of the halting state. Its income is struct{}.
// Switching to Terminal stops the machine; it can never be registered.
const Terminal ID = "(terminal)"

func (id ID) String() string {
	return string(id)
}

type outcomeKind uint8

const (
	outcomeContinue outcomeKind = iota
	outcomeSwitch
)

// Outcome is the type-erased decision produced by a step: either stay in the
// active state, or switch to a target state carrying that state's income.
//
// The zero value is a Continue outcome.
type Outcome struct {
	kind   outcomeKind
	target ID
	income any
	label  string
}

// IntoOutcome is implemented by every transition type a state may return.
// It maps a state's own transition vocabulary onto an Outcome.
type IntoOutcome interface {
	IntoOutcome() Outcome
}

// IntoOutcome returns the outcome itself, so states with a single shape of
// transition can use Outcome directly.
func (o Outcome) IntoOutcome() Outcome {
	return o
}

// Continue keeps the active state.
func Continue() Outcome {
	return Outcome{kind: outcomeContinue}
}

// Stay is an alias of Continue that reads better in state code.
func Stay() Outcome {
	return Continue()
}

// Switch moves to target, handing it income. The income must have exactly the
// type the target registered with, otherwise the step fails with an
// IncomeTypeMismatchError.
func Switch(target ID, income any) Outcome {
	return Outcome{
		kind:   outcomeSwitch,
		target: target,
		income: income,
	}
}

// Complete switches to the terminal state.
func Complete() Outcome {
	return Switch(Terminal, struct{}{})
}

// Named returns a copy of the outcome carrying a transition label. Labels are
// only used for logs, spans and errors.
func (o Outcome) Named(label string) Outcome {
	o.label = label

	return o
}

// IsContinue reports whether the outcome keeps the active state.
func (o Outcome) IsContinue() bool {
	return o.kind == outcomeContinue
}

// Target returns the id the outcome switches to. It is empty for Continue.
func (o Outcome) Target() ID {
	if o.kind == outcomeContinue {
		return ""
	}

	return o.target
}

// Income returns the erased payload handed to the target.
func (o Outcome) Income() any {
	return o.income
}

// Label returns the transition label, falling back to a generated one.
func (o Outcome) Label() string {
	if o.label != "" {
		return o.label
	}

	switch {
	case o.kind == outcomeContinue:
		return "continue"
	case o.target == Terminal:
		return "complete"
	default:
		return "switch"
	}
}

func (o Outcome) String() string {
	if o.kind == outcomeContinue {
		return "Continue[" + o.Label() + "]"
	}

	return fmt.Sprintf("Switch[%s](%s, %T)", o.Label(), o.target, o.income)
}

// Ref is a typed reference to a state variant: its id plus the income type
// its constructor accepts. Building outcomes through a Ref keeps the payload
// type in step with the registration at compile time.
type Ref[I any] struct {
	id ID
}

// NewRef returns a reference to the state registered under id.
func NewRef[I any](id ID) Ref[I] {
	return Ref[I]{id: id}
}

// ID returns the referenced state id.
func (r Ref[I]) ID() ID {
	return r.id
}

// With returns a switch to the referenced state carrying income.
func (r Ref[I]) With(income I) Outcome {
	return Switch(r.id, income)
}

// Start pairs the reference with the income used to start a runner.
func (r Ref[I]) Start(income I) Entry {
	return Entry{ID: r.id, Income: income}
}

// Entry is an untyped (id, income) pair used to start a runner.
type Entry struct {
	ID     ID
	Income any
}
