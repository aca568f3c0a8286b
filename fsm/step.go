package fsm

import (
	"fmt"
	"time"
)

// StepKind classifies what a successful step did.
type StepKind uint8

const (
	// StepContinued means the active state was kept.
	StepContinued StepKind = iota
	// StepTransitioned means a new state was constructed and is now active.
	StepTransitioned
	// StepCompleted means the machine reached the terminal state.
	StepCompleted
)

func (k StepKind) String() string {
	switch k {
	case StepContinued:
		return "continue"
	case StepTransitioned:
		return "transition"
	case StepCompleted:
		return "complete"
	default:
		return fmt.Sprintf("StepKind(%d)", uint8(k))
	}
}

// StepResult describes one successful step.
type StepResult struct {
	Kind     StepKind
	From     ID
	To       ID
	Label    string
	Duration time.Duration
}

// Notable reports whether the step changed the active state.
func (r StepResult) Notable() bool {
	return r.Kind != StepContinued
}

func (r StepResult) String() string {
	switch r.Kind {
	case StepContinued:
		return fmt.Sprintf("%s --[%s]--> %s", r.From, r.Label, r.From)
	case StepCompleted:
		return fmt.Sprintf("%s --[%s]--> END", r.From, r.Label)
	default:
		return fmt.Sprintf("%s --[%s]--> %s", r.From, r.Label, r.To)
	}
}
