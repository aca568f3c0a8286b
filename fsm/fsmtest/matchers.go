package fsmtest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/require"
)

// Matcher errors.
var (
	ErrNoExecutionTrace   = errors.New("no execution trace available")
	ErrStateNotVisited    = errors.New("state was not visited")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrNotCompleted       = errors.New("machine did not complete")
	ErrFailureNotRecorded = errors.New("expected failure was not recorded")
	ErrUnexpectedFailure  = errors.New("unexpected failure recorded")
)

// Matcher defines an assertion over a recorded trace.
type Matcher interface {
	Match(rec *Recorder) (bool, error)
	Description() string
}

// StateWasVisited matches when id was entered at least once.
func StateWasVisited(id fsm.ID) Matcher {
	return &stateVisitedMatcher{id: id}
}

type stateVisitedMatcher struct {
	id fsm.ID
}

func (m *stateVisitedMatcher) Match(rec *Recorder) (bool, error) {
	for _, entry := range rec.Trace() {
		if entry.Event == EventEntered && entry.State == m.id {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: '%s'", ErrStateNotVisited, m.id)
}

func (m *stateVisitedMatcher) Description() string {
	return fmt.Sprintf("state '%s' should be visited", m.id)
}

// TransitionWasTaken matches when the runner moved from one state to another.
// Use fsm.Terminal as to for completion.
func TransitionWasTaken(from, to fsm.ID) Matcher {
	return &transitionTakenMatcher{from: from, to: to}
}

type transitionTakenMatcher struct {
	from fsm.ID
	to   fsm.ID
}

func (m *transitionTakenMatcher) Match(rec *Recorder) (bool, error) {
	for _, entry := range rec.Trace() {
		if entry.Event != EventTransitioned && entry.Event != EventCompleted {
			continue
		}

		if entry.State == m.from && entry.To == m.to {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: from '%s' to '%s'", ErrTransitionNotTaken, m.from, m.to)
}

func (m *transitionTakenMatcher) Description() string {
	return fmt.Sprintf("transition from '%s' to '%s' should be taken", m.from, m.to)
}

// CompletedFrom matches when the machine halted from id.
func CompletedFrom(id fsm.ID) Matcher {
	return &completedMatcher{from: id}
}

// Completed matches when the machine halted from any state.
func Completed() Matcher {
	return &completedMatcher{}
}

type completedMatcher struct {
	from fsm.ID
}

func (m *completedMatcher) Match(rec *Recorder) (bool, error) {
	trace := rec.Trace()
	if len(trace) == 0 {
		return false, ErrNoExecutionTrace
	}

	for _, entry := range trace {
		if entry.Event == EventCompleted && (m.from == "" || entry.State == m.from) {
			return true, nil
		}
	}

	if m.from == "" {
		return false, ErrNotCompleted
	}

	return false, fmt.Errorf("%w from '%s'", ErrNotCompleted, m.from)
}

func (m *completedMatcher) Description() string {
	if m.from == "" {
		return "machine should complete"
	}

	return fmt.Sprintf("machine should complete from '%s'", m.from)
}

// FailedWith matches when a recorded failure wraps target.
func FailedWith(target error) Matcher {
	return &failedWithMatcher{target: target}
}

type failedWithMatcher struct {
	target error
}

func (m *failedWithMatcher) Match(rec *Recorder) (bool, error) {
	for _, err := range rec.Errors() {
		if errors.Is(err, m.target) {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: %w", ErrFailureNotRecorded, m.target)
}

func (m *failedWithMatcher) Description() string {
	return fmt.Sprintf("a step should fail with %v", m.target)
}

// NoFailures matches when no step failed.
func NoFailures() Matcher {
	return noFailuresMatcher{}
}

type noFailuresMatcher struct{}

func (noFailuresMatcher) Match(rec *Recorder) (bool, error) {
	errs := rec.Errors()
	if len(errs) == 0 {
		return true, nil
	}

	return false, fmt.Errorf("%w: %w", ErrUnexpectedFailure, errs[0])
}

func (noFailuresMatcher) Description() string {
	return "no step should fail"
}

// AssertAll requires every matcher to pass.
func AssertAll(t testing.TB, rec *Recorder, matchers ...Matcher) {
	t.Helper()

	for _, matcher := range matchers {
		ok, err := matcher.Match(rec)
		require.NoError(t, err, matcher.Description())
		require.True(t, ok, matcher.Description())
	}
}
