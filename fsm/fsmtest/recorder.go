// Package fsmtest provides testing utilities for machines built with package fsm.
package fsmtest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Event names a kind of trace entry.
type Event string

const (
	EventEntered      Event = "entered"
	EventContinued    Event = "continued"
	EventTransitioned Event = "transitioned"
	EventCompleted    Event = "completed"
	EventFailed       Event = "failed"
	EventCloseFailed  Event = "close_failed"
	EventFinished     Event = "finished"
)

// TraceEntry records a single logger callback.
type TraceEntry struct {
	Timestamp time.Time
	Event     Event
	RunnerID  string
	State     fsm.ID
	To        fsm.ID
	Label     string
	Steps     int64
	Duration  time.Duration
	Err       error
}

// Recorder is an fsm.Logger that keeps an execution trace. It is safe for use
// by several runners at once; entries carry the runner id.
type Recorder struct {
	mu    sync.Mutex
	trace []TraceEntry
	next  fsm.Logger
}

var _ fsm.Logger = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		trace: make([]TraceEntry, 0),
		next:  fsm.NopLogger{},
	}
}

// Forward sends every event to next after recording it.
func (r *Recorder) Forward(next fsm.Logger) *Recorder {
	if next == nil {
		next = fsm.NopLogger{}
	}

	r.mu.Lock()
	r.next = next
	r.mu.Unlock()

	return r
}

// Trace returns a copy of the recorded entries.
func (r *Recorder) Trace() []TraceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.trace)
}

// Visited returns the entered states in order, including the start state.
func (r *Recorder) Visited() []fsm.ID {
	var visited []fsm.ID

	for _, entry := range r.Trace() {
		if entry.Event == EventEntered {
			visited = append(visited, entry.State)
		}
	}

	return visited
}

// Errors returns every failure recorded.
func (r *Recorder) Errors() []error {
	var errs []error

	for _, entry := range r.Trace() {
		if entry.Event == EventFailed {
			errs = append(errs, entry.Err)
		}
	}

	return errs
}

// Reset clears the trace.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trace = r.trace[:0]
}

func (r *Recorder) record(ctx context.Context, entry TraceEntry) fsm.Logger {
	labels := fsm.GetObservabilityLabels(ctx)

	entry.Timestamp = time.Now()
	entry.RunnerID = labels.RunnerID

	if entry.Steps == 0 {
		entry.Steps = labels.Steps
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.trace = append(r.trace, entry)

	return r.next
}

func (r *Recorder) StateEntered(ctx context.Context, state fsm.ID, label string) {
	r.record(ctx, TraceEntry{Event: EventEntered, State: state, Label: label}).
		StateEntered(ctx, state, label)
}

func (r *Recorder) StepContinued(ctx context.Context, state fsm.ID, label string) {
	r.record(ctx, TraceEntry{Event: EventContinued, State: state, To: state, Label: label}).
		StepContinued(ctx, state, label)
}

func (r *Recorder) TransitionExecuted(
	ctx context.Context, from fsm.ID, label string, to fsm.ID, duration time.Duration,
) {
	r.record(ctx, TraceEntry{Event: EventTransitioned, State: from, To: to, Label: label, Duration: duration}).
		TransitionExecuted(ctx, from, label, to, duration)
}

func (r *Recorder) MachineCompleted(ctx context.Context, from fsm.ID, label string, steps int64) {
	r.record(ctx, TraceEntry{Event: EventCompleted, State: from, To: fsm.Terminal, Label: label, Steps: steps}).
		MachineCompleted(ctx, from, label, steps)
}

func (r *Recorder) StepFailed(ctx context.Context, state fsm.ID, err error) {
	r.record(ctx, TraceEntry{Event: EventFailed, State: state, Err: err}).
		StepFailed(ctx, state, err)
}

func (r *Recorder) StateCloseFailed(ctx context.Context, state fsm.ID, err error) {
	r.record(ctx, TraceEntry{Event: EventCloseFailed, State: state, Err: err}).
		StateCloseFailed(ctx, state, err)
}

func (r *Recorder) RunFinished(ctx context.Context, duration time.Duration, steps int64, err error) {
	r.record(ctx, TraceEntry{Event: EventFinished, Duration: duration, Steps: steps, Err: err}).
		RunFinished(ctx, duration, steps, err)
}
