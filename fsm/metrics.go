package fsm

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric outcome constants.
const (
	outcomeSuccess   = "success"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

// Metric definitions with appropriate labels.
var (
	// stepsTotal counts steps by machine, state and step kind (or "error").
	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_steps_total",
		Help: "Total number of steps by machine, state, and result (continue, transition, complete or error)",
	}, []string{"machine", "state", "result"})

	// transitionsTotal counts state changes, including completion.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_transitions_total",
		Help: "Total number of state transitions by machine, from_state and to_state",
	}, []string{"machine", "from_state", "to_state"})

	// errorsTotal counts driver errors by kind.
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_errors_total",
		Help: "Total number of driver errors by machine, state, and kind",
	}, []string{"machine", "state", "kind"})

	// closeErrorsTotal counts failures to release a discarded state.
	closeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_state_close_errors_total",
		Help: "Total number of errors returned while closing a discarded state",
	}, []string{"machine", "state"})

	// stepDuration tracks how long a single step takes.
	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fsm_step_duration_seconds",
		Help:    "Duration of a single step by machine and state",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"machine", "state"})

	// runDuration tracks end-to-end Run time.
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fsm_run_duration_seconds",
		Help:    "Duration of a run by machine and outcome",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"machine", "outcome"})

	// runnersActive tracks runners currently inside Run.
	runnersActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fsm_runners_active",
		Help: "Number of runners currently executing Run by machine",
	}, []string{"machine"})
)

func (r *Runner[D]) metricsEnabled() bool {
	return r.machine.config.Metrics
}

func (r *Runner[D]) observeStepMetrics(from ID, result StepResult) {
	if !r.metricsEnabled() {
		return
	}

	machine := sanitizeMachine(r.machine.Name())

	stepsTotal.WithLabelValues(machine, sanitizeState(from), result.Kind.String()).Inc()
	stepDuration.WithLabelValues(machine, sanitizeState(from)).Observe(result.Duration.Seconds())

	if result.Notable() {
		transitionsTotal.WithLabelValues(machine, sanitizeState(from), sanitizeState(result.To)).Inc()
	}
}

func (r *Runner[D]) observeError(state ID, err error) {
	if !r.metricsEnabled() {
		return
	}

	machine := sanitizeMachine(r.machine.Name())

	stepsTotal.WithLabelValues(machine, sanitizeState(state), outcomeError).Inc()
	errorsTotal.WithLabelValues(machine, sanitizeState(state), errorKind(err)).Inc()
}

func (r *Runner[D]) observeCloseError(state ID) {
	if !r.metricsEnabled() {
		return
	}

	closeErrorsTotal.WithLabelValues(sanitizeMachine(r.machine.Name()), sanitizeState(state)).Inc()
}

func (r *Runner[D]) runStarted() {
	if !r.metricsEnabled() {
		return
	}

	runnersActive.WithLabelValues(sanitizeMachine(r.machine.Name())).Inc()
}

func (r *Runner[D]) runFinished(ctx context.Context, duration time.Duration, err error) {
	r.machine.logger.RunFinished(ctx, duration, r.Steps(), err)

	if !r.metricsEnabled() {
		return
	}

	machine := sanitizeMachine(r.machine.Name())

	runnersActive.WithLabelValues(machine).Dec()
	runDuration.WithLabelValues(machine, runOutcome(err)).Observe(duration.Seconds())
}

func runOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCancelled
	default:
		return outcomeError
	}
}

// Helper functions for label sanitization.
func sanitizeMachine(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}

func sanitizeState(id ID) string {
	if id == "" {
		return "none"
	}

	return string(id)
}
