package fsm

import (
	"context"
	"log/slog"
	"time"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// runnerLabelsKey is the key used to store runner labels in Go context.
const runnerLabelsKey contextKey = "fsm_runner_labels"

// Logger provides logging hooks for machine execution.
type Logger interface {
	StateEntered(ctx context.Context, state ID, label string)
	StepContinued(ctx context.Context, state ID, label string)
	TransitionExecuted(ctx context.Context, from ID, label string, to ID, duration time.Duration)
	MachineCompleted(ctx context.Context, from ID, label string, steps int64)
	StepFailed(ctx context.Context, state ID, err error)
	StateCloseFailed(ctx context.Context, state ID, err error)
	RunFinished(ctx context.Context, duration time.Duration, steps int64, err error)
}

// ObservabilityLabels identifies the runner a log line or span belongs to.
type ObservabilityLabels struct {
	Machine  string
	RunnerID string
	Active   ID
	Steps    int64
}

type labelSource interface {
	labels() ObservabilityLabels
}

// GetObservabilityLabels extracts runner labels from the context. It returns
// empty labels when the context was not produced by a runner.
func GetObservabilityLabels(ctx context.Context) ObservabilityLabels {
	src, ok := ctx.Value(runnerLabelsKey).(labelSource)
	if !ok || src == nil {
		return ObservabilityLabels{}
	}

	return src.labels()
}

func (r *Runner[D]) labels() ObservabilityLabels {
	return ObservabilityLabels{
		Machine:  r.machine.Name(),
		RunnerID: r.id.String(),
		Active:   r.Active(),
		Steps:    r.Steps(),
	}
}

func (r *Runner[D]) withLabels(ctx context.Context) context.Context {
	if src, ok := ctx.Value(runnerLabelsKey).(labelSource); ok && src == labelSource(r) {
		return ctx
	}

	return context.WithValue(ctx, runnerLabelsKey, labelSource(r))
}

// DefaultLogger implements Logger using slog. Notable steps are logged at
// info level, continues at debug level.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger backed by slog.Default.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		logger: slog.Default(),
	}
}

// NewSlogLogger creates a logger backed by the given slog logger.
func NewSlogLogger(logger *slog.Logger) *DefaultLogger {
	if logger == nil {
		return NewDefaultLogger()
	}

	return &DefaultLogger{
		logger: logger,
	}
}

func (l *DefaultLogger) fields(ctx context.Context, extra ...any) []any {
	labels := GetObservabilityLabels(ctx)
	if labels.RunnerID == "" {
		return extra
	}

	return append([]any{
		"machine", labels.Machine,
		"runner_id", labels.RunnerID,
		"steps", labels.Steps,
	}, extra...)
}

func (l *DefaultLogger) StateEntered(ctx context.Context, state ID, label string) {
	l.logger.InfoContext(ctx, "State entered", l.fields(ctx,
		"state", state,
		"transition", label,
	)...)
}

func (l *DefaultLogger) StepContinued(ctx context.Context, state ID, label string) {
	l.logger.DebugContext(ctx, "Step continued", l.fields(ctx,
		"state", state,
		"transition", label,
	)...)
}

func (l *DefaultLogger) TransitionExecuted(
	ctx context.Context, from ID, label string, to ID, duration time.Duration,
) {
	l.logger.InfoContext(ctx, "Transition executed", l.fields(ctx,
		"from", from,
		"transition", label,
		"to", to,
		"duration_ms", duration.Milliseconds(),
	)...)
}

func (l *DefaultLogger) MachineCompleted(ctx context.Context, from ID, label string, steps int64) {
	l.logger.InfoContext(ctx, "Machine completed", l.fields(ctx,
		"from", from,
		"transition", label,
		"total_steps", steps,
	)...)
}

func (l *DefaultLogger) StepFailed(ctx context.Context, state ID, err error) {
	l.logger.ErrorContext(ctx, "Step failed", l.fields(ctx,
		"state", state,
		"error", err,
	)...)
}

func (l *DefaultLogger) StateCloseFailed(ctx context.Context, state ID, err error) {
	l.logger.WarnContext(ctx, "Closing state failed", l.fields(ctx,
		"state", state,
		"error", err,
	)...)
}

func (l *DefaultLogger) RunFinished(ctx context.Context, duration time.Duration, steps int64, err error) {
	if err != nil {
		l.logger.ErrorContext(ctx, "Run stopped", l.fields(ctx,
			"duration_ms", duration.Milliseconds(),
			"total_steps", steps,
			"error", err,
		)...)

		return
	}

	l.logger.InfoContext(ctx, "Run finished", l.fields(ctx,
		"duration_ms", duration.Milliseconds(),
		"total_steps", steps,
	)...)
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) StateEntered(context.Context, ID, string)                          {}
func (NopLogger) StepContinued(context.Context, ID, string)                         {}
func (NopLogger) TransitionExecuted(context.Context, ID, string, ID, time.Duration) {}
func (NopLogger) MachineCompleted(context.Context, ID, string, int64)               {}
func (NopLogger) StepFailed(context.Context, ID, error)                             {}
func (NopLogger) StateCloseFailed(context.Context, ID, error)                       {}
func (NopLogger) RunFinished(context.Context, time.Duration, int64, error)          {}

// observeStep reports a finished step to the logger and metrics.
func (r *Runner[D]) observeStep(ctx context.Context, from ID, result StepResult, err error) {
	if err != nil {
		r.machine.logger.StepFailed(ctx, from, err)
		r.observeError(from, err)

		return
	}

	switch result.Kind {
	case StepContinued:
		r.machine.logger.StepContinued(ctx, from, result.Label)
	case StepTransitioned:
		r.machine.logger.TransitionExecuted(ctx, from, result.Label, result.To, result.Duration)
	case StepCompleted:
		r.machine.logger.MachineCompleted(ctx, from, result.Label, r.Steps())
	}

	r.observeStepMetrics(from, result)
}
