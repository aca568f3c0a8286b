package fsm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/amp-labs/amp-fsm/fsm"

// startRunSpan creates the root span for a run.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func (r *Runner[D]) startRunSpan(ctx context.Context) (context.Context, trace.Span) {
	if !r.machine.config.Tracing {
		return ctx, noop.Span{}
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "fsm.run")
	span.SetAttributes(
		attribute.String("machine", r.machine.Name()),
		attribute.String("runner_id", r.id.String()),
		attribute.String("state", string(r.Active())),
	)

	return ctx, span
}

// startStepSpan creates a child span for a single step.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func (r *Runner[D]) startStepSpan(ctx context.Context, state ID) (context.Context, trace.Span) {
	if !r.machine.config.Tracing {
		return ctx, noop.Span{}
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "fsm.step")
	span.SetAttributes(
		attribute.String("machine", r.machine.Name()),
		attribute.String("runner_id", r.id.String()),
		attribute.String("state", string(state)),
		attribute.Int64("step", r.Steps()),
	)

	return ctx, span
}

// endSpan records the error (if any) and ends the span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", errorKind(err)))
	} else {
		span.SetStatus(codes.Ok, "completed")
	}

	span.End()
}
