// Package telemetry provides OpenTelemetry span helpers for workflow
// execution: a span for one instance run and a span for a single step
// attempt. It defines no StepMiddleware, and the engine package does
// not open these spans itself.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Azure/go-workflow-engine/workflow"

// Tracer wraps an otel trace.Tracer, defaulting to the global tracer
// provider when none is supplied.
type Tracer struct {
	tracer trace.Tracer
}

func NewTracer(provider trace.TracerProvider) Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return Tracer{tracer: provider.Tracer(instrumentationName)}
}

// StartInstanceSpan opens a span covering one Executor.Run call.
func (t Tracer) StartInstanceSpan(ctx context.Context, workflowName, instanceID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "workflow.execute",
		trace.WithAttributes(
			attribute.String("workflow.name", workflowName),
			attribute.String("workflow.instance_id", instanceID),
		),
	)
}

// StartStepSpan opens a span covering a single step attempt.
func (t Tracer) StartStepSpan(ctx context.Context, stepID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "workflow.step",
		trace.WithAttributes(
			attribute.String("workflow.step_id", stepID),
			attribute.Int("workflow.attempt", attempt),
		),
	)
}

// RecordOutcome sets a span's status and, on failure, records the error
// as a span event.
func RecordOutcome(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
