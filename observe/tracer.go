package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OpMeta describes one dispatch operation for telemetry purposes.
type OpMeta struct {
	Component string // dispatch component (route, webhook, resilience)
	Operation string // operation name (route, deliver, retry, ...)
	RequestID string // request or task id (optional)
	Strategy  string // balancing strategy (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: dispatch.<component>.<operation>
func (m OpMeta) SpanName() string {
	return "dispatch." + m.Component + "." + m.Operation
}

// Tracer wraps OpenTelemetry tracing with dispatch-specific span
// management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a dispatch operation.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// NewNoopTracer creates a tracer that records nothing.
func NewNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

type tracerImpl struct {
	tracer trace.Tracer
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("dispatch.component", meta.Component),
		attribute.String("dispatch.operation", meta.Operation),
	}
	if meta.RequestID != "" {
		attrs = append(attrs, attribute.String("dispatch.request_id", meta.RequestID))
	}
	if meta.Strategy != "" {
		attrs = append(attrs, attribute.String("dispatch.strategy", meta.Strategy))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
