package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every clipkit span.
const TracerName = "clipkit"

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartSessionSpan starts a span around session initialization or handoff.
	StartSessionSpan(ctx context.Context, op, sessionID string) (context.Context, trace.Span)

	// StartDispatchSpan starts a span for one activation URL.
	StartDispatchSpan(ctx context.Context, rawURL string) (context.Context, trace.Span)

	// StartFlushSpan starts a span for a sink delivery.
	StartFlushSpan(ctx context.Context, events int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using the global tracer provider.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// Spans come from the global OTel tracer provider at start time.
// Configure the provider first:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

func (otelSpanManager) StartSessionSpan(ctx context.Context, op, sessionID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "clipkit.session."+op,
		trace.WithAttributes(attribute.String("session.id", sessionID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) StartDispatchSpan(ctx context.Context, rawURL string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "clipkit.dispatch",
		trace.WithAttributes(attribute.String("url.full", rawURL)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) StartFlushSpan(ctx context.Context, events int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "clipkit.flush",
		trace.WithAttributes(attribute.Int("events", events)),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
