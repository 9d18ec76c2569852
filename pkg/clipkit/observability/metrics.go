package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of every clipkit instrument.
const MeterName = "clipkit"

// MetricsRecorder records clipkit metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records one processed activation URL and its outcome.
	RecordDispatch(ctx context.Context, segment, outcome string)

	// RecordHandler records handler latency once it completes.
	RecordHandler(ctx context.Context, segment string, duration time.Duration, err error)

	// RecordFlush records a sink delivery attempt.
	RecordFlush(ctx context.Context, events int, err error)

	// RecordDropped records events evicted by the capacity policy.
	RecordDropped(ctx context.Context, n int)

	// RecordFunnel records a funnel reaching a terminal state.
	RecordFunnel(ctx context.Context, funnel, outcome string)

	// RecordStoreOp records a vault operation.
	RecordStoreOp(ctx context.Context, op string, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatches     metric.Int64Counter
	handlerLatency metric.Float64Histogram
	handlerErrors  metric.Int64Counter
	flushes        metric.Int64Counter
	flushedEvents  metric.Int64Histogram
	dropped        metric.Int64Counter
	funnels        metric.Int64Counter
	storeOps       metric.Int64Counter
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter(MeterName)
	m := &otelMetrics{}
	var err error

	if m.dispatches, err = meter.Int64Counter("clipkit.route.dispatches",
		metric.WithDescription("Activation URLs processed, by outcome"),
	); err != nil {
		return nil, err
	}
	if m.handlerLatency, err = meter.Float64Histogram("clipkit.route.handler.latency_ms",
		metric.WithDescription("Route handler latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.handlerErrors, err = meter.Int64Counter("clipkit.route.handler.errors",
		metric.WithDescription("Route handler failures"),
	); err != nil {
		return nil, err
	}
	if m.flushes, err = meter.Int64Counter("clipkit.analytics.flushes",
		metric.WithDescription("Sink deliveries, by success"),
	); err != nil {
		return nil, err
	}
	if m.flushedEvents, err = meter.Int64Histogram("clipkit.analytics.batch_size",
		metric.WithDescription("Events per delivered batch"),
	); err != nil {
		return nil, err
	}
	if m.dropped, err = meter.Int64Counter("clipkit.analytics.dropped",
		metric.WithDescription("Events evicted by the buffer capacity policy"),
	); err != nil {
		return nil, err
	}
	if m.funnels, err = meter.Int64Counter("clipkit.analytics.funnels",
		metric.WithDescription("Funnels reaching a terminal state, by outcome"),
	); err != nil {
		return nil, err
	}
	if m.storeOps, err = meter.Int64Counter("clipkit.vault.operations",
		metric.WithDescription("Vault operations, by op and success"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// Instruments are created from the global OTel meter provider at call time.
// Configure the provider first:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := newOtelMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordDispatch(ctx context.Context, segment, outcome string) {
	m.dispatches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("segment", segment),
		attribute.String("outcome", outcome),
	))
}

func (m *otelMetrics) RecordHandler(ctx context.Context, segment string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("segment", segment))
	m.handlerLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.handlerErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordFlush(ctx context.Context, events int, err error) {
	m.flushes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
	if err == nil {
		m.flushedEvents.Record(ctx, int64(events))
	}
}

func (m *otelMetrics) RecordDropped(ctx context.Context, n int) {
	m.dropped.Add(ctx, int64(n))
}

func (m *otelMetrics) RecordFunnel(ctx context.Context, funnel, outcome string) {
	m.funnels.Add(ctx, 1, metric.WithAttributes(
		attribute.String("funnel", funnel),
		attribute.String("outcome", outcome),
	))
}

func (m *otelMetrics) RecordStoreOp(ctx context.Context, op string, err error) {
	m.storeOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("success", err == nil),
	))
}
