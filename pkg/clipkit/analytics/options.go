package analytics

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/clipkit/pkg/clipkit/config"
	cerrors "github.com/randalmurphal/clipkit/pkg/clipkit/errors"
	"github.com/randalmurphal/clipkit/pkg/clipkit/observability"
)

// batcherConfig holds Batcher settings.
type batcherConfig struct {
	batchSize     int
	flushInterval time.Duration
	maxBuffer     int
	policy        Policy
	retry         cerrors.RetryConfig

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	now     func() time.Time
	newID   func() string
}

func defaultBatcherConfig() batcherConfig {
	d := config.Defaults()
	return batcherConfig{
		batchSize:     d.BatchSize,
		flushInterval: d.FlushInterval,
		maxBuffer:     DefaultMaxBuffer,
		policy:        PolicyFromSettings(d),
		retry:         cerrors.DefaultRetry,
		logger:        slog.Default(),
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// DefaultMaxBuffer is the buffer capacity before the oldest events are evicted.
const DefaultMaxBuffer = 1000

// Option configures a Batcher.
type Option func(*batcherConfig)

// WithBatchSize sets the buffered event count that triggers a flush.
// Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(c *batcherConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithFlushInterval sets the longest time events wait in the buffer.
// Values of zero or less are ignored.
func WithFlushInterval(d time.Duration) Option {
	return func(c *batcherConfig) {
		if d > 0 {
			c.flushInterval = d
		}
	}
}

// WithMaxBuffer sets the buffer capacity. Once full, each new event evicts
// the oldest buffered event that is not part of an in-flight flush.
func WithMaxBuffer(n int) Option {
	return func(c *batcherConfig) {
		if n > 0 {
			c.maxBuffer = n
		}
	}
}

// WithPolicy sets the privacy policy.
func WithPolicy(p Policy) Option {
	return func(c *batcherConfig) {
		c.policy = p
	}
}

// WithRetry sets how sink deliveries are retried. Only errors the errors
// package categorizes as transient are retried unless cfg says otherwise.
func WithRetry(cfg cerrors.RetryConfig) Option {
	return func(c *batcherConfig) {
		c.retry = cfg
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *batcherConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Defaults to no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *batcherConfig) {
		c.metrics = m
	}
}

// WithSpanManager sets the tracer. Defaults to no-op.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *batcherConfig) {
		c.spans = s
	}
}

// WithClock overrides the time source for event timestamps and funnel durations.
func WithClock(now func() time.Time) Option {
	return func(c *batcherConfig) {
		c.now = now
	}
}

// WithIDGenerator overrides event ID generation. Defaults to random UUIDs.
func WithIDGenerator(fn func() string) Option {
	return func(c *batcherConfig) {
		c.newID = fn
	}
}
