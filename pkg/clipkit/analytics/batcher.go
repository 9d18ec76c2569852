package analytics

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/randalmurphal/clipkit/pkg/clipkit/config"
	cerrors "github.com/randalmurphal/clipkit/pkg/clipkit/errors"
	"github.com/randalmurphal/clipkit/pkg/clipkit/observability"
)

// Sink receives flushed batches. Send must not retain the slice.
type Sink interface {
	Send(ctx context.Context, events []Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, events []Event) error

// Send implements Sink.
func (f SinkFunc) Send(ctx context.Context, events []Event) error {
	return f(ctx, events)
}

// Stats are cumulative batcher counters.
type Stats struct {
	Tracked       int
	Flushed       int
	Dropped       int
	Buffered      int
	Flushes       int
	FailedFlushes int
}

// Batcher buffers events and hands them to a Sink in batches.
//
// A flush starts when the buffer reaches the batch size or when the flush
// interval has passed since the last flush. Events leave the buffer only
// after the sink accepts them, so a failed or canceled flush loses nothing
// and the next flush resends the same events. The only way an event is
// dropped is capacity eviction (see WithMaxBuffer). After a failed flush
// a full buffer no longer starts one; the next tick or an explicit Flush
// does, and a successful flush restores size triggering.
//
// Batcher is safe for concurrent use.
type Batcher struct {
	sink Sink
	cfg  batcherConfig

	mu       sync.Mutex
	buffer   []Event
	inflight int // length of the buffer prefix being delivered
	identity *Identity
	seq      uint64
	stats    Stats
	closed   bool
	failing  bool // last flush failed; size triggers wait for the next tick

	flushMu sync.Mutex

	trigger    chan struct{}
	reset      chan struct{}
	stop       chan struct{}
	loopDone   chan struct{}
	loopCancel context.CancelFunc
	stopOnce   sync.Once
}

// NewBatcher creates a Batcher and starts its background flush loop.
// Call Close to stop it.
func NewBatcher(sink Sink, opts ...Option) *Batcher {
	cfg := defaultBatcherConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	b := &Batcher{
		sink:       sink,
		cfg:        cfg,
		trigger:    make(chan struct{}, 1),
		reset:      make(chan struct{}, 1),
		stop:       make(chan struct{}),
		loopDone:   make(chan struct{}),
		loopCancel: cancel,
	}
	go b.loop(loopCtx)
	return b
}

// Initialize applies batch size, flush interval and privacy mode from a
// settings snapshot. Already-buffered events are not re-filtered.
func (b *Batcher) Initialize(ctx context.Context, s config.Settings) error {
	b.mu.Lock()
	if s.BatchSize > 0 {
		b.cfg.batchSize = s.BatchSize
	}
	if s.FlushInterval > 0 {
		b.cfg.flushInterval = s.FlushInterval
	}
	b.cfg.policy = PolicyFromSettings(s)
	b.mu.Unlock()

	select {
	case b.reset <- struct{}{}:
	default:
	}
	return ctx.Err()
}

// Track buffers an event. Properties are filtered by the privacy policy
// and the current identity, if any, is attached.
func (b *Batcher) Track(name string, props Properties) error {
	return b.emit(name, props, nil)
}

// TrackAny is Track for dynamic property maps.
func (b *Batcher) TrackAny(name string, props map[string]any) error {
	p, err := FromAny(props)
	if err != nil {
		return err
	}
	return b.emit(name, p, nil)
}

func (b *Batcher) emit(name string, props Properties, funnel *FunnelRecord) error {
	if name == "" {
		return ErrEmptyEventName
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBatcherClosed
	}

	b.seq++
	e := Event{
		ID:         b.cfg.newID(),
		Seq:        b.seq,
		Name:       name,
		Properties: b.cfg.policy.Filter(props),
		Timestamp:  b.cfg.now().UTC(),
		Identity:   b.cfg.policy.FilterIdentity(b.identity),
		Funnel:     funnel,
	}
	dropped := b.admit(e)
	b.stats.Tracked++
	b.stats.Dropped += dropped
	buffered := len(b.buffer)
	full := buffered >= b.cfg.batchSize && !b.failing
	verbose := b.cfg.policy.Verbose()
	capacity := b.cfg.maxBuffer
	b.mu.Unlock()

	if dropped > 0 {
		observability.LogEventsDropped(b.cfg.logger, dropped, capacity)
		b.cfg.metrics.RecordDropped(context.Background(), dropped)
	}
	if verbose {
		observability.LogEventTracked(b.cfg.logger, name, buffered)
	}
	if full {
		select {
		case b.trigger <- struct{}{}:
		default:
		}
	}
	return nil
}

// admit appends e, evicting the oldest event outside the in-flight prefix
// when the buffer is at capacity. Returns the number of events dropped.
// Must be called with mu held.
func (b *Batcher) admit(e Event) int {
	if len(b.buffer) < b.cfg.maxBuffer {
		b.buffer = append(b.buffer, e)
		return 0
	}
	if b.inflight >= len(b.buffer) {
		// Everything buffered is being delivered; the newcomer is the oldest evictable event.
		return 1
	}
	b.buffer = slices.Delete(b.buffer, b.inflight, b.inflight+1)
	b.buffer = append(b.buffer, e)
	return 1
}

// IdentifyUser attaches identity to every event tracked from now on.
// Events already buffered keep the identity they were tracked with.
func (b *Batcher) IdentifyUser(userID string, traits Properties) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.identity = &Identity{UserID: userID, Traits: traits.Clone()}
}

// ResetIdentity stops attaching identity to new events.
func (b *Batcher) ResetIdentity() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.identity = nil
}

// Flush delivers every buffered event in batches of at most the batch size.
// On failure the undelivered events stay buffered and a *FlushError is
// returned. Only one flush runs at a time. A successful Flush restarts the
// flush interval.
func (b *Batcher) Flush(ctx context.Context) error {
	if err := b.flush(ctx); err != nil {
		return err
	}
	select {
	case b.reset <- struct{}{}:
	default:
	}
	return nil
}

func (b *Batcher) flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	for {
		b.mu.Lock()
		n := min(len(b.buffer), b.cfg.batchSize)
		if n == 0 {
			b.failing = false
			b.mu.Unlock()
			return nil
		}
		batch := slices.Clone(b.buffer[:n])
		b.inflight = n
		b.mu.Unlock()

		err := b.deliver(ctx, batch)

		b.mu.Lock()
		b.inflight = 0
		if err != nil {
			b.stats.FailedFlushes++
			b.failing = true
			b.mu.Unlock()
			return err
		}
		b.buffer = slices.Delete(b.buffer, 0, n)
		b.stats.Flushed += n
		b.stats.Flushes++
		b.mu.Unlock()
	}
}

func (b *Batcher) deliver(ctx context.Context, batch []Event) error {
	ctx, span := b.cfg.spans.StartFlushSpan(ctx, len(batch))
	elapsed := observability.TimedOperation()

	attempts, err := cerrors.Retry(ctx, b.cfg.retry, func(ctx context.Context) error {
		return b.sink.Send(ctx, batch)
	})

	b.cfg.metrics.RecordFlush(ctx, len(batch), err)
	b.cfg.spans.EndSpanWithError(span, err)

	if err != nil {
		ferr := &FlushError{Events: len(batch), Attempts: attempts, Err: err}
		observability.LogFlushError(b.cfg.logger, len(batch), ferr)
		return ferr
	}
	observability.LogFlush(b.cfg.logger, len(batch), elapsed())
	return nil
}

func (b *Batcher) loop(ctx context.Context) {
	defer close(b.loopDone)

	timer := time.NewTimer(b.interval())
	defer timer.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-b.reset:
			timer.Reset(b.interval())
			continue
		case <-b.trigger:
		case <-timer.C:
		}

		// Failures are logged by deliver and retried on the next tick.
		_ = b.flush(ctx)
		timer.Reset(b.interval())
	}
}

func (b *Batcher) interval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.flushInterval
}

// Close stops the flush loop, rejects further events and flushes what is
// left. Events the final flush could not deliver remain in Pending.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.stopOnce.Do(func() {
		b.loopCancel()
		close(b.stop)
	})
	<-b.loopDone

	return b.Flush(ctx)
}

// Pending returns the number of buffered events.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

// Stats returns a snapshot of the counters.
func (b *Batcher) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Buffered = len(b.buffer)
	return s
}

// now exposes the clock to the funnel tracker.
func (b *Batcher) now() time.Time {
	return b.cfg.now()
}
