// Package notify delivers dispatch results to UI collaborators.
//
// The session publishes one Result per finished handler. Subscribers
// receive results on their own goroutine, in publish order, filtered by
// route segment or unfiltered.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/clipkit/pkg/clipkit/route"
)

// Result describes one finished activation.
type Result struct {
	SessionID string
	URL       string
	Segment   string
	Params    map[string]string
	// Err is the handler's error, nil on success.
	Err      error
	Duration time.Duration
	At       time.Time
}

// OK reports whether the handler succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Handler receives published results.
type Handler func(ctx context.Context, r Result)

// Sentinel errors.
var (
	// ErrBusClosed indicates the bus has been closed.
	ErrBusClosed = errors.New("notification bus closed")

	// ErrTooManySubscribers indicates MaxSubscribers was reached.
	ErrTooManySubscribers = errors.New("too many subscribers")
)

// Publisher is the side of the bus the session uses.
type Publisher interface {
	Publish(ctx context.Context, r Result) error
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe removes the subscription.
	Unsubscribe()

	// Pause temporarily stops delivery. Results published while paused are skipped.
	Pause()

	// Resume continues delivery after pause.
	Resume()

	// IsPaused returns true if the subscription is paused.
	IsPaused() bool
}

// Config configures bus behavior.
type Config struct {
	// BufferSize is the channel buffer size per subscription.
	// Default: 64
	BufferSize int

	// MaxSubscribers limits total subscriptions.
	// Default: 0 (unlimited)
	MaxSubscribers int

	// NonBlocking makes Publish drop results for subscribers whose buffer is full.
	// Default: false (blocking)
	NonBlocking bool

	// OnDrop is called when a result is dropped (non-blocking mode).
	OnDrop func(r Result, subscriberID string)

	// Logger receives handler panics. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig provides reasonable defaults.
var DefaultConfig = Config{
	BufferSize: 64,
}

// Bus is an in-memory pub/sub of dispatch results.
type Bus struct {
	config Config

	mu            sync.RWMutex
	subscriptions map[string]*subscription
	bySegment     map[string]map[string]*subscription // segment -> subscription ID -> subscription
	wildcards     map[string]*subscription

	nextID  atomic.Int64
	closed  atomic.Bool
	closeCh chan struct{}
}

// NewBus creates a new bus.
func NewBus(config Config) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig.BufferSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Bus{
		config:        config,
		subscriptions: make(map[string]*subscription),
		bySegment:     make(map[string]map[string]*subscription),
		wildcards:     make(map[string]*subscription),
		closeCh:       make(chan struct{}),
	}
}

type subscription struct {
	id       string
	segments []string // empty = all segments
	handler  Handler
	results  chan Result
	paused   atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	bus      *Bus
}

// Publish delivers r to every subscriber of its segment and every
// unfiltered subscriber.
func (b *Bus) Publish(ctx context.Context, r Result) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	b.mu.RLock()
	subs := b.matching(r.Segment)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.paused.Load() {
			continue
		}

		if b.config.NonBlocking {
			select {
			case sub.results <- r:
			default:
				if b.config.OnDrop != nil {
					b.config.OnDrop(r, sub.id)
				}
			}
			continue
		}

		select {
		case sub.results <- r:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		case <-b.closeCh:
			return fmt.Errorf("%w during publish", ErrBusClosed)
		}
	}

	return nil
}

// Subscribe delivers results for the given segments to h. Segments match
// the way the router dispatches, so "Product" and "product" are one key.
func (b *Bus) Subscribe(segments []string, h Handler) (Subscription, error) {
	return b.subscribe(segments, h)
}

// SubscribeAll delivers every result to h.
func (b *Bus) SubscribeAll(h Handler) (Subscription, error) {
	return b.subscribe(nil, h)
}

func (b *Bus) subscribe(segments []string, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		return nil, ErrBusClosed
	}
	if b.config.MaxSubscribers > 0 && len(b.subscriptions) >= b.config.MaxSubscribers {
		return nil, fmt.Errorf("%w: limit %d", ErrTooManySubscribers, b.config.MaxSubscribers)
	}

	keys := make([]string, len(segments))
	for i, seg := range segments {
		keys[i] = route.NormalizeSegment(seg)
	}

	sub := &subscription{
		id:       strconv.FormatInt(b.nextID.Add(1), 10),
		segments: keys,
		handler:  h,
		results:  make(chan Result, b.config.BufferSize),
		done:     make(chan struct{}),
		bus:      b,
	}

	b.subscriptions[sub.id] = sub
	if len(segments) == 0 {
		b.wildcards[sub.id] = sub
	} else {
		for _, seg := range keys {
			if b.bySegment[seg] == nil {
				b.bySegment[seg] = make(map[string]*subscription)
			}
			b.bySegment[seg][sub.id] = sub
		}
	}

	go sub.process()
	return sub, nil
}

// matching returns the subscriptions for a segment. Must be called with mu held.
func (b *Bus) matching(segment string) []*subscription {
	subs := make([]*subscription, 0, len(b.wildcards))
	for _, sub := range b.bySegment[route.NormalizeSegment(segment)] {
		subs = append(subs, sub)
	}
	for _, sub := range b.wildcards {
		subs = append(subs, sub)
	}
	return subs
}

// Close shuts down the bus and every subscription.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(b.closeCh)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscriptions {
		sub.stop()
	}
	return nil
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *subscription) process() {
	for {
		select {
		case r := <-s.results:
			if s.paused.Load() {
				continue
			}
			s.deliver(r)
		case <-s.done:
			return
		}
	}
}

// deliver invokes the handler, containing any panic to this subscriber.
func (s *subscription) deliver(r Result) {
	defer func() {
		if p := recover(); p != nil {
			s.bus.config.Logger.Error("notification handler panicked",
				slog.String("subscriber", s.id),
				slog.String("segment", r.Segment),
				slog.Any("panic", p),
			)
		}
	}()
	s.handler(context.Background(), r)
}

// Unsubscribe removes the subscription.
func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	delete(s.bus.subscriptions, s.id)
	delete(s.bus.wildcards, s.id)
	for _, seg := range s.segments {
		if subs, ok := s.bus.bySegment[seg]; ok {
			delete(subs, s.id)
		}
	}

	s.stop()
}

// Pause temporarily stops delivery.
func (s *subscription) Pause() {
	s.paused.Store(true)
}

// Resume continues delivery after pause.
func (s *subscription) Resume() {
	s.paused.Store(false)
}

// IsPaused returns true if the subscription is paused.
func (s *subscription) IsPaused() bool {
	return s.paused.Load()
}
