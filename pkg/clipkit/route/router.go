package route

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/clipkit/pkg/clipkit/observability"
	"github.com/randalmurphal/clipkit/pkg/clipkit/registry"
)

// Handler handles one activation. It runs on its own goroutine.
type Handler func(ctx context.Context, m Match) error

// Match is a parsed activation URL resolved against the registered route.
type Match struct {
	Request

	// Segment is the first path segment as it appeared in the URL.
	Segment string `json:"segment"`
	// Key is Segment in normalized form, the key the router dispatches on.
	Key string `json:"key"`
	// Pattern is the registered pattern for Segment, if any.
	Pattern string `json:"pattern,omitempty"`
	// PatternMatched reports whether every pattern segment was satisfied.
	PatternMatched bool `json:"patternMatched"`
	// Captures holds the path captures alone.
	Captures map[string]string `json:"captures"`
	// Params merges Query and Captures; captures win on collision.
	Params map[string]string `json:"params"`
}

// LastResult records the most recent ProcessDeepLink call.
type LastResult struct {
	URL   string
	Match Match
	// Err is the dispatch outcome: nil when a handler was invoked.
	Err error
}

type routeEntry struct {
	pattern pattern
	handler Handler
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Defaults to no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithSpanManager sets the tracer. Defaults to no-op.
func WithSpanManager(s observability.SpanManager) Option {
	return func(r *Router) {
		r.spans = s
	}
}

// WithValidator sets the initial validator.
func WithValidator(v Validator) Option {
	return func(r *Router) {
		r.validator = v
	}
}

// Router maps first path segments to handlers.
// It is safe for concurrent use.
type Router struct {
	routes *registry.Registry[string, routeEntry]

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	mu         sync.RWMutex
	validator  Validator
	middleware []Middleware
	last       *LastResult

	inflight sync.WaitGroup
}

// New creates an empty Router. With no validator every URL is accepted.
func New(opts ...Option) *Router {
	r := &Router{
		routes: registry.New(
			registry.WithNormalizer[string, routeEntry](NormalizeSegment),
		),
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterHandler installs h for a first path segment, replacing any
// previous handler and pattern. The empty segment handles URLs with no path.
func (r *Router) RegisterHandler(segment string, h Handler) {
	p := pattern{raw: "/" + segment, matchers: []segmentMatcher{{literal: segment}}}
	r.routes.Register(segment, routeEntry{pattern: p, handler: h})
}

// Register installs h under the first segment of pattern, replacing any
// previous handler for that segment. Later segments are literals or
// ":name" captures.
func (r *Router) Register(patternStr string, h Handler) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrInvalidPattern, patternStr)
	}
	p, err := compilePattern(patternStr)
	if err != nil {
		return err
	}
	r.routes.Register(p.segment(), routeEntry{pattern: p, handler: h})
	return nil
}

// Unregister removes the handler for segment.
func (r *Router) Unregister(segment string) {
	r.routes.Delete(segment)
}

// Segments lists the registered dispatch keys in normalized, sorted form.
func (r *Router) Segments() []string {
	return registry.SortedKeys(r.routes, func(a, b string) bool { return a < b })
}

// SetValidator replaces the active validator. Nil accepts everything.
func (r *Router) SetValidator(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validator = v
}

// Use appends middleware applied to every handler invocation.
func (r *Router) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw...)
}

// ParseURL parses raw and resolves it against the registered pattern for
// its first segment. It does not consult the validator or invoke anything.
func (r *Router) ParseURL(raw string) (Match, error) {
	req, err := Parse(raw)
	if err != nil {
		return Match{}, err
	}
	entry, ok := r.routes.Get(req.FirstSegment())
	if !ok {
		return resolve(req, nil), nil
	}
	return resolve(req, &entry.pattern), nil
}

func resolve(req Request, p *pattern) Match {
	m := Match{
		Request:  req,
		Segment:  req.FirstSegment(),
		Key:      NormalizeSegment(req.FirstSegment()),
		Captures: map[string]string{},
	}
	if p != nil {
		m.Pattern = p.raw
		m.Captures, m.PatternMatched = p.bind(req.Path)
	}

	m.Params = make(map[string]string, len(req.Query)+len(m.Captures))
	for k, v := range req.Query {
		m.Params[k] = v
	}
	for k, v := range m.Captures {
		m.Params[k] = v
	}
	return m
}

// ProcessDeepLink parses raw, runs the validator, and starts the handler
// registered for the first path segment on its own goroutine.
//
// Parse failures return ErrMalformedURL, validator refusal returns
// ErrActivationRejected, and an unregistered segment returns
// ErrNoRouteMatched; no handler runs in those cases. Otherwise the returned
// Dispatch reports the handler's outcome. The handler keeps ctx's values
// but not its cancellation; use Dispatch.Cancel to stop it.
func (r *Router) ProcessDeepLink(ctx context.Context, raw string) (*Dispatch, error) {
	ctx, span := r.spans.StartDispatchSpan(ctx, raw)

	d, m, outcome, err := r.dispatch(ctx, raw)

	r.mu.Lock()
	r.last = &LastResult{URL: raw, Match: m, Err: err}
	r.mu.Unlock()

	r.metrics.RecordDispatch(ctx, m.Key, outcome)
	if err != nil {
		observability.LogDispatchRejected(r.logger, raw, outcome, err)
	} else {
		observability.LogDispatch(r.logger, m.Key, len(m.Params))
		r.spans.AddSpanEvent(ctx, "handler.started", attribute.String("segment", m.Key))
	}
	r.spans.EndSpanWithError(span, err)

	return d, err
}

func (r *Router) dispatch(ctx context.Context, raw string) (*Dispatch, Match, string, error) {
	req, err := Parse(raw)
	if err != nil {
		return nil, Match{Request: Request{URL: raw}}, observability.OutcomeMalformed, err
	}

	r.mu.RLock()
	validator := r.validator
	mw := r.middleware
	r.mu.RUnlock()

	if validator != nil && !validator(req) {
		return nil, resolve(req, nil), observability.OutcomeRejected,
			fmt.Errorf("%w: %s", ErrActivationRejected, raw)
	}

	entry, ok := r.routes.Get(req.FirstSegment())
	if !ok {
		return nil, resolve(req, nil), observability.OutcomeNoRoute,
			fmt.Errorf("%w: segment %q", ErrNoRouteMatched, req.FirstSegment())
	}

	m := resolve(req, &entry.pattern)
	h := chain(entry.handler, mw)

	hctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d := newDispatch(m, cancel)

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		d.finish(r.run(hctx, raw, m, h))
	}()

	return d, m, observability.OutcomeDispatched, nil
}

// run invokes h, recovering panics and recording the outcome.
func (r *Router) run(ctx context.Context, raw string, m Match, h Handler) (err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
		if err != nil {
			var de *DispatchError
			if !errors.As(err, &de) {
				err = &DispatchError{URL: raw, Segment: m.Segment, Err: err}
			}
		}
		elapsed := time.Since(start)
		r.metrics.RecordHandler(ctx, m.Key, elapsed, err)
		observability.LogHandlerComplete(r.logger, m.Key, float64(elapsed.Microseconds())/1000, err)
	}()

	return h(ctx, m)
}

// Last returns the most recent ProcessDeepLink call, if any.
func (r *Router) Last() (LastResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return LastResult{}, false
	}
	return *r.last, true
}

// Drain waits until every started handler has returned or ctx is done.
func (r *Router) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
