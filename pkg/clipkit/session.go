package clipkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/clipkit/pkg/clipkit/analytics"
	"github.com/randalmurphal/clipkit/pkg/clipkit/config"
	"github.com/randalmurphal/clipkit/pkg/clipkit/notify"
	"github.com/randalmurphal/clipkit/pkg/clipkit/observability"
	"github.com/randalmurphal/clipkit/pkg/clipkit/route"
	"github.com/randalmurphal/clipkit/pkg/clipkit/vault"
)

// Router dispatches activation URLs. *route.Router implements it.
type Router interface {
	ProcessDeepLink(ctx context.Context, raw string) (*route.Dispatch, error)
}

// EventTracker records analytics events. *analytics.Batcher implements it.
type EventTracker interface {
	Track(name string, props analytics.Properties) error
	Flush(ctx context.Context) error
}

// Store persists session records. *vault.Vault implements it.
type Store interface {
	Store(ctx context.Context, key string, value []byte, opts ...vault.StoreOption) error
	Retrieve(ctx context.Context, key string) ([]byte, bool, error)
}

// Initializer is implemented by components that apply loaded settings.
// Initialize calls it on every component that has it.
type Initializer interface {
	Initialize(ctx context.Context, s config.Settings) error
}

// drainer is implemented by routers that can wait for running handlers.
type drainer interface {
	Drain(ctx context.Context) error
}

// Session coordinates one activation lifecycle over a router, an event
// tracker and a store.
//
// Initialize, ProcessDeepLink and PrepareForHandoff are serialized: a
// session has a single logical owner and never dispatches two URLs at once.
// Handlers started by successive dispatches may still run concurrently.
type Session struct {
	router    Router
	analytics EventTracker
	store     Store
	cfg       sessionConfig
	logger    *slog.Logger

	// opMu serializes lifecycle operations.
	opMu sync.Mutex

	mu       sync.RWMutex
	state    State
	settings config.Settings
	sctx     SessionContext
	restored *Handoff
	hooks    []StateHook

	watchers sync.WaitGroup
}

// New creates an uninitialized session. router, tracker and store must be
// non-nil.
//
// Example:
//
//	s := clipkit.New(router, batcher, v, clipkit.WithLoader(config.File("clip.yaml")))
//	if err := s.Initialize(ctx); err != nil {
//	    return err
//	}
//	d, err := s.ProcessDeepLink(ctx, "https://shop.example/product?id=123")
func New(router Router, tracker EventTracker, store Store, opts ...Option) *Session {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := observability.EnrichLogger(cfg.logger, cfg.id, "")
	return &Session{
		router:    router,
		analytics: tracker,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		state:     StateUninitialized,
		hooks:     append([]StateHook(nil), cfg.hooks...),
		sctx:      SessionContext{SessionID: cfg.id},
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.cfg.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Context returns a copy of the current per-activation context.
func (s *Session) Context() SessionContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sctx.clone()
}

// Settings returns the settings loaded by Initialize.
func (s *Session) Settings() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Restored returns the handoff snapshot found by Initialize, if any.
func (s *Session) Restored() (Handoff, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.restored == nil {
		return Handoff{}, false
	}
	h := *s.restored
	h.Context = h.Context.clone()
	return h, true
}

// OnStateChange registers h to observe every subsequent state change.
func (s *Session) OnStateChange(h StateHook) {
	if h == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, h)
	s.mu.Unlock()
}

// Initialize loads settings, initializes the components concurrently, and
// restores the previous handoff snapshot if the store holds one.
//
// On failure the session stays in StateInitializing and Initialize may be
// retried; the returned error wraps ErrInitializationFailed and a
// *ComponentError naming the failing part.
func (s *Session) Initialize(ctx context.Context) (err error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	switch st := s.State(); st {
	case StateUninitialized:
		if err := s.transition(StateInitializing); err != nil {
			return err
		}
	case StateInitializing:
		// retry after a failed attempt
	case StateTerminated:
		return &StateError{Op: "initialize", State: st, Err: ErrSessionTerminated}
	default:
		return &StateError{Op: "initialize", State: st, Err: ErrInvalidTransition}
	}

	ctx, span := s.cfg.spans.StartSessionSpan(ctx, "initialize", s.cfg.id)
	defer func() { s.cfg.spans.EndSpanWithError(span, err) }()

	settings, err := s.cfg.loader.Load(ctx)
	if err == nil {
		err = settings.Validate()
	}
	if err != nil {
		return s.initFailed(&ComponentError{Component: "config", Err: err})
	}

	if err := s.initComponents(ctx, settings); err != nil {
		return s.initFailed(err)
	}

	restored, err := s.restoreHandoff(ctx)
	if err != nil {
		// A stale or unreadable snapshot must not block a new activation.
		s.logger.Warn("handoff snapshot not restored", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.settings = settings
	s.restored = restored
	s.sctx = SessionContext{
		SessionID:   s.cfg.id,
		PrivacyMode: settings.AnalyticsMode,
		Settings:    settings,
		UpdatedAt:   s.cfg.now(),
	}
	s.mu.Unlock()

	return s.transition(StateReady)
}

func (s *Session) initComponents(ctx context.Context, settings config.Settings) error {
	components := []struct {
		name string
		c    any
	}{
		{"router", s.router},
		{"analytics", s.analytics},
		{"store", s.store},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, comp := range components {
		initializer, ok := comp.c.(Initializer)
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := initializer.Initialize(gctx, settings); err != nil {
				return &ComponentError{Component: comp.name, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Session) initFailed(err error) error {
	s.logger.Error("session initialization failed", slog.String("error", err.Error()))
	return fmt.Errorf("%w: %w", ErrInitializationFailed, err)
}

func (s *Session) restoreHandoff(ctx context.Context) (*Handoff, error) {
	data, ok, err := s.store.Retrieve(ctx, KeySessionHandoff)
	if err != nil || !ok {
		return nil, err
	}
	var h Handoff
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode handoff: %w", err)
	}
	return &h, nil
}

// ProcessDeepLink dispatches raw through the router, tracks a
// deep_link_opened event, and persists the new session context.
//
// Router outcomes (route.ErrMalformedURL, route.ErrActivationRejected,
// route.ErrNoRouteMatched) are returned unchanged and leave the session
// Ready. A failure to persist the context is joined to the returned error;
// a non-nil Dispatch means the handler was started regardless.
func (s *Session) ProcessDeepLink(ctx context.Context, raw string) (*route.Dispatch, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.enter("dispatch", StateDispatching); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.transition(StateReady); err != nil {
			s.logger.Error("session state not restored", slog.String("error", err.Error()))
		}
	}()

	ctx, span := s.cfg.spans.StartSessionSpan(ctx, "dispatch", s.cfg.id)
	start := s.cfg.now()

	d, err := s.router.ProcessDeepLink(ctx, raw)

	sc := s.contextFor(raw, d, err)
	s.mu.Lock()
	s.sctx = sc
	s.mu.Unlock()

	s.trackOpened(sc)
	if persistErr := s.persist(ctx, KeySessionContext, sc); persistErr != nil {
		err = errors.Join(err, fmt.Errorf("persist session context: %w", persistErr))
	}
	if d != nil && s.cfg.notifier != nil {
		s.watch(ctx, d, raw, start)
	}

	s.cfg.spans.EndSpanWithError(span, err)
	return d, err
}

// enter moves a Ready session to next, or explains why it cannot.
func (s *Session) enter(op string, next State) error {
	switch st := s.State(); st {
	case StateReady:
		return s.transition(next)
	case StateTerminated:
		return &StateError{Op: op, State: st, Err: ErrSessionTerminated}
	case StateUninitialized, StateInitializing:
		return &StateError{Op: op, State: st, Err: ErrNotReady}
	default:
		return &StateError{Op: op, State: st, Err: ErrInvalidTransition}
	}
}

func (s *Session) contextFor(raw string, d *route.Dispatch, err error) SessionContext {
	s.mu.RLock()
	settings := s.settings
	s.mu.RUnlock()

	sc := SessionContext{
		SessionID:   s.cfg.id,
		LastURL:     raw,
		Outcome:     outcomeOf(err),
		PrivacyMode: settings.AnalyticsMode,
		Settings:    settings,
		UpdatedAt:   s.cfg.now(),
	}
	if d != nil {
		m := d.Match()
		sc.Segment = m.Key
		sc.Params = m.Params
	} else if req, perr := route.Parse(raw); perr == nil {
		sc.Segment = route.NormalizeSegment(req.FirstSegment())
	}
	return sc.clone()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeDispatched
	case errors.Is(err, route.ErrMalformedURL):
		return observability.OutcomeMalformed
	case errors.Is(err, route.ErrActivationRejected):
		return observability.OutcomeRejected
	case errors.Is(err, route.ErrNoRouteMatched):
		return observability.OutcomeNoRoute
	default:
		return observability.OutcomeHandlerError
	}
}

func (s *Session) trackOpened(sc SessionContext) {
	var host string
	if req, err := route.Parse(sc.LastURL); err == nil {
		host = req.Host
	}
	props := analytics.Properties{
		"segment": analytics.String(sc.Segment),
		"host":    analytics.String(host),
		"outcome": analytics.String(sc.Outcome),
	}
	if err := s.analytics.Track(EventDeepLinkOpened, props); err != nil {
		s.logger.Warn("deep link event not tracked", slog.String("error", err.Error()))
	}
}

// persist writes v as JSON, encrypted when the settings require it.
func (s *Session) persist(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var opts []vault.StoreOption
	if s.Settings().EncryptAtRest() {
		opts = append(opts, vault.Encrypted())
	}
	if err := s.store.Store(ctx, key, data, opts...); err != nil {
		observability.LogStoreError(s.logger, "store", key, err)
		return err
	}
	return nil
}

// watch publishes the handler outcome once d completes.
func (s *Session) watch(ctx context.Context, d *route.Dispatch, raw string, start time.Time) {
	ctx = context.WithoutCancel(ctx)
	s.watchers.Add(1)
	go func() {
		defer s.watchers.Done()
		<-d.Done()

		m := d.Match()
		at := s.cfg.now()
		r := notify.Result{
			SessionID: s.cfg.id,
			URL:       raw,
			Segment:   m.Key,
			Params:    m.Params,
			Err:       d.Err(),
			Duration:  at.Sub(start),
			At:        at,
		}
		if err := s.cfg.notifier.Publish(ctx, r); err != nil {
			s.logger.Debug("dispatch result not published", slog.String("error", err.Error()))
		}
	}()
}

// PrepareForHandoff waits for running handlers, persists a Handoff
// snapshot, flushes analytics, and terminates the session.
//
// If any step fails the session returns to Ready and the error is
// returned, so the handoff can be retried. Once it succeeds every
// lifecycle call returns ErrSessionTerminated.
func (s *Session) PrepareForHandoff(ctx context.Context) (err error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.enter("handoff", StateTransitioning); err != nil {
		return err
	}

	ctx, span := s.cfg.spans.StartSessionSpan(ctx, "handoff", s.cfg.id)
	defer func() {
		if err != nil {
			if terr := s.transition(StateReady); terr != nil {
				err = errors.Join(err, terr)
			}
		}
		s.cfg.spans.EndSpanWithError(span, err)
	}()

	if dr, ok := s.router.(drainer); ok {
		if err := dr.Drain(ctx); err != nil {
			return fmt.Errorf("drain handlers: %w", err)
		}
	}
	if err := s.waitWatchers(ctx); err != nil {
		return fmt.Errorf("drain notifications: %w", err)
	}

	h := Handoff{
		SessionID:   s.cfg.id,
		Context:     s.Context(),
		HandedOffAt: s.cfg.now(),
	}
	if err := s.persist(ctx, KeySessionHandoff, h); err != nil {
		return fmt.Errorf("persist handoff: %w", err)
	}

	if err := s.analytics.Flush(ctx); err != nil {
		return fmt.Errorf("flush analytics: %w", err)
	}

	return s.transition(StateTerminated)
}

func (s *Session) waitWatchers(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.watchers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transition moves the session to next and notifies hooks.
func (s *Session) transition(next State) error {
	s.mu.Lock()
	from := s.state
	if !from.CanTransition(next) {
		s.mu.Unlock()
		return &StateError{Op: "transition to " + next.String(), State: from, Err: ErrInvalidTransition}
	}
	s.state = next
	hooks := append([]StateHook(nil), s.hooks...)
	s.mu.Unlock()

	observability.LogStateChange(s.logger, from.String(), next.String())
	for _, h := range hooks {
		h(from, next)
	}
	return nil
}
