package clipkit

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/clipkit/pkg/clipkit/config"
	"github.com/randalmurphal/clipkit/pkg/clipkit/notify"
	"github.com/randalmurphal/clipkit/pkg/clipkit/observability"
)

// sessionConfig holds the optional collaborators of a Session.
type sessionConfig struct {
	id       string
	loader   config.Loader
	notifier notify.Publisher
	logger   *slog.Logger
	spans    observability.SpanManager
	hooks    []StateHook
	now      func() time.Time
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		id:     uuid.NewString(),
		loader: config.Static(config.Defaults()),
		logger: slog.Default(),
		spans:  observability.NoopSpanManager{},
		now:    time.Now,
	}
}

// Option configures a Session.
type Option func(*sessionConfig)

// WithLoader sets the configuration source read by Initialize.
// Default: config.Static(config.Defaults())
//
// Example:
//
//	s := clipkit.New(router, batcher, v, clipkit.WithLoader(config.File("clip.yaml")))
func WithLoader(l config.Loader) Option {
	return func(c *sessionConfig) {
		if l != nil {
			c.loader = l
		}
	}
}

// WithNotifier publishes a notify.Result whenever a dispatched handler returns.
func WithNotifier(p notify.Publisher) Option {
	return func(c *sessionConfig) {
		c.notifier = p
	}
}

// WithLogger sets the session logger. Records carry the session_id attribute.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSpanManager enables session spans.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *sessionConfig) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) Option {
	return func(c *sessionConfig) {
		if id != "" {
			c.id = id
		}
	}
}

// WithStateHook registers h to observe every state change.
func WithStateHook(h StateHook) Option {
	return func(c *sessionConfig) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// WithClock sets the time source for context timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *sessionConfig) {
		if now != nil {
			c.now = now
		}
	}
}
