package vault

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/clipkit/pkg/clipkit/observability"
)

// Option configures a Vault.
type Option func(*Vault)

// WithEncryptor sets the encryption capability used for Encrypted() writes.
func WithEncryptor(enc Encryptor) Option {
	return func(v *Vault) {
		v.enc = enc
	}
}

// WithSyncer sets the collaborator Sync pushes entries to.
func WithSyncer(s Syncer) Option {
	return func(v *Vault) {
		v.syncer = s
	}
}

// WithDefaultRetention sets the lifetime of entries written without WithRetention.
func WithDefaultRetention(d time.Duration) Option {
	return func(v *Vault) {
		v.retention = max(d, 0)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		v.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Defaults to no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(v *Vault) {
		v.metrics = m
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) {
		v.now = now
	}
}

// StoreOption configures a single Store call.
type StoreOption func(*storeConfig)

type storeConfig struct {
	encrypted bool
	retention *time.Duration
	noExpiry  bool
}

// Encrypted seals the value with the vault's Encryptor before persisting.
func Encrypted() StoreOption {
	return func(c *storeConfig) {
		c.encrypted = true
	}
}

// WithRetention overrides the default retention for this entry.
// A retention of zero makes the entry expire immediately.
func WithRetention(d time.Duration) StoreOption {
	return func(c *storeConfig) {
		d = max(d, 0)
		c.retention = &d
		c.noExpiry = false
	}
}

// NoExpiry keeps the entry until it is removed.
func NoExpiry() StoreOption {
	return func(c *storeConfig) {
		c.noExpiry = true
		c.retention = nil
	}
}
