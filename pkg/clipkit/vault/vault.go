package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/clipkit/pkg/clipkit/config"
	"github.com/randalmurphal/clipkit/pkg/clipkit/observability"
	"github.com/randalmurphal/clipkit/pkg/clipkit/storage"
)

// Encryptor is the external encryption capability.
// cipher.XChaCha is the reference implementation.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// Entry is a live entry in its stored form, as handed to a Syncer.
// Encrypted entries carry ciphertext.
type Entry struct {
	Key       string
	Value     []byte
	Encrypted bool
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Syncer receives live entries from Sync.
type Syncer interface {
	Sync(ctx context.Context, entries []Entry) error
}

// SyncerFunc adapts a function to the Syncer interface.
type SyncerFunc func(ctx context.Context, entries []Entry) error

// Sync implements Syncer.
func (f SyncerFunc) Sync(ctx context.Context, entries []Entry) error {
	return f(ctx, entries)
}

// Vault is a key-value store with optional encryption and expiry.
// It is safe for concurrent use.
type Vault struct {
	store   storage.Store
	enc     Encryptor
	syncer  Syncer
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	now     func() time.Time

	mu        sync.RWMutex
	retention time.Duration
}

// New creates a Vault over store.
func New(store storage.Store, opts ...Option) *Vault {
	v := &Vault{
		store:     store,
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
		now:       time.Now,
		retention: config.Defaults().RetentionPeriod,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Initialize applies the session settings and sweeps expired entries.
func (v *Vault) Initialize(ctx context.Context, s config.Settings) error {
	v.mu.Lock()
	v.retention = max(s.RetentionPeriod, 0)
	v.mu.Unlock()

	_, err := v.Evict(ctx)
	return err
}

// Retention returns the default retention period.
func (v *Vault) Retention() time.Duration {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.retention
}

// Store upserts value under key. Overwriting resets the creation time.
func (v *Vault) Store(ctx context.Context, key string, value []byte, opts ...StoreOption) error {
	err := v.put(ctx, key, value, opts)
	v.metrics.RecordStoreOp(ctx, "store", err)
	if err != nil {
		observability.LogStoreError(v.logger, "store", key, err)
	}
	return err
}

func (v *Vault) put(ctx context.Context, key string, value []byte, opts []StoreOption) error {
	if key == "" {
		return ErrEmptyKey
	}

	var cfg storeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	payload := value
	if cfg.encrypted {
		if v.enc == nil {
			return fmt.Errorf("%w: %w", ErrEncryptionFailed, ErrNoEncryptor)
		}
		sealed, err := v.enc.Encrypt(ctx, value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
		}
		payload = sealed
	}

	now := v.now()
	rec := storage.Record{
		Key:       key,
		Value:     payload,
		Encrypted: cfg.encrypted,
		CreatedAt: now,
	}
	if !cfg.noExpiry {
		retention := v.Retention()
		if cfg.retention != nil {
			retention = *cfg.retention
		}
		exp := now.Add(retention)
		rec.ExpiresAt = &exp
	}

	if err := v.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Retrieve returns the value stored under key.
// A missing or expired entry reports ok == false with a nil error.
func (v *Vault) Retrieve(ctx context.Context, key string) (value []byte, ok bool, err error) {
	value, ok, err = v.retrieve(ctx, key)
	v.metrics.RecordStoreOp(ctx, "retrieve", err)
	if err != nil {
		observability.LogStoreError(v.logger, "retrieve", key, err)
	}
	return value, ok, err
}

func (v *Vault) retrieve(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	rec, err := v.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}

	if rec.Expired(v.now()) {
		return nil, false, nil
	}

	if !rec.Encrypted {
		return rec.Value, true, nil
	}
	if v.enc == nil {
		return nil, false, fmt.Errorf("%w: %w", ErrDecryptionFailed, ErrNoEncryptor)
	}
	plain, err := v.enc.Decrypt(ctx, rec.Value)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plain, true, nil
}

// Remove deletes the entry under key. Removing an absent key is not an error.
func (v *Vault) Remove(ctx context.Context, key string) error {
	var err error
	if key == "" {
		err = ErrEmptyKey
	} else if derr := v.store.Delete(ctx, key); derr != nil {
		err = fmt.Errorf("delete %q: %w", key, derr)
	}

	v.metrics.RecordStoreOp(ctx, "remove", err)
	if err != nil {
		observability.LogStoreError(v.logger, "remove", key, err)
	}
	return err
}

// Keys lists the keys of live entries in key order.
func (v *Vault) Keys(ctx context.Context) ([]string, error) {
	infos, err := v.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	now := v.now()
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.Expired(now) {
			keys = append(keys, info.Key)
		}
	}
	return keys, nil
}

// Evict removes expired entries and reports how many were removed.
func (v *Vault) Evict(ctx context.Context) (int, error) {
	removed, err := v.store.DeleteExpired(ctx, v.now())
	v.metrics.RecordStoreOp(ctx, "evict", err)
	if err != nil {
		observability.LogStoreError(v.logger, "evict", "", err)
		return 0, fmt.Errorf("evict: %w", err)
	}
	observability.LogEviction(v.logger, removed)
	return removed, nil
}

// StartEviction sweeps expired entries every interval until ctx is done
// or the returned stop function is called. Stop waits for the sweeper to exit.
func (v *Vault) StartEviction(ctx context.Context, every time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Errors are logged by Evict.
				_, _ = v.Evict(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// Sync pushes every live entry, in stored form, to the configured Syncer.
func (v *Vault) Sync(ctx context.Context) error {
	err := v.sync(ctx)
	v.metrics.RecordStoreOp(ctx, "sync", err)
	if err != nil {
		observability.LogStoreError(v.logger, "sync", "", err)
	}
	return err
}

func (v *Vault) sync(ctx context.Context) error {
	if v.syncer == nil {
		return ErrNoSyncer
	}

	infos, err := v.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	now := v.now()
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if info.Expired(now) {
			continue
		}
		rec, err := v.store.Get(ctx, info.Key)
		if errors.Is(err, storage.ErrNotFound) {
			continue // removed since List
		}
		if err != nil {
			return fmt.Errorf("get %q: %w", info.Key, err)
		}
		entries = append(entries, Entry{
			Key:       rec.Key,
			Value:     rec.Value,
			Encrypted: rec.Encrypted,
			CreatedAt: rec.CreatedAt,
			ExpiresAt: rec.ExpiresAt,
		})
	}

	if err := v.syncer.Sync(ctx, entries); err != nil {
		return fmt.Errorf("sync %d entries: %w", len(entries), err)
	}
	return nil
}

// Close closes the underlying store.
func (v *Vault) Close() error {
	return v.store.Close()
}

// StoreJSON marshals value and stores it under key.
func StoreJSON[T any](ctx context.Context, v *Vault, key string, value T, opts ...StoreOption) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	return v.Store(ctx, key, data, opts...)
}

// RetrieveJSON retrieves the value under key and unmarshals it into T.
func RetrieveJSON[T any](ctx context.Context, v *Vault, key string) (T, bool, error) {
	var out T
	data, ok, err := v.Retrieve(ctx, key)
	if err != nil || !ok {
		return out, ok, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false, fmt.Errorf("unmarshal %q: %w", key, err)
	}
	return out, true, nil
}
