// Package storage provides the persistence backends behind the vault.
//
// Backends store opaque records; they know nothing about encryption and
// never filter expired records on their own. Expiry is decided by the
// vault, which asks backends to drop expired records through DeleteExpired.
package storage

import (
	"context"
	"errors"
	"time"
)

// Store persists records keyed by a unique string.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put inserts or replaces the record stored under rec.Key.
	Put(ctx context.Context, rec Record) error

	// Get retrieves a record.
	// Returns ErrNotFound if no record exists for key.
	Get(ctx context.Context, key string) (Record, error)

	// Delete removes a record.
	// Returns nil if the record doesn't exist.
	Delete(ctx context.Context, key string) error

	// List returns metadata for every record, ordered by key.
	// Returns an empty slice (not error) if the store is empty.
	List(ctx context.Context) ([]Info, error)

	// DeleteExpired removes every record whose expiry is at or before now
	// and reports how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Record is one stored value with its metadata.
type Record struct {
	Key       string
	Value     []byte
	Encrypted bool
	CreatedAt time.Time
	// ExpiresAt is nil for records that never expire.
	ExpiresAt *time.Time
}

// Expired reports whether the record is past its expiry at now.
// A record expiring exactly at now is expired.
func (r Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Info provides metadata without loading the value.
type Info struct {
	Key       string
	Size      int64
	Encrypted bool
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the described record is past its expiry at now.
func (i Info) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// Sentinel errors for storage operations.
var (
	// ErrNotFound indicates a record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store closed")
)
