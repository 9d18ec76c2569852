package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/clipkit/pkg/clipkit/storage"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) storage.Store

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func expiresIn(d time.Duration) *time.Time {
	t := epoch.Add(d)
	return &t
}

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	t.Run(name+"/Put_and_Get", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		rec := storage.Record{
			Key:       "session.context",
			Value:     []byte(`{"id":"abc"}`),
			Encrypted: true,
			CreatedAt: epoch,
			ExpiresAt: expiresIn(time.Hour),
		}
		require.NoError(t, store.Put(ctx, rec))

		got, err := store.Get(ctx, "session.context")
		require.NoError(t, err)
		assert.Equal(t, rec.Key, got.Key)
		assert.Equal(t, rec.Value, got.Value)
		assert.True(t, got.Encrypted)
		assert.True(t, epoch.Equal(got.CreatedAt))
		require.NotNil(t, got.ExpiresAt)
		assert.True(t, rec.ExpiresAt.Equal(*got.ExpiresAt))
	})

	t.Run(name+"/Get_NotFound", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run(name+"/Put_NoExpiry", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, storage.Record{Key: "k", Value: []byte("v"), CreatedAt: epoch}))

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, got.ExpiresAt)
		assert.False(t, got.Encrypted)
	})

	t.Run(name+"/Put_Overwrite", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, storage.Record{Key: "k", Value: []byte("first"), CreatedAt: epoch}))
		require.NoError(t, store.Put(ctx, storage.Record{Key: "k", Value: []byte("second"), CreatedAt: epoch}))

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got.Value)
	})

	t.Run(name+"/List_Empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		infos, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run(name+"/List_Ordered", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, storage.Record{Key: "c", Value: []byte("ccc"), CreatedAt: epoch}))
		require.NoError(t, store.Put(ctx, storage.Record{Key: "a", Value: []byte("a"), CreatedAt: epoch}))
		require.NoError(t, store.Put(ctx, storage.Record{Key: "b", Value: []byte("bb"), CreatedAt: epoch, Encrypted: true}))

		infos, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 3)

		assert.Equal(t, "a", infos[0].Key)
		assert.Equal(t, "b", infos[1].Key)
		assert.Equal(t, "c", infos[2].Key)

		assert.Equal(t, int64(1), infos[0].Size)
		assert.Equal(t, int64(2), infos[1].Size)
		assert.Equal(t, int64(3), infos[2].Size)

		assert.True(t, infos[1].Encrypted)
	})

	t.Run(name+"/Delete", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, storage.Record{Key: "k", Value: []byte("data"), CreatedAt: epoch}))
		require.NoError(t, store.Delete(ctx, "k"))

		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run(name+"/Delete_Nonexistent", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		assert.NoError(t, store.Delete(ctx, "missing"))
	})

	t.Run(name+"/DeleteExpired", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, storage.Record{Key: "past", Value: []byte("1"), CreatedAt: epoch, ExpiresAt: expiresIn(time.Minute)}))
		require.NoError(t, store.Put(ctx, storage.Record{Key: "boundary", Value: []byte("2"), CreatedAt: epoch, ExpiresAt: expiresIn(time.Hour)}))
		require.NoError(t, store.Put(ctx, storage.Record{Key: "future", Value: []byte("3"), CreatedAt: epoch, ExpiresAt: expiresIn(2 * time.Hour)}))
		require.NoError(t, store.Put(ctx, storage.Record{Key: "forever", Value: []byte("4"), CreatedAt: epoch}))

		removed, err := store.DeleteExpired(ctx, epoch.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		infos, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, "forever", infos[0].Key)
		assert.Equal(t, "future", infos[1].Key)
	})

	t.Run(name+"/DeleteExpired_Nothing", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, storage.Record{Key: "forever", Value: []byte("4"), CreatedAt: epoch}))

		removed, err := store.DeleteExpired(ctx, epoch.Add(365*24*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run(name+"/Closed", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		err := store.Put(ctx, storage.Record{Key: "k", Value: []byte("v"), CreatedAt: epoch})
		assert.ErrorIs(t, err, storage.ErrStoreClosed)

		_, err = store.Get(ctx, "k")
		assert.ErrorIs(t, err, storage.ErrStoreClosed)

		assert.ErrorIs(t, store.Delete(ctx, "k"), storage.ErrStoreClosed)

		_, err = store.List(ctx)
		assert.ErrorIs(t, err, storage.ErrStoreClosed)

		_, err = store.DeleteExpired(ctx, epoch)
		assert.ErrorIs(t, err, storage.ErrStoreClosed)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	storeContractTest(t, "MemoryStore", func(t *testing.T) storage.Store {
		return storage.NewMemoryStore()
	})
}

func TestSQLiteStore_Contract(t *testing.T) {
	storeContractTest(t, "SQLiteStore", func(t *testing.T) storage.Store {
		store, err := storage.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return store
	})
}

func TestRecord_Expired(t *testing.T) {
	tests := []struct {
		name    string
		expires *time.Time
		now     time.Time
		want    bool
	}{
		{name: "no expiry", expires: nil, now: epoch.Add(1000 * time.Hour), want: false},
		{name: "before expiry", expires: expiresIn(time.Hour), now: epoch, want: false},
		{name: "exactly at expiry", expires: expiresIn(time.Hour), now: epoch.Add(time.Hour), want: true},
		{name: "after expiry", expires: expiresIn(time.Hour), now: epoch.Add(2 * time.Hour), want: true},
		{name: "zero retention", expires: expiresIn(0), now: epoch, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := storage.Record{Key: "k", CreatedAt: epoch, ExpiresAt: tt.expires}
			assert.Equal(t, tt.want, rec.Expired(tt.now))

			info := storage.Info{Key: "k", CreatedAt: epoch, ExpiresAt: tt.expires}
			assert.Equal(t, tt.want, info.Expired(tt.now))
		})
	}
}
