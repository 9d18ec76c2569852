package storage_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/clipkit/pkg/clipkit/storage"
)

func TestSQLiteStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "clip.db")

	store1, err := storage.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	require.NoError(t, store1.Put(ctx, storage.Record{
		Key:       "session.handoff",
		Value:     []byte("persistent"),
		CreatedAt: epoch,
		ExpiresAt: expiresIn(7 * 24 * time.Hour),
	}))
	require.NoError(t, store1.Close())

	store2, err := storage.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.Get(ctx, "session.handoff")
	require.NoError(t, err)
	assert.Equal(t, []byte("persistent"), got.Value)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expiresIn(7*24*time.Hour).Equal(*got.ExpiresAt))
}

func TestSQLiteStore_FarFutureExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "clip.db"))
	require.NoError(t, err)
	defer store.Close()

	far := time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, storage.Record{
		Key:       "k",
		Value:     []byte("v"),
		CreatedAt: epoch,
		ExpiresAt: &far,
	}))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.After(time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC)))

	n, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := storage.NewSQLiteStore("/nonexistent/path/db.sqlite")
	assert.Error(t, err)
}

func TestSQLiteStore_CloseIdempotent(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	const numGoroutines = 20
	const numOps = 10

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for g := 0; g < numGoroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < numOps; i++ {
				key := fmt.Sprintf("key-%d-%d", g, i)
				assert.NoError(t, store.Put(ctx, storage.Record{Key: key, Value: []byte("data"), CreatedAt: epoch}))
				_, err := store.Get(ctx, key)
				assert.NoError(t, err)
			}
		}(g)
	}

	wg.Wait()

	infos, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, numGoroutines*numOps)
}
