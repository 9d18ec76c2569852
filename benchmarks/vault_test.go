package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/clipkit/pkg/clipkit/cipher"
	"github.com/randalmurphal/clipkit/pkg/clipkit/storage"
	"github.com/randalmurphal/clipkit/pkg/clipkit/vault"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encryptor(b *testing.B) *cipher.XChaCha {
	b.Helper()
	key, err := cipher.GenerateKey()
	if err != nil {
		b.Fatal(err)
	}
	enc, err := cipher.New(key)
	if err != nil {
		b.Fatal(err)
	}
	return enc
}

var payload = []byte(`{"sku":"sku-42","size":"m","qty":1}`)

// BenchmarkVault_Store_Memory writes plaintext entries to memory.
func BenchmarkVault_Store_Memory(b *testing.B) {
	v := vault.New(storage.NewMemoryStore(), vault.WithLogger(quietLogger()))
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = v.Store(ctx, fmt.Sprintf("k%d", i%100), payload)
	}
}

// BenchmarkVault_StoreEncrypted_Memory adds XChaCha20-Poly1305 sealing.
func BenchmarkVault_StoreEncrypted_Memory(b *testing.B) {
	v := vault.New(storage.NewMemoryStore(),
		vault.WithEncryptor(encryptor(b)),
		vault.WithLogger(quietLogger()),
	)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = v.Store(ctx, fmt.Sprintf("k%d", i%100), payload, vault.Encrypted())
	}
}

// BenchmarkVault_RetrieveEncrypted_SQLite reads and opens a sealed entry.
func BenchmarkVault_RetrieveEncrypted_SQLite(b *testing.B) {
	store, err := storage.NewSQLiteStore(filepath.Join(b.TempDir(), "vault.db"))
	if err != nil {
		b.Fatal(err)
	}
	v := vault.New(store, vault.WithEncryptor(encryptor(b)), vault.WithLogger(quietLogger()))
	b.Cleanup(func() { _ = v.Close() })

	ctx := context.Background()
	if err := v.Store(ctx, "cart", payload, vault.Encrypted()); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = v.Retrieve(ctx, "cart")
	}
}
