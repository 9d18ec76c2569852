package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/randalmurphal/clipkit/pkg/clipkit/cipher"
	"github.com/randalmurphal/clipkit/pkg/clipkit/storage"
	"github.com/randalmurphal/clipkit/pkg/clipkit/vault"
)

// saltKey holds the passphrase salt. It is written without an expiry.
const saltKey = "cipher.salt"

// openStore opens the SQLite database at path, or a memory store when path
// is empty.
func openStore(path string) (storage.Store, error) {
	if path == "" {
		return storage.NewMemoryStore(), nil
	}
	s, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	return s, nil
}

// openVault wraps store in a vault. With a passphrase the vault can encrypt,
// using a salt persisted in the same store on first use.
func openVault(ctx context.Context, store storage.Store, passphrase string, logger *slog.Logger) (*vault.Vault, error) {
	opts := []vault.Option{vault.WithLogger(logger)}
	if passphrase != "" {
		salt, err := loadSalt(ctx, store)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load salt", err)
		}
		enc, err := cipher.NewFromPassphrase(passphrase, salt)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "derive key", err)
		}
		opts = append(opts, vault.WithEncryptor(enc))
	}
	return vault.New(store, opts...), nil
}

func loadSalt(ctx context.Context, store storage.Store) ([]byte, error) {
	rec, err := store.Get(ctx, saltKey)
	if err == nil {
		return rec.Value, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	salt, err := cipher.NewSalt()
	if err != nil {
		return nil, err
	}
	rec = storage.Record{Key: saltKey, Value: salt, CreatedAt: time.Now()}
	if err := store.Put(ctx, rec); err != nil {
		return nil, err
	}
	return salt, nil
}
