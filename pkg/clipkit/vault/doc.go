// Package vault is the secure key-value store of a clip session.
//
// A Vault upserts values under string keys into a storage.Store backend.
// Values written with Encrypted() pass through an Encryptor first; if
// encryption fails the write fails and nothing is persisted. Every entry
// carries an expiry derived from the retention period (seven days unless
// configured otherwise), and expired entries read as absent until an
// eviction sweep removes them.
//
//	v := vault.New(storage.NewMemoryStore(), vault.WithEncryptor(enc))
//	err := v.Store(ctx, "cart", data, vault.Encrypted())
//	data, ok, err := v.Retrieve(ctx, "cart")
//
// Sync pushes the live entries, still in their stored form, to an optional
// Syncer collaborator.
package vault
