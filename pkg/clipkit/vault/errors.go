package vault

import "errors"

// Sentinel errors for vault operations.
var (
	// ErrEncryptionFailed indicates an encrypted write could not be sealed.
	// Nothing is persisted when this is returned.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed indicates a stored encrypted value could not be opened.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrNoEncryptor indicates an encrypted entry with no Encryptor configured.
	ErrNoEncryptor = errors.New("no encryptor configured")

	// ErrNoSyncer indicates Sync was called with no Syncer configured.
	ErrNoSyncer = errors.New("no syncer configured")

	// ErrEmptyKey indicates an empty entry key.
	ErrEmptyKey = errors.New("empty key")
)
