// Package cipher provides the reference encryption capability for the vault.
//
// XChaCha seals values with XChaCha20-Poly1305 using a random 24-byte nonce
// that is prepended to the ciphertext. Keys are either supplied directly
// (32 bytes) or derived from a passphrase with Argon2id.
package cipher

import (
	"context"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of an XChaCha key in bytes.
const KeySize = chacha20poly1305.KeySize

// SaltSize is the length of salts produced by NewSalt.
const SaltSize = 16

// Argon2id parameters for passphrase derivation.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Sentinel errors.
var (
	// ErrInvalidKey indicates a key of the wrong length.
	ErrInvalidKey = errors.New("invalid key length")

	// ErrInvalidSalt indicates an empty or short salt.
	ErrInvalidSalt = errors.New("invalid salt")

	// ErrCiphertextTooShort indicates input shorter than a nonce plus tag.
	ErrCiphertextTooShort = errors.New("ciphertext too short")

	// ErrAuthentication indicates the ciphertext failed authentication.
	ErrAuthentication = errors.New("message authentication failed")
)

// XChaCha encrypts and decrypts values with XChaCha20-Poly1305.
// It is safe for concurrent use.
type XChaCha struct {
	aead stdcipher.AEAD
}

// New creates an XChaCha encryptor from a 32-byte key.
func New(key []byte) (*XChaCha, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}
	return &XChaCha{aead: aead}, nil
}

// NewFromPassphrase derives a key from passphrase and salt with Argon2id.
// The same passphrase and salt always yield the same key.
func NewFromPassphrase(passphrase string, salt []byte) (*XChaCha, error) {
	if len(salt) < 8 {
		return nil, fmt.Errorf("%w: need at least 8 bytes, got %d", ErrInvalidSalt, len(salt))
	}
	key := DeriveKey(passphrase, salt)
	return New(key)
}

// DeriveKey runs Argon2id over passphrase and salt.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, KeySize)
}

// GenerateKey returns a fresh random key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// NewSalt returns a fresh random salt for NewFromPassphrase.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Encrypt seals plaintext. The result is nonce || ciphertext || tag.
func (x *XChaCha) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nonce := make([]byte, x.aead.NonceSize(), x.aead.NonceSize()+len(plaintext)+x.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return x.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a value produced by Encrypt.
func (x *XChaCha) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ns := x.aead.NonceSize()
	if len(ciphertext) < ns+x.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err := x.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
