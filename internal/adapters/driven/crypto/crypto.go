// Package crypto encrypts the secret fields of credential records.
//
// The symmetric key lives in a KeyRepository (the OS keyring in
// production) and is created on first use. Shared loads it once per
// process; every later call reuses the same key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// Ensure Crypto implements the interface.
var _ driven.Cipher = (*Crypto)(nil)

// keyLength is the AES-256 key size in bytes.
const keyLength = 32

// Crypto is an AES-256-GCM cipher. Ciphertext is base64(nonce || sealed).
type Crypto struct {
	aead cipher.AEAD
}

// New creates a Crypto from raw key bytes.
func New(key []byte) (*Crypto, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", domain.ErrCrypto, keyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: create cipher: %v", domain.ErrCrypto, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: create gcm: %v", domain.ErrCrypto, err)
	}
	return &Crypto{aead: aead}, nil
}

// Open loads the key from repo, generating and storing one when absent.
func Open(repo driven.KeyRepository) (*Crypto, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: no key repository", domain.ErrCrypto)
	}

	stored, err := repo.Get(domain.KeyringAccount)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		stored, err = generateKey()
		if err != nil {
			return nil, err
		}
		if err := repo.Set(domain.KeyringAccount, stored); err != nil {
			return nil, fmt.Errorf("%w: storing key: %v", domain.ErrCrypto, err)
		}
	case err != nil:
		return nil, fmt.Errorf("%w: key repository unavailable: %v", domain.ErrCrypto, err)
	}

	key, err := hex.DecodeString(stored)
	if err != nil {
		return nil, fmt.Errorf("%w: stored key is not valid hex", domain.ErrCrypto)
	}
	return New(key)
}

var shared struct {
	once   sync.Once
	crypto *Crypto
	err    error
}

// Shared returns the process-wide Crypto, opening it from repo on the
// first call. Later calls ignore repo and return the same result,
// including a failed first open.
func Shared(repo driven.KeyRepository) (*Crypto, error) {
	shared.once.Do(func() {
		shared.crypto, shared.err = Open(repo)
	})
	return shared.crypto, shared.err
}

func generateKey() (string, error) {
	key := make([]byte, keyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("%w: generating key: %v", domain.ErrCrypto, err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt returns the ciphertext of plaintext. Empty input stays empty.
func (c *Crypto) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: nonce generation failed: %v", domain.ErrCrypto, err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt returns the plaintext of ciphertext. Tampered, truncated or
// foreign-key ciphertext fails with ErrCrypto.
func (c *Crypto) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not base64", domain.ErrCrypto)
	}
	if len(data) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrCrypto)
	}

	nonce, sealed := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", domain.ErrCrypto)
	}
	return string(plaintext), nil
}
