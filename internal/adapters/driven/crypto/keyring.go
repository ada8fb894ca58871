package crypto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// Ensure KeyringRepository implements the interface.
var _ driven.KeyRepository = (*KeyringRepository)(nil)

// KeyringRepository stores the encryption key in an OS keyring.
type KeyringRepository struct {
	ring keyring.Keyring
}

// KeyringConfig selects the keyring backend.
type KeyringConfig struct {
	// Backend is one of "", "file", "keychain", "secret-service",
	// "wincred", "kwallet", "pass", "keyctl". Empty lets the library pick.
	Backend string
	// FileDir holds the encrypted file backend.
	FileDir string
	// FilePassword unlocks the file backend.
	FilePassword string
}

// NewKeyringRepository wraps an opened keyring.
func NewKeyringRepository(ring keyring.Keyring) *KeyringRepository {
	return &KeyringRepository{ring: ring}
}

// OpenKeyring opens the OS keyring for the CLI's service name.
func OpenKeyring(cfg KeyringConfig) (*KeyringRepository, error) {
	krCfg := keyring.Config{
		ServiceName:              domain.KeyringService,
		KeychainTrustApplication: true,
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(cfg.FilePassword),
	}
	if backend := strings.TrimSpace(cfg.Backend); backend != "" {
		krCfg.AllowedBackends = []keyring.BackendType{keyring.BackendType(backend)}
	}

	ring, err := keyring.Open(krCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: opening keyring: %v", domain.ErrCrypto, err)
	}
	return NewKeyringRepository(ring), nil
}

// Get returns the stored value for account or domain.ErrNotFound.
func (r *KeyringRepository) Get(account string) (string, error) {
	item, err := r.ring.Get(account)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return string(item.Data), nil
}

// Set stores value for account.
func (r *KeyringRepository) Set(account, value string) error {
	return r.ring.Set(keyring.Item{
		Key:   account,
		Data:  []byte(value),
		Label: domain.KeyringService + ": " + account,
	})
}
