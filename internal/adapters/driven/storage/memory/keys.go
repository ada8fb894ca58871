package memory

import (
	"sync"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// Ensure KeyRepository implements the interface.
var _ driven.KeyRepository = (*KeyRepository)(nil)

// KeyRepository is an in-memory driven.KeyRepository.
type KeyRepository struct {
	mu     sync.RWMutex
	values map[string]string
	// Err, when set, is returned by every call.
	Err error
}

// NewKeyRepository creates an empty key repository.
func NewKeyRepository() *KeyRepository {
	return &KeyRepository{values: make(map[string]string)}
}

// Get returns the value for account or domain.ErrNotFound.
func (r *KeyRepository) Get(account string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return "", r.Err
	}
	val, ok := r.values[account]
	if !ok {
		return "", domain.ErrNotFound
	}
	return val, nil
}

// Set stores value for account.
func (r *KeyRepository) Set(account, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.values[account] = value
	return nil
}
