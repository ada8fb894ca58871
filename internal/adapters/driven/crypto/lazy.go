package crypto

import (
	"sync"

	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// Ensure Lazy implements the interface.
var _ driven.Cipher = (*Lazy)(nil)

// Lazy is a Cipher that opens its key on first use, so commands that
// never touch a credential record never touch the keyring.
type Lazy struct {
	open func() (*Crypto, error)

	once   sync.Once
	crypto *Crypto
	err    error
}

// NewLazy wraps open, which runs at most once.
func NewLazy(open func() (*Crypto, error)) *Lazy {
	return &Lazy{open: open}
}

func (l *Lazy) get() (*Crypto, error) {
	l.once.Do(func() {
		l.crypto, l.err = l.open()
	})
	return l.crypto, l.err
}

// Encrypt opens the key if needed and encrypts plaintext.
func (l *Lazy) Encrypt(plaintext string) (string, error) {
	c, err := l.get()
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext)
}

// Decrypt opens the key if needed and decrypts ciphertext.
func (l *Lazy) Decrypt(ciphertext string) (string, error) {
	c, err := l.get()
	if err != nil {
		return "", err
	}
	return c.Decrypt(ciphertext)
}
