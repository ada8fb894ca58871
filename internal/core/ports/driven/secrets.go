package driven

// Cipher encrypts and decrypts secret credential fields.
type Cipher interface {
	// Encrypt returns the ciphertext of plaintext.
	Encrypt(plaintext string) (string, error)
	// Decrypt returns the plaintext of ciphertext or a domain.ErrCrypto error.
	// It never returns unauthenticated plaintext.
	Decrypt(ciphertext string) (string, error)
}

// KeyRepository stores the symmetric key used by a Cipher.
// Get returns domain.ErrNotFound when no key has been stored yet.
type KeyRepository interface {
	Get(account string) (string, error)
	Set(account, value string) error
}
