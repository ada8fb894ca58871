package domain

import "time"

// KeyringBackend selects where the encryption key is kept.
type KeyringBackend string

// Keyring backends. KeyringBackendAuto lets the OS pick.
const (
	KeyringBackendAuto          KeyringBackend = ""
	KeyringBackendFile          KeyringBackend = "file"
	KeyringBackendKeychain      KeyringBackend = "keychain"
	KeyringBackendSecretService KeyringBackend = "secret-service"
	KeyringBackendWinCred       KeyringBackend = "wincred"
	KeyringBackendKWallet       KeyringBackend = "kwallet"
	KeyringBackendPass          KeyringBackend = "pass"
	KeyringBackendKeyCtl        KeyringBackend = "keyctl"
)

// IsValid returns true if the backend is recognised.
func (b KeyringBackend) IsValid() bool {
	switch b {
	case KeyringBackendAuto, KeyringBackendFile, KeyringBackendKeychain,
		KeyringBackendSecretService, KeyringBackendWinCred, KeyringBackendKWallet,
		KeyringBackendPass, KeyringBackendKeyCtl:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b KeyringBackend) String() string {
	if b == KeyringBackendAuto {
		return "auto"
	}
	return string(b)
}

// StreamingSettings bound the streaming client's waits.
type StreamingSettings struct {
	HandshakeTimeout time.Duration
	SubscribeTimeout time.Duration
}

// LogSettings control diagnostic output.
type LogSettings struct {
	Verbose bool
}

// KeyringSettings locate the encryption key.
type KeyringSettings struct {
	Backend KeyringBackend
	// FileDir is used by the file backend.
	FileDir string
}

// RuntimeSettings are tool settings kept outside the JSON config
// documents.
type RuntimeSettings struct {
	Streaming StreamingSettings
	Log       LogSettings
	Keyring   KeyringSettings
}

// Streaming timeout defaults.
const (
	DefaultHandshakeTimeout = time.Minute
	DefaultSubscribeTimeout = 3 * time.Minute
)

// DefaultRuntimeSettings returns the settings used when nothing is stored.
func DefaultRuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		Streaming: StreamingSettings{
			HandshakeTimeout: DefaultHandshakeTimeout,
			SubscribeTimeout: DefaultSubscribeTimeout,
		},
	}
}
