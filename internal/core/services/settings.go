package services

import (
	"fmt"
	"time"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
	"github.com/catalandres/sfdx-core/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Keys for settings storage.
const (
	keyHandshakeTimeout = "streaming.handshake_timeout_seconds"
	keySubscribeTimeout = "streaming.subscribe_timeout_seconds"
	keyLogVerbose       = "log.verbose"
	keyKeyringBackend   = "keyring.backend"
	keyKeyringFileDir   = "keyring.file_dir"
)

// SettingsService manages tool runtime settings.
type SettingsService struct {
	store driven.SettingsStore
}

// NewSettingsService creates a new settings service. A nil store yields
// defaults and refuses to save.
func NewSettingsService(store driven.SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Get retrieves current settings.
func (s *SettingsService) Get() (*domain.RuntimeSettings, error) {
	defaults := domain.DefaultRuntimeSettings()
	if s.store == nil {
		return &defaults, nil
	}

	settings := &domain.RuntimeSettings{
		Streaming: domain.StreamingSettings{
			HandshakeTimeout: s.getSeconds(keyHandshakeTimeout, defaults.Streaming.HandshakeTimeout),
			SubscribeTimeout: s.getSeconds(keySubscribeTimeout, defaults.Streaming.SubscribeTimeout),
		},
		Log: domain.LogSettings{
			Verbose: s.getBool(keyLogVerbose, defaults.Log.Verbose),
		},
		Keyring: domain.KeyringSettings{
			Backend: s.getBackend(defaults.Keyring.Backend),
			FileDir: s.store.GetString(keyKeyringFileDir),
		},
	}
	return settings, nil
}

// Save persists settings.
func (s *SettingsService) Save(settings *domain.RuntimeSettings) error {
	if s.store == nil {
		return fmt.Errorf("%w: no settings store", domain.ErrInvalidInput)
	}
	if !settings.Keyring.Backend.IsValid() {
		return fmt.Errorf("%w: keyring backend %q", domain.ErrInvalidInput, settings.Keyring.Backend)
	}

	if err := s.store.Set(keyHandshakeTimeout, int(settings.Streaming.HandshakeTimeout/time.Second)); err != nil {
		return fmt.Errorf("save handshake timeout: %w", err)
	}
	if err := s.store.Set(keySubscribeTimeout, int(settings.Streaming.SubscribeTimeout/time.Second)); err != nil {
		return fmt.Errorf("save subscribe timeout: %w", err)
	}
	if err := s.store.Set(keyLogVerbose, settings.Log.Verbose); err != nil {
		return fmt.Errorf("save log verbose: %w", err)
	}
	if err := s.store.Set(keyKeyringBackend, string(settings.Keyring.Backend)); err != nil {
		return fmt.Errorf("save keyring backend: %w", err)
	}
	if err := s.store.Set(keyKeyringFileDir, settings.Keyring.FileDir); err != nil {
		return fmt.Errorf("save keyring file dir: %w", err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.RuntimeSettings {
	return domain.DefaultRuntimeSettings()
}

// Helper methods for reading settings with defaults.

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	val := s.store.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Second
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.store.Get(key); !exists {
		return defaultVal
	}
	return s.store.GetBool(key)
}

func (s *SettingsService) getBackend(defaultVal domain.KeyringBackend) domain.KeyringBackend {
	backend := domain.KeyringBackend(s.store.GetString(keyKeyringBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
