package driving

import "github.com/catalandres/sfdx-core/internal/core/domain"

// SettingsService manages tool runtime settings.
type SettingsService interface {
	// Get retrieves current settings, with defaults for unset values.
	Get() (*domain.RuntimeSettings, error)

	// Save persists settings.
	Save(settings *domain.RuntimeSettings) error

	// GetDefaults returns default settings.
	GetDefaults() domain.RuntimeSettings
}
