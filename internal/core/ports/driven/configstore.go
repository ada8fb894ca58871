package driven

// ConfigFile is a persisted key/value JSON document bound to one path.
// Mutations only touch the in-memory copy until Write is called.
type ConfigFile interface {
	// Read loads the document from disk, replacing the in-memory copy.
	Read() (map[string]any, error)

	// Write persists contents, or the in-memory copy when contents is nil.
	Write(contents map[string]any) error

	// Get retrieves a value by top-level key.
	Get(key string) (any, bool)

	// Set stores a value in memory.
	Set(key string, value any)

	// Unset removes a key from memory. Returns true if it was present.
	Unset(key string) bool

	// Contents returns a copy of the in-memory document.
	Contents() map[string]any

	// Exists reports whether the backing file exists.
	Exists() bool

	// Unlink removes the backing file. A missing file is not an error.
	Unlink() error

	// Path returns the resolved file path.
	Path() string
}

// SettingsStore provides access to tool runtime settings.
// Implementations handle persistence (e.g., TOML files) and type conversion.
type SettingsStore interface {
	// Get retrieves a setting by dotted key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt returns 0 if key doesn't exist or isn't an integer.
	GetInt(key string) int

	// GetBool returns false if key doesn't exist or isn't a boolean.
	GetBool(key string) bool

	// Set stores a setting and persists immediately.
	Set(key string, value any) error

	// Save persists the current settings to storage.
	Save() error

	// Load reads settings from storage.
	Load() error

	// Path returns the settings file path.
	Path() string
}

// StateFiles opens config documents and manages state folders for both
// scopes.
type StateFiles interface {
	// ConfigFile resolves (without reading) the document name in the
	// global or local state folder. Local scope outside a project fails
	// with domain.ErrPathIsNullOrUndefined.
	ConfigFile(name string, global bool) (ConfigFile, error)

	// GlobalStateDir returns the user-global state folder.
	GlobalStateDir() string

	// LocalStateDir returns the project state folder or
	// domain.ErrInvalidProjectWorkspace outside a project.
	LocalStateDir() (string, error)

	// RemoveAll deletes path recursively. A missing path is not an error.
	RemoveAll(path string) error

	// ListGlobal returns the base names of files in the global state
	// folder matching pattern.
	ListGlobal(pattern string) ([]string, error)
}
