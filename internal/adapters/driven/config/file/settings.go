package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore keeps tool runtime settings in settings.toml inside the
// global state folder. Keys are dotted ("streaming.handshake_timeout_seconds")
// in memory and [section] tables on disk.
type SettingsStore struct {
	mu       sync.RWMutex
	filePath string
	values   map[string]any
}

// NewSettingsStore opens the settings file in stateDir, ~/.sfdx when
// empty. A missing file is an empty store; a malformed one is an error.
func NewSettingsStore(stateDir string) (*SettingsStore, error) {
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		stateDir = filepath.Join(home, domain.StateFolder)
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating %s: %w", stateDir, err)
	}

	s := &SettingsStore{
		filePath: filepath.Join(stateDir, domain.SettingsFileName),
		values:   make(map[string]any),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a setting by dotted key.
func (s *SettingsStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString returns "" for missing or non-string settings.
func (s *SettingsStore) GetString(key string) string {
	str, _ := lookup[string](s, key)
	return str
}

// GetInt returns 0 for missing or non-integer settings. Values read back
// from TOML are int64.
func (s *SettingsStore) GetInt(key string) int {
	if v, ok := lookup[int64](s, key); ok {
		return int(v)
	}
	v, _ := lookup[int](s, key)
	return v
}

// GetBool returns false for missing or non-boolean settings.
func (s *SettingsStore) GetBool(key string) bool {
	b, _ := lookup[bool](s, key)
	return b
}

func lookup[T any](s *SettingsStore, key string) (T, bool) {
	val, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := val.(T)
	return typed, ok
}

// Set stores a setting and writes the file.
func (s *SettingsStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.write()
}

// Save writes the file.
func (s *SettingsStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// write must be called with mu held.
func (s *SettingsStore) write() error {
	data, err := toml.Marshal(unflattenMap(s.values))
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", s.filePath, err)
	}
	if err := os.Chmod(s.filePath, 0600); err != nil {
		return fmt.Errorf("restricting %s: %w", s.filePath, err)
	}
	return nil
}

// Load replaces the in-memory settings with the file contents.
func (s *SettingsStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.values = make(map[string]any)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.filePath, err)
	}

	tables := make(map[string]any)
	if err := toml.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	s.values = flattenMap(tables, "")
	return nil
}

// Path returns the settings file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

// flattenMap turns nested tables into dotted keys:
// {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(tables map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)
	for key, value := range tables {
		if prefix != "" {
			key = prefix + "." + key
		}
		nested, ok := value.(map[string]any)
		if !ok {
			flat[key] = value
			continue
		}
		for k, v := range flattenMap(nested, key) {
			flat[k] = v
		}
	}
	return flat
}

// unflattenMap is the inverse of flattenMap.
func unflattenMap(flat map[string]any) map[string]any {
	tables := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		table := tables
		for _, part := range parts[:len(parts)-1] {
			next, ok := table[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				table[part] = next
			}
			table = next
		}
		table[parts[len(parts)-1]] = value
	}
	return tables
}
