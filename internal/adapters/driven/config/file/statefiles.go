package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/catalandres/sfdx-core/internal/adapters/driven/project"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// Ensure StateFiles implements the interface.
var _ driven.StateFiles = (*StateFiles)(nil)

// StateFiles opens ConfigFiles relative to a fixed set of Locations.
type StateFiles struct {
	loc project.Locations
}

// NewStateFiles creates a StateFiles rooted at loc.
func NewStateFiles(loc project.Locations) *StateFiles {
	return &StateFiles{loc: loc}
}

// ConfigFile resolves name in the requested scope without reading it.
func (s *StateFiles) ConfigFile(name string, global bool) (driven.ConfigFile, error) {
	cf, err := NewConfigFile(Options{FileName: name, Global: global, Locations: s.loc})
	if err != nil {
		return nil, err
	}
	return cf, nil
}

// GlobalStateDir returns the user-global state folder.
func (s *StateFiles) GlobalStateDir() string {
	return s.loc.GlobalStateDir()
}

// LocalStateDir returns the project state folder.
func (s *StateFiles) LocalStateDir() (string, error) {
	return s.loc.LocalStateDir()
}

// RemoveAll deletes path recursively.
func (s *StateFiles) RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// ListGlobal returns sorted base names in the global state folder that
// match pattern.
func (s *StateFiles) ListGlobal(pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.GlobalStateDir(), pattern))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", pattern, err)
	}

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		names = append(names, filepath.Base(match))
	}
	sort.Strings(names)
	return names, nil
}
