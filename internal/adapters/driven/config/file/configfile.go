package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/catalandres/sfdx-core/internal/adapters/driven/project"
	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// Ensure ConfigFile implements the interface.
var _ driven.ConfigFile = (*ConfigFile)(nil)

// indent is the fixed indentation of written documents.
const indent = "    "

// Options locate a ConfigFile.
type Options struct {
	// FileName is relative to the state folder, e.g. "alias.json" or
	// "orgs/00D....json".
	FileName string
	// Global selects the user-global state folder instead of the
	// nearest project's.
	Global bool
	// Locations roots path resolution.
	Locations project.Locations
}

// ConfigFile is a JSON document bound to one resolved file path.
// Set and Unset only touch the in-memory copy; Write persists it with
// owner-only permissions.
type ConfigFile struct {
	mu       sync.RWMutex
	filePath string
	exists   bool
	contents map[string]any
}

// NewConfigFile resolves the file path for opts without reading it.
// Local scope outside a project fails with ErrPathIsNullOrUndefined.
func NewConfigFile(opts Options) (*ConfigFile, error) {
	if opts.FileName == "" {
		return nil, &domain.MissingArgError{Which: "FileName"}
	}

	root := opts.Locations.ResolveRootFolder(opts.Global)
	if root == "" {
		return nil, fmt.Errorf("%w: no project found for local %s",
			domain.ErrPathIsNullOrUndefined, opts.FileName)
	}

	return NewConfigFileAt(filepath.Join(root, domain.StateFolder, opts.FileName)), nil
}

// NewConfigFileAt binds a ConfigFile to an explicit path.
func NewConfigFileAt(path string) *ConfigFile {
	return &ConfigFile{
		filePath: path,
		contents: make(map[string]any),
	}
}

// Create resolves and reads a ConfigFile in one step.
func Create(opts Options) (*ConfigFile, error) {
	c, err := NewConfigFile(opts)
	if err != nil {
		return nil, err
	}
	if _, err := c.Read(); err != nil {
		return nil, err
	}
	return c, nil
}

// Read loads the document from disk. A missing file yields an empty
// document and Exists() == false.
func (c *ConfigFile) Read() (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.exists = false
			c.contents = make(map[string]any)
			return copyMap(c.contents), nil
		}
		return nil, fmt.Errorf("reading %s: %w", c.filePath, err)
	}

	doc, err := ParseJSON(data, c.filePath)
	if err != nil {
		return nil, err
	}

	c.exists = true
	c.contents = doc
	return copyMap(c.contents), nil
}

// Write persists contents, or the in-memory copy when contents is nil.
// Parent directories are created as needed.
func (c *ConfigFile) Write(contents map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if contents != nil {
		c.contents = copyMap(contents)
	}

	data, err := Marshal(c.contents)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c.filePath, err)
	}

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0700); err != nil {
		return fmt.Errorf("creating directory for %s: %w", c.filePath, err)
	}

	// Write with restricted permissions
	if err := os.WriteFile(c.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", c.filePath, err)
	}
	// WriteFile keeps the mode of a pre-existing file.
	if err := os.Chmod(c.filePath, 0600); err != nil {
		return fmt.Errorf("restricting %s: %w", c.filePath, err)
	}

	c.exists = true
	return nil
}

// Marshal renders v the way documents are written: 4-space indentation,
// no HTML escaping, no trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Get retrieves a value by key.
func (c *ConfigFile) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, ok := c.contents[key]
	return val, ok
}

// GetString retrieves a string value, or "" if absent or not a string.
func (c *ConfigFile) GetString(key string) string {
	val, ok := c.Get(key)
	if !ok {
		return ""
	}
	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// Set stores a value in memory.
func (c *ConfigFile) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contents[key] = value
}

// Unset removes a key from memory.
func (c *ConfigFile) Unset(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.contents[key]
	delete(c.contents, key)
	return ok
}

// Contents returns a copy of the in-memory document.
func (c *ConfigFile) Contents() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.contents)
}

// Exists reports whether the file existed at the last Read or Write.
func (c *ConfigFile) Exists() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exists
}

// Unlink removes the file. A missing file is not an error.
func (c *ConfigFile) Unlink() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", c.filePath, err)
	}
	c.exists = false
	return nil
}

// Path returns the resolved file path.
func (c *ConfigFile) Path() string {
	return c.filePath
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
