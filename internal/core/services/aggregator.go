package services

import (
	"errors"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// envValue is one snapshotted environment override.
type envValue struct {
	name  string
	value string
}

// layer is one loaded config document.
type layer struct {
	path     string
	contents map[string]any
}

// ConfigAggregator is a read-only view over the environment, local and
// global config layers, in that order of precedence.
type ConfigAggregator struct {
	files   driven.StateFiles
	environ func() []string

	mu     sync.RWMutex
	env    map[string]envValue
	local  *layer
	global *layer
}

// AggregatorOption configures a ConfigAggregator.
type AggregatorOption func(*ConfigAggregator)

// WithEnviron replaces os.Environ as the environment source.
func WithEnviron(environ func() []string) AggregatorOption {
	return func(a *ConfigAggregator) {
		a.environ = environ
	}
}

// NewConfigAggregator snapshots the environment and loads both config
// documents. Outside a project the local layer is empty.
func NewConfigAggregator(files driven.StateFiles, opts ...AggregatorOption) (*ConfigAggregator, error) {
	a := &ConfigAggregator{
		files:   files,
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload re-reads all three layers from scratch.
func (a *ConfigAggregator) Reload() error {
	env := a.snapshotEnv()

	local, err := a.loadLayer(false)
	if err != nil {
		return err
	}
	global, err := a.loadLayer(true)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.env = env
	a.local = local
	a.global = global
	return nil
}

func (a *ConfigAggregator) snapshotEnv() map[string]envValue {
	vars := make(map[string]string)
	for _, kv := range a.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(name, domain.EnvPrefix) {
			vars[name] = value
		}
	}

	env := make(map[string]envValue)
	for _, key := range ConfigKeys() {
		name := domain.EnvVarName(key)
		if value, ok := vars[name]; ok {
			env[key] = envValue{name: name, value: value}
		}
	}
	return env
}

func (a *ConfigAggregator) loadLayer(global bool) (*layer, error) {
	file, err := a.files.ConfigFile(domain.ConfigFileName, global)
	if err != nil {
		if !global && errors.Is(err, domain.ErrPathIsNullOrUndefined) {
			return nil, nil
		}
		return nil, err
	}
	contents, err := file.Read()
	if err != nil {
		return nil, err
	}
	return &layer{path: file.Path(), contents: contents}, nil
}

// GetInfo resolves key against the highest-precedence layer defining it.
func (a *ConfigAggregator) GetInfo(key string) domain.ConfigInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if v, ok := a.env[key]; ok {
		return domain.ConfigInfo{Key: key, Value: v.value, Location: domain.LocationEnvironment, Path: v.name}
	}
	if a.local != nil {
		if v, ok := a.local.contents[key]; ok {
			return domain.ConfigInfo{Key: key, Value: v, Location: domain.LocationLocal, Path: a.local.path}
		}
	}
	if a.global != nil {
		if v, ok := a.global.contents[key]; ok {
			return domain.ConfigInfo{Key: key, Value: v, Location: domain.LocationGlobal, Path: a.global.path}
		}
	}
	return domain.ConfigInfo{Key: key, Location: domain.LocationNotFound}
}

// GetPropertyValue returns the resolved value of key, or nil.
func (a *ConfigAggregator) GetPropertyValue(key string) any {
	return a.GetInfo(key).Value
}

// GetString returns the resolved value of key as a string, or "".
func (a *ConfigAggregator) GetString(key string) string {
	s, _ := a.GetPropertyValue(key).(string)
	return s
}

// GetLocation returns the layer that supplies key.
func (a *ConfigAggregator) GetLocation(key string) domain.ConfigLocation {
	return a.GetInfo(key).Location
}

// List resolves every key defined in any layer, sorted by key.
func (a *ConfigAggregator) List() []domain.ConfigInfo {
	a.mu.RLock()
	seen := make(map[string]bool)
	for key := range a.env {
		seen[key] = true
	}
	for _, l := range []*layer{a.local, a.global} {
		if l == nil {
			continue
		}
		for key := range l.contents {
			seen[key] = true
		}
	}
	a.mu.RUnlock()

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	infos := make([]domain.ConfigInfo, 0, len(keys))
	for _, key := range keys {
		infos = append(infos, a.GetInfo(key))
	}
	return infos
}

// Paths returns the file paths of the loaded layers.
func (a *ConfigAggregator) Paths() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var paths []string
	if a.local != nil {
		paths = append(paths, a.local.path)
	}
	if a.global != nil {
		paths = append(paths, a.global.path)
	}
	return paths
}
