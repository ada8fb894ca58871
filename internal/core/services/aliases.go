package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
	"github.com/catalandres/sfdx-core/internal/core/ports/driving"
)

// Ensure Aliases implements the interface.
var _ driving.AliasService = (*Aliases)(nil)

// Aliases maps short names to usernames. The mapping lives in the
// "orgs" group of the global alias document.
type Aliases struct {
	files driven.StateFiles
	mu    sync.Mutex
}

// NewAliases creates an alias store over the global state folder.
func NewAliases(files driven.StateFiles) *Aliases {
	return &Aliases{files: files}
}

// open reads the alias document and returns it with its orgs group.
func (a *Aliases) open() (driven.ConfigFile, map[string]string, error) {
	file, err := a.files.ConfigFile(domain.AliasFileName, true)
	if err != nil {
		return nil, nil, err
	}
	if _, err := file.Read(); err != nil {
		return nil, nil, err
	}

	group := make(map[string]string)
	if raw, ok := file.Get(domain.AliasGroupOrgs); ok {
		if m, ok := raw.(map[string]any); ok {
			for name, value := range m {
				if s, ok := value.(string); ok {
					group[name] = s
				}
			}
		}
	}
	return file, group, nil
}

func (a *Aliases) save(file driven.ConfigFile, group map[string]string) error {
	m := make(map[string]any, len(group))
	for name, value := range group {
		m[name] = value
	}
	file.Set(domain.AliasGroupOrgs, m)
	return file.Write(nil)
}

// ParseAndUpdate applies "name=value" pairs and writes the document
// once. A pair with an empty value removes the alias. Nothing is written
// if any pair is invalid.
func (a *Aliases) ParseAndUpdate(pairs []string) (map[string]string, error) {
	updates := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: alias %q must be of the form name=value", domain.ErrInvalidInput, pair)
		}
		name = strings.TrimSpace(name)
		if !domain.ValidKey(name) {
			return nil, fmt.Errorf("%w: invalid alias name %q", domain.ErrInvalidInput, name)
		}
		updates[name] = strings.TrimSpace(value)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	file, group, err := a.open()
	if err != nil {
		return nil, err
	}
	for name, value := range updates {
		if value == "" {
			delete(group, name)
			continue
		}
		group[name] = value
	}
	if err := a.save(file, group); err != nil {
		return nil, err
	}
	return updates, nil
}

// Fetch returns the value of name, or "" if it is not an alias.
func (a *Aliases) Fetch(name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, group, err := a.open()
	if err != nil {
		return "", err
	}
	return group[name], nil
}

// Resolve returns the username for an alias, or nameOrAlias unchanged.
func (a *Aliases) Resolve(nameOrAlias string) (string, error) {
	value, err := a.Fetch(nameOrAlias)
	if err != nil {
		return "", err
	}
	if value == "" {
		return nameOrAlias, nil
	}
	return value, nil
}

// Set stores one alias.
func (a *Aliases) Set(name, value string) error {
	_, err := a.ParseAndUpdate([]string{name + "=" + value})
	return err
}

// Unset removes one alias and writes the document.
func (a *Aliases) Unset(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, group, err := a.open()
	if err != nil {
		return err
	}
	if _, ok := group[name]; !ok {
		return nil
	}
	delete(group, name)
	return a.save(file, group)
}

// UnsetByValue removes every alias whose value is value.
func (a *Aliases) UnsetByValue(value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, group, err := a.open()
	if err != nil {
		return err
	}

	changed := false
	for name, v := range group {
		if v == value {
			delete(group, name)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return a.save(file, group)
}

// ByValue returns the alphabetically first alias pointing at value, or "".
func (a *Aliases) ByValue(value string) (string, error) {
	all, err := a.List()
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(all))
	for name, v := range all {
		if v == value {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return names[0], nil
}

// List returns every alias.
func (a *Aliases) List() (map[string]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, group, err := a.open()
	if err != nil {
		return nil, err
	}
	return group, nil
}
