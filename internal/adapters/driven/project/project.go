// Package project resolves where config and state files live: the
// user-global state folder and the nearest project root.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/catalandres/sfdx-core/internal/core/domain"
)

// Locations roots every path resolution. HomeDir holds the global state
// folder; WorkDir is where the upward project search starts.
type Locations struct {
	HomeDir string
	WorkDir string
}

// DefaultLocations uses the user's home directory and the current
// working directory.
func DefaultLocations() (Locations, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Locations{}, fmt.Errorf("getting home directory: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return Locations{}, fmt.Errorf("getting working directory: %w", err)
	}
	return Locations{HomeDir: home, WorkDir: wd}, nil
}

// GlobalStateDir returns the user-global state folder, e.g. ~/.sfdx.
func (l Locations) GlobalStateDir() string {
	return filepath.Join(l.HomeDir, domain.StateFolder)
}

// ResolveRootFolder returns the folder that holds the state folder for
// the given scope. Local scope returns "" when no project is found.
func (l Locations) ResolveRootFolder(global bool) string {
	if global {
		return l.HomeDir
	}
	root, err := ResolveProjectPath(l.WorkDir)
	if err != nil {
		return ""
	}
	return root
}

// LocalStateDir returns <projectRoot>/.sfdx or ErrInvalidProjectWorkspace.
func (l Locations) LocalStateDir() (string, error) {
	root, err := ResolveProjectPath(l.WorkDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, domain.StateFolder), nil
}

// ResolveProjectPath walks upward from dir to the filesystem root and
// returns the first directory containing the project marker file.
func ResolveProjectPath(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: no directory to search", domain.ErrInvalidProjectWorkspace)
	}
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}

	for {
		_, err := os.Stat(filepath.Join(current, domain.ProjectFileName))
		if err == nil {
			return current, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", current, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w: %s does not contain %s",
				domain.ErrInvalidProjectWorkspace, dir, domain.ProjectFileName)
		}
		current = parent
	}
}

// File is the subset of the project file this module reads.
type File struct {
	SourceAPIVersion string             `json:"sourceApiVersion,omitempty"`
	LoginURL         string             `json:"sfdcLoginUrl,omitempty"`
	Namespace        string             `json:"namespace,omitempty"`
	PackageDirs      []PackageDirectory `json:"packageDirectories,omitempty"`

	// Contents is the whole document, including keys not modelled above.
	Contents map[string]any `json:"-"`
}

// PackageDirectory is one entry of the project's package directories.
type PackageDirectory struct {
	Path    string `json:"path"`
	Default bool   `json:"default,omitempty"`
}

// Load reads the project file at root. Comments and trailing commas
// are tolerated.
func Load(root string) (*File, error) {
	path := filepath.Join(root, domain.ProjectFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	clean := jsonc.ToJSON(data)
	var file File
	if err := json.Unmarshal(clean, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := json.Unmarshal(clean, &file.Contents); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &file, nil
}
