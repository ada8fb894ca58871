package services

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

var apiVersionPattern = regexp.MustCompile(`^\d+\.0$`)

// allowedKey describes one recognised config key.
type allowedKey struct {
	description string
	// parse validates a raw value and returns what is stored.
	parse func(string) (any, error)
}

var allowedKeys = map[string]allowedKey{
	domain.ConfigKeyAPIVersion: {
		description: "API version to use, e.g. 60.0",
		parse: func(v string) (any, error) {
			if !apiVersionPattern.MatchString(v) {
				return nil, fmt.Errorf("must be of the form <number>.0")
			}
			return v, nil
		},
	},
	domain.ConfigKeyDefaultUsername: {
		description: "username or alias of the default org",
		parse:       parseNonEmpty,
	},
	domain.ConfigKeyDefaultDevHubUsername: {
		description: "username or alias of the default dev hub",
		parse:       parseNonEmpty,
	},
	domain.ConfigKeyInstanceURL: {
		description: "instance URL used for logins",
		parse: func(v string) (any, error) {
			u, err := url.Parse(v)
			if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
				return nil, fmt.Errorf("must be an http or https URL")
			}
			return v, nil
		},
	},
	domain.ConfigKeyMaxQueryLimit: {
		description: "maximum number of records a query returns",
		parse: func(v string) (any, error) {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("must be a positive integer")
			}
			return n, nil
		},
	},
	domain.ConfigKeyDisableTelemetry: {
		description: "true to disable usage telemetry",
		parse: func(v string) (any, error) {
			switch strings.ToLower(v) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
			return nil, fmt.Errorf("must be true or false")
		},
	},
}

func parseNonEmpty(v string) (any, error) {
	if strings.TrimSpace(v) == "" {
		return nil, fmt.Errorf("must not be empty")
	}
	return v, nil
}

// ConfigKeys returns the recognised config keys, sorted.
func ConfigKeys() []string {
	keys := make([]string, 0, len(allowedKeys))
	for key := range allowedKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// DescribeConfigKey returns a one-line description of key.
func DescribeConfigKey(key string) string {
	return allowedKeys[key].description
}

// ParseConfigValue validates value for key and returns the typed value
// to store.
func ParseConfigValue(key, value string) (any, error) {
	spec, ok := allowedKeys[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}
	parsed, err := spec.parse(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %v", domain.ErrInvalidConfigValue, key, err)
	}
	return parsed, nil
}

// SfdxConfig is the config document of one scope, restricted to the
// recognised keys.
type SfdxConfig struct {
	file   driven.ConfigFile
	global bool
}

// NewSfdxConfig resolves and reads the config document of one scope.
func NewSfdxConfig(files driven.StateFiles, global bool) (*SfdxConfig, error) {
	file, err := files.ConfigFile(domain.ConfigFileName, global)
	if err != nil {
		return nil, err
	}
	if _, err := file.Read(); err != nil {
		return nil, err
	}
	return &SfdxConfig{file: file, global: global}, nil
}

// IsGlobal reports the scope of the document.
func (c *SfdxConfig) IsGlobal() bool {
	return c.global
}

// Get returns the stored value of key.
func (c *SfdxConfig) Get(key string) (any, bool) {
	return c.file.Get(key)
}

// Set validates value and stores it in memory.
func (c *SfdxConfig) Set(key, value string) error {
	parsed, err := ParseConfigValue(key, value)
	if err != nil {
		return err
	}
	c.file.Set(key, parsed)
	return nil
}

// Unset removes key from memory.
func (c *SfdxConfig) Unset(key string) bool {
	return c.file.Unset(key)
}

// Write persists the document.
func (c *SfdxConfig) Write() error {
	return c.file.Write(nil)
}

// Contents returns a copy of the document.
func (c *SfdxConfig) Contents() map[string]any {
	return c.file.Contents()
}

// Path returns the document's file path.
func (c *SfdxConfig) Path() string {
	return c.file.Path()
}
