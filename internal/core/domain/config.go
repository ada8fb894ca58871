package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ConfigLocation names the layer that supplied an aggregated config value.
type ConfigLocation string

// Config layers, highest precedence first.
const (
	LocationEnvironment ConfigLocation = "ENVIRONMENT"
	LocationLocal       ConfigLocation = "LOCAL"
	LocationGlobal      ConfigLocation = "GLOBAL"
	LocationNotFound    ConfigLocation = "NOT_FOUND"
)

// ConfigInfo is one resolved key of the aggregated config view.
type ConfigInfo struct {
	Key      string         `json:"key"`
	Value    any            `json:"value,omitempty"`
	Location ConfigLocation `json:"location"`
	// Path is the file path or environment variable name that supplied Value.
	Path string `json:"path,omitempty"`
}

// IsFound returns true if some layer defines the key.
func (i ConfigInfo) IsFound() bool {
	return i.Location != LocationNotFound
}

// Well known config keys.
const (
	ConfigKeyAPIVersion            = "apiVersion"
	ConfigKeyDefaultUsername       = "defaultusername"
	ConfigKeyDefaultDevHubUsername = "defaultdevhubusername"
	ConfigKeyInstanceURL           = "instanceUrl"
	ConfigKeyMaxQueryLimit         = "maxQueryLimit"
	ConfigKeyDisableTelemetry      = "disableTelemetry"
)

// Well known file and directory names.
const (
	StateFolder       = ".sfdx"
	ProjectFileName   = "sfdx-project.json"
	ConfigFileName    = "sfdx-config.json"
	AliasFileName     = "alias.json"
	SettingsFileName  = "settings.toml"
	OrgUsersFolder    = "orgs"
	EnvPrefix         = "SFDX_"
	KeyringService    = "sfdx"
	KeyringAccount    = "local"
	AliasGroupOrgs    = "orgs"
	AuthFileExtension = ".json"
)

// ValidKey returns true if key is usable as a config or alias key:
// non-empty, free of whitespace and '=', and not starting with an
// uppercase letter.
func ValidKey(key string) bool {
	if key == "" || strings.ContainsAny(key, "= \t\r\n") {
		return false
	}
	r, _ := utf8.DecodeRuneInString(key)
	return !unicode.IsUpper(r)
}

// EnvVarName returns the environment variable that overrides key, e.g.
// apiVersion -> SFDX_API_VERSION.
func EnvVarName(key string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	prevLower := false
	for _, r := range key {
		if unicode.IsUpper(r) && prevLower {
			b.WriteByte('_')
		}
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
