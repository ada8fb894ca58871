package domain

import (
	"net/url"
	"strings"
	"time"
)

// AuthFields is the Credential Record of one username.
//
// On disk AccessToken, RefreshToken and ClientSecret hold ciphertext;
// in memory they hold plaintext. Conversion happens only inside the
// auth info service.
type AuthFields struct {
	// Username is the unique key of the record.
	Username string `json:"username"`
	// OrgID is the 18 character organization id.
	OrgID string `json:"orgId,omitempty"`
	// InstanceURL is the API host of the org, e.g. https://na1.example.com.
	InstanceURL string `json:"instanceUrl,omitempty"`
	// LoginURL is the host used for OAuth exchanges.
	LoginURL string `json:"loginUrl,omitempty"`

	// ClientID and ClientSecret identify the OAuth client.
	// Both are empty for access-token-only records.
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`

	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`

	// Created is when the record was first authorized.
	Created time.Time `json:"created,omitzero"`

	// DevHubUsername links a scratch org to the dev hub that created it.
	DevHubUsername string `json:"devHubUsername,omitempty"`
	// IsDevHub marks the record as a dev hub itself.
	IsDevHub bool `json:"isDevHub,omitempty"`

	// Fields learned from the scratch org registry.
	Edition        string `json:"edition,omitempty"`
	ExpirationDate string `json:"expirationDate,omitempty"`
}

// IsAccessTokenFlow returns true if the record was created from a bare
// access token, with no OAuth client able to refresh it.
func (f AuthFields) IsAccessTokenFlow() bool {
	return f.ClientID == "" && f.RefreshToken == ""
}

// Merge overlays every non-zero field of other onto f.
func (f *AuthFields) Merge(other AuthFields) {
	mergeString(&f.Username, other.Username)
	mergeString(&f.OrgID, other.OrgID)
	mergeString(&f.InstanceURL, other.InstanceURL)
	mergeString(&f.LoginURL, other.LoginURL)
	mergeString(&f.ClientID, other.ClientID)
	mergeString(&f.ClientSecret, other.ClientSecret)
	mergeString(&f.AccessToken, other.AccessToken)
	mergeString(&f.RefreshToken, other.RefreshToken)
	mergeString(&f.DevHubUsername, other.DevHubUsername)
	mergeString(&f.Edition, other.Edition)
	mergeString(&f.ExpirationDate, other.ExpirationDate)
	if !other.Created.IsZero() {
		f.Created = other.Created
	}
	if other.IsDevHub {
		f.IsDevHub = true
	}
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// ConnectionOptions are the decrypted values needed to open a session.
type ConnectionOptions struct {
	AccessToken string
	InstanceURL string
	LoginURL    string
	// OAuth2 is nil for access-token-only records.
	OAuth2 *OAuth2Options
}

// OAuth2Options describe the OAuth client used to refresh a session.
type OAuth2Options struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	LoginURL     string
}

// Default OAuth endpoints and client.
const (
	DefaultLoginURL = "https://login.salesforce.com"
	// DefaultClientID is the connected app used when no client id is supplied.
	DefaultClientID = "PlatformCLI"
	// DefaultRedirectURI is the loopback callback registered for DefaultClientID.
	DefaultRedirectURI = "http://localhost:1717/OauthRedirect"
)

// TrimTo15 returns the case-sensitive 15 character form of an org id.
func TrimTo15(id string) string {
	if len(id) == 18 {
		return id[:15]
	}
	return id
}

// OrgIDFromIdentityURL extracts the org id from an OAuth identity URL of
// the form https://login.example.com/id/<orgId>/<userId>. Any other URL,
// such as the userinfo endpoint, yields "".
func OrgIDFromIdentityURL(identityURL string) string {
	u, err := url.Parse(identityURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[len(parts)-3] != "id" {
		return ""
	}
	return parts[len(parts)-2]
}
