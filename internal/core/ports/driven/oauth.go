package driven

import (
	"context"
	"time"
)

// OAuthConfig identifies an OAuth client and the login host it talks to.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	LoginURL     string
	RedirectURI  string
}

// OAuthToken is a token endpoint response.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	InstanceURL  string
	// IdentityURL is the id endpoint of the authorized user,
	// https://<login>/id/<orgId>/<userId>.
	IdentityURL string
	Expiry      time.Time
}

// Identity describes the user behind an access token.
type Identity struct {
	Username string
	OrgID    string
	UserID   string
}

// OAuthClient talks to the platform's OAuth endpoints.
type OAuthClient interface {
	// AuthCodeURL returns the browser URL that starts a web login.
	// challenge is a PKCE S256 challenge; empty disables PKCE.
	AuthCodeURL(cfg OAuthConfig, state, challenge string) string

	// ExchangeCode trades an authorization code for tokens.
	ExchangeCode(ctx context.Context, cfg OAuthConfig, code, codeVerifier string) (*OAuthToken, error)

	// Refresh trades a refresh token for a new access token.
	Refresh(ctx context.Context, cfg OAuthConfig, refreshToken string) (*OAuthToken, error)

	// Identity resolves the user behind accessToken. identityURL is the
	// id URL from a token response or, for bare access tokens, the
	// instance's userinfo endpoint.
	Identity(ctx context.Context, identityURL, accessToken string) (*Identity, error)
}
