package memory

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// Ensure OAuthClient implements the interface.
var _ driven.OAuthClient = (*OAuthClient)(nil)

// OAuthClient is a scriptable driven.OAuthClient. Tokens and identities
// are served from maps keyed by code, refresh token and access token.
type OAuthClient struct {
	mu sync.Mutex

	// Codes maps authorization codes to the token they yield.
	Codes map[string]*driven.OAuthToken
	// Refreshes maps refresh tokens to the token they yield.
	Refreshes map[string]*driven.OAuthToken
	// Identities maps access tokens to their user.
	Identities map[string]*driven.Identity

	// Verifiers records the PKCE verifier sent with each code.
	Verifiers map[string]string
	// RefreshCalls counts Refresh calls.
	RefreshCalls int
}

// NewOAuthClient creates an empty fake.
func NewOAuthClient() *OAuthClient {
	return &OAuthClient{
		Codes:      make(map[string]*driven.OAuthToken),
		Refreshes:  make(map[string]*driven.OAuthToken),
		Identities: make(map[string]*driven.Identity),
		Verifiers:  make(map[string]string),
	}
}

// AuthCodeURL encodes its arguments into a fake authorize URL.
func (c *OAuthClient) AuthCodeURL(cfg driven.OAuthConfig, state, challenge string) string {
	q := url.Values{}
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", cfg.RedirectURI)
	q.Set("state", state)
	q.Set("code_challenge", challenge)
	return cfg.LoginURL + "/services/oauth2/authorize?" + q.Encode()
}

// ExchangeCode returns the token registered for code.
func (c *OAuthClient) ExchangeCode(
	_ context.Context,
	_ driven.OAuthConfig,
	code, codeVerifier string,
) (*driven.OAuthToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Verifiers[code] = codeVerifier
	tok, ok := c.Codes[code]
	if !ok {
		return nil, fmt.Errorf("invalid_grant - authentication failure")
	}
	copied := *tok
	return &copied, nil
}

// Refresh returns the token registered for refreshToken.
func (c *OAuthClient) Refresh(
	_ context.Context,
	_ driven.OAuthConfig,
	refreshToken string,
) (*driven.OAuthToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.RefreshCalls++
	tok, ok := c.Refreshes[refreshToken]
	if !ok {
		return nil, fmt.Errorf("invalid_grant - expired access/refresh token")
	}
	copied := *tok
	if copied.RefreshToken == "" {
		copied.RefreshToken = refreshToken
	}
	return &copied, nil
}

// Identity returns the user registered for accessToken.
func (c *OAuthClient) Identity(_ context.Context, _, accessToken string) (*driven.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.Identities[accessToken]
	if !ok {
		return nil, fmt.Errorf("identity request failed with status 403")
	}
	copied := *id
	return &copied, nil
}
