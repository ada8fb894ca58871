package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/catalandres/sfdx-core/internal/core/domain"
)

// PKCE code verifier length (RFC 7636 recommends 43-128 characters).
const codeVerifierLength = 64

// generateCodeVerifier creates a cryptographically random code verifier for PKCE.
func generateCodeVerifier() (string, error) {
	bytes := make([]byte, codeVerifierLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Use base64url encoding without padding
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// generateCodeChallenge creates a S256 code challenge from the verifier.
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// WebLogin is a browser authorization in progress.
type WebLogin struct {
	// URL is where the user's browser must be sent.
	URL string
	// State must come back unchanged on the redirect.
	State string

	options  AuthOptions
	verifier string
}

// StartWebLogin prepares a PKCE authorization code login. Only the
// client fields of opts are used.
func (s *AuthInfoService) StartWebLogin(opts AuthOptions) (*WebLogin, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("generate code verifier: %w", err)
	}
	state := uuid.NewString()

	client := AuthOptions{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		LoginURL:     opts.LoginURL,
		RedirectURI:  opts.RedirectURI,
	}
	if client.LoginURL == "" {
		client.LoginURL = domain.DefaultLoginURL
	}
	if client.RedirectURI == "" {
		client.RedirectURI = domain.DefaultRedirectURI
	}

	return &WebLogin{
		URL:      s.oauth.AuthCodeURL(client.oauthConfig(), state, generateCodeChallenge(verifier)),
		State:    state,
		options:  client,
		verifier: verifier,
	}, nil
}

// RedirectURI returns the callback the login expects.
func (l *WebLogin) RedirectURI() string {
	return l.options.RedirectURI
}

// CompleteWebLogin exchanges the code delivered to the redirect and
// persists the resulting record.
func (s *AuthInfoService) CompleteWebLogin(ctx context.Context, login *WebLogin, code, state string) (*AuthInfo, error) {
	if login == nil {
		return nil, &domain.MissingArgError{Which: "login"}
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(login.State)) != 1 {
		return nil, fmt.Errorf("%w: state mismatch", domain.ErrAuthInfoCreation)
	}
	if code == "" {
		return nil, &domain.MissingArgError{Which: "code"}
	}

	opts := login.options
	opts.AuthCode = code
	opts.CodeVerifier = login.verifier
	return s.Create(ctx, "", &opts)
}
