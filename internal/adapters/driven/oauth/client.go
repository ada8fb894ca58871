// Package oauth implements the platform's OAuth endpoints with
// golang.org/x/oauth2.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.OAuthClient = (*Client)(nil)

// Endpoint paths relative to the login URL.
const (
	authorizePath = "/services/oauth2/authorize"
	tokenPath     = "/services/oauth2/token"
)

var defaultScopes = []string{"refresh_token", "api", "web"}

// Client performs token exchanges against a login host.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a Client. A nil httpClient uses a 30 second timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: httpClient}
}

func (c *Client) config(cfg driven.OAuthConfig) *oauth2.Config {
	login := strings.TrimRight(cfg.LoginURL, "/")
	if login == "" {
		login = domain.DefaultLoginURL
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = domain.DefaultClientID
	}
	redirect := cfg.RedirectURI
	if redirect == "" {
		redirect = domain.DefaultRedirectURI
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirect,
		Scopes:       defaultScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   login + authorizePath,
			TokenURL:  login + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *Client) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// AuthCodeURL returns the authorize URL for a browser login.
func (c *Client) AuthCodeURL(cfg driven.OAuthConfig, state, challenge string) string {
	var opts []oauth2.AuthCodeOption
	if challenge != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", challenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	}
	return c.config(cfg).AuthCodeURL(state, opts...)
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(
	ctx context.Context,
	cfg driven.OAuthConfig,
	code, codeVerifier string,
) (*driven.OAuthToken, error) {
	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}

	tok, err := c.config(cfg).Exchange(c.context(ctx), code, opts...)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", describe(err))
	}
	return convert(tok), nil
}

// Refresh trades a refresh token for a new access token. The refresh
// token is carried over when the endpoint does not rotate it.
func (c *Client) Refresh(
	ctx context.Context,
	cfg driven.OAuthConfig,
	refreshToken string,
) (*driven.OAuthToken, error) {
	if refreshToken == "" {
		return nil, &domain.MissingArgError{Which: "refreshToken"}
	}

	src := c.config(cfg).TokenSource(c.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", describe(err))
	}
	return convert(tok), nil
}

type identityResponse struct {
	Username          string `json:"username"`
	PreferredUsername string `json:"preferred_username"`
	OrganizationID    string `json:"organization_id"`
	UserID            string `json:"user_id"`
}

// Identity fetches identityURL with accessToken as bearer.
func (c *Client) Identity(ctx context.Context, identityURL, accessToken string) (*driven.Identity, error) {
	if identityURL == "" {
		return nil, &domain.MissingArgError{Which: "identityURL"}
	}
	if accessToken == "" {
		return nil, domain.ErrMissingOrInvalidAccessToken
	}

	client := oauth2.NewClient(c.context(ctx), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, identityURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity request failed with status %d", resp.StatusCode)
	}

	var body identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode identity response: %w", err)
	}

	id := &driven.Identity{
		Username: body.Username,
		OrgID:    body.OrganizationID,
		UserID:   body.UserID,
	}
	if id.Username == "" {
		id.Username = body.PreferredUsername
	}
	if id.OrgID == "" {
		id.OrgID = domain.OrgIDFromIdentityURL(identityURL)
	}
	return id, nil
}

func convert(tok *oauth2.Token) *driven.OAuthToken {
	out := &driven.OAuthToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if v, ok := tok.Extra("instance_url").(string); ok {
		out.InstanceURL = v
	}
	if v, ok := tok.Extra("id").(string); ok {
		out.IdentityURL = v
	}
	return out
}

// describe folds the token endpoint's error code into the message.
func describe(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		if re.ErrorDescription != "" {
			return fmt.Errorf("%s - %s", re.ErrorCode, re.ErrorDescription)
		}
		return errors.New(re.ErrorCode)
	}
	return err
}
