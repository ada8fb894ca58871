// Package platform implements driven.Connection over the platform's
// REST API.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
	"github.com/catalandres/sfdx-core/internal/logger"
)

// Ensure Connection implements the interface.
var _ driven.Connection = (*Connection)(nil)

// DefaultAPIVersion is used when no version is configured.
const DefaultAPIVersion = "60.0"

const userinfoPath = "/services/oauth2/userinfo"

var platformLog = logger.Named("platform")

// Options configure a Connection.
type Options struct {
	// Credential supplies the access token and refreshes it.
	Credential driven.Credential
	// APIVersion is used for relative API paths. Defaults to DefaultAPIVersion.
	APIVersion string
	// HTTPClient is the base client. Defaults to a 60 second timeout.
	HTTPClient *http.Client
}

// Connection is an authenticated REST session. The access token is read
// from the credential on every request, so a refresh is picked up
// without rebuilding the Connection.
type Connection struct {
	cred       driven.Credential
	apiVersion string
	client     *http.Client
}

// NewConnection creates a Connection for opts.Credential.
func NewConnection(opts Options) (*Connection, error) {
	if opts.Credential == nil {
		return nil, &domain.MissingArgError{Which: "credential"}
	}
	if opts.Credential.ConnectionOptions().InstanceURL == "" {
		return nil, &domain.MissingArgError{Which: "instanceUrl"}
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 60 * time.Second}
	}
	version := opts.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}

	client := &http.Client{
		Timeout: base.Timeout,
		Jar:     base.Jar,
		Transport: &oauth2.Transport{
			Source: credentialSource{cred: opts.Credential},
			Base:   base.Transport,
		},
	}
	return &Connection{cred: opts.Credential, apiVersion: version, client: client}, nil
}

// credentialSource serves the credential's current access token.
type credentialSource struct {
	cred driven.Credential
}

func (s credentialSource) Token() (*oauth2.Token, error) {
	token := s.cred.ConnectionOptions().AccessToken
	if token == "" {
		return nil, domain.ErrMissingOrInvalidAccessToken
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// Request performs an authenticated request. A 401 triggers one token
// refresh and one retry when the credential can refresh.
func (c *Connection) Request(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	target, err := c.resolve(path)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, method, target, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && c.cred.ConnectionOptions().OAuth2 != nil {
		resp.Body.Close()
		platformLog.Debug("%s %s: session expired, refreshing", method, path)
		if err := c.cred.Refresh(ctx); err != nil {
			return err
		}
		if resp, err = c.do(ctx, method, target, payload); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func (c *Connection) do(ctx context.Context, method, target string, payload []byte) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	platformLog.Debug("%s %s", method, target)
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, domain.ErrMissingOrInvalidAccessToken) {
			return nil, domain.ErrMissingOrInvalidAccessToken
		}
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	return resp, nil
}

func (c *Connection) resolve(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	instance := strings.TrimRight(c.cred.ConnectionOptions().InstanceURL, "/")
	if instance == "" {
		return "", &domain.MissingArgError{Which: "instanceUrl"}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return instance + path, nil
}

type apiError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// responseError maps an error response to *domain.QueryError when the
// body carries the platform's error array.
func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errs []apiError
	if json.Unmarshal(data, &errs) == nil && len(errs) > 0 && errs[0].ErrorCode != "" {
		qe := &domain.QueryError{Name: errs[0].ErrorCode, Message: errs[0].Message, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", domain.ErrMissingOrInvalidAccessToken, qe)
		}
		return qe
	}

	msg := strings.TrimSpace(string(data))
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: status %d", domain.ErrMissingOrInvalidAccessToken, resp.StatusCode)
	}
	if msg == "" {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, msg)
}

// Query runs soql and returns the first page of results.
func (c *Connection) Query(ctx context.Context, soql string) (*driven.QueryResult, error) {
	path := fmt.Sprintf("/services/data/v%s/query?q=%s", c.apiVersion, url.QueryEscape(soql))
	var result driven.QueryResult
	if err := c.Request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Versions lists the API versions the instance exposes.
func (c *Connection) Versions(ctx context.Context) ([]domain.APIVersion, error) {
	var versions []domain.APIVersion
	if err := c.Request(ctx, http.MethodGet, "/services/data", nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

type userinfo struct {
	PreferredUsername string `json:"preferred_username"`
	OrganizationID    string `json:"organization_id"`
	UserID            string `json:"user_id"`
}

// Identity returns the user the session belongs to.
func (c *Connection) Identity(ctx context.Context) (*driven.Identity, error) {
	var info userinfo
	if err := c.Request(ctx, http.MethodGet, userinfoPath, nil, &info); err != nil {
		return nil, err
	}
	return &driven.Identity{
		Username: info.PreferredUsername,
		OrgID:    info.OrganizationID,
		UserID:   info.UserID,
	}, nil
}

// AuthInfoFields returns the credential's decrypted fields.
func (c *Connection) AuthInfoFields() domain.AuthFields {
	return c.cred.Fields()
}

// ConnectionOptions returns the credential's session values.
func (c *Connection) ConnectionOptions() domain.ConnectionOptions {
	return c.cred.ConnectionOptions()
}

// APIVersion returns the version used for relative API paths.
func (c *Connection) APIVersion() string {
	return c.apiVersion
}
