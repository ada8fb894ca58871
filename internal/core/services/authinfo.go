package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
	"github.com/catalandres/sfdx-core/internal/logger"
)

// Ensure AuthInfo implements the interface.
var _ driven.Credential = (*AuthInfo)(nil)

// userinfoPath identifies the holder of a bare access token.
const userinfoPath = "/services/oauth2/userinfo"

// authFilePattern matches credential record file names, <username>.json.
var authFilePattern = regexp.MustCompile(`^[^.][^@]*@[^.]+(\.[^.\s]+)+\.json$`)

// AuthOptions select how a credential record is created. The set fields
// decide the flow:
//
//   - AuthCode: authorization code exchange, optionally with CodeVerifier
//   - RefreshToken: refresh token grant
//   - AccessToken: store a bare access token, no OAuth client
type AuthOptions struct {
	ClientID     string
	ClientSecret string
	LoginURL     string
	RedirectURI  string

	AuthCode     string
	CodeVerifier string

	RefreshToken string

	AccessToken string
	InstanceURL string
}

func (o *AuthOptions) oauthConfig() driven.OAuthConfig {
	return driven.OAuthConfig{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		LoginURL:     o.LoginURL,
		RedirectURI:  o.RedirectURI,
	}
}

// AuthInfoService creates and loads credential records.
type AuthInfoService struct {
	files   driven.StateFiles
	cipher  driven.Cipher
	oauth   driven.OAuthClient
	aliases *Aliases
	now     func() time.Time
}

// NewAuthInfoService creates an AuthInfoService. aliases may be nil, in
// which case identifiers are always usernames.
func NewAuthInfoService(
	files driven.StateFiles,
	cipher driven.Cipher,
	oauth driven.OAuthClient,
	aliases *Aliases,
) *AuthInfoService {
	return &AuthInfoService{
		files:   files,
		cipher:  cipher,
		oauth:   oauth,
		aliases: aliases,
		now:     time.Now,
	}
}

// Create resolves identifier through the alias store, then either
// performs the OAuth flow selected by opts and persists the result, or,
// with nil opts, loads the persisted record.
func (s *AuthInfoService) Create(ctx context.Context, identifier string, opts *AuthOptions) (*AuthInfo, error) {
	username := identifier
	if s.aliases != nil && identifier != "" {
		resolved, err := s.aliases.Resolve(identifier)
		if err != nil {
			return nil, err
		}
		username = resolved
	}

	if opts == nil {
		if username == "" {
			return nil, &domain.MissingArgError{Which: "username"}
		}
		return s.load(username)
	}

	var (
		fields domain.AuthFields
		err    error
	)
	switch {
	case opts.AuthCode != "":
		fields, err = s.exchange(ctx, opts)
	case opts.RefreshToken != "":
		fields, err = s.refreshGrant(ctx, opts)
	case opts.AccessToken != "":
		fields, err = s.accessToken(ctx, username, opts)
	default:
		return nil, fmt.Errorf("%w: no authorization code, refresh token or access token supplied",
			domain.ErrAuthInfoCreation)
	}
	if err != nil {
		return nil, err
	}

	info := &AuthInfo{svc: s, fields: fields}
	if err := info.Save(domain.AuthFields{}); err != nil {
		return nil, err
	}
	logger.Debug("auth info: created record for %s", fields.Username)
	return info, nil
}

func (s *AuthInfoService) exchange(ctx context.Context, opts *AuthOptions) (domain.AuthFields, error) {
	tok, err := s.oauth.ExchangeCode(ctx, opts.oauthConfig(), opts.AuthCode, opts.CodeVerifier)
	if err != nil {
		return domain.AuthFields{}, fmt.Errorf("%w: %w", domain.ErrAuthInfoCreation, err)
	}
	return s.fromToken(ctx, opts, tok)
}

func (s *AuthInfoService) refreshGrant(ctx context.Context, opts *AuthOptions) (domain.AuthFields, error) {
	tok, err := s.oauth.Refresh(ctx, opts.oauthConfig(), opts.RefreshToken)
	if err != nil {
		return domain.AuthFields{}, fmt.Errorf("%w: %w", domain.ErrAuthInfoCreation, err)
	}
	return s.fromToken(ctx, opts, tok)
}

func (s *AuthInfoService) fromToken(
	ctx context.Context,
	opts *AuthOptions,
	tok *driven.OAuthToken,
) (domain.AuthFields, error) {
	id, err := s.oauth.Identity(ctx, tok.IdentityURL, tok.AccessToken)
	if err != nil {
		return domain.AuthFields{}, fmt.Errorf("%w: retrieving username: %w", domain.ErrAuthInfoCreation, err)
	}

	loginURL := opts.LoginURL
	if loginURL == "" {
		loginURL = domain.DefaultLoginURL
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = domain.DefaultClientID
	}
	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = opts.RefreshToken
	}

	return domain.AuthFields{
		Username:     id.Username,
		OrgID:        id.OrgID,
		InstanceURL:  tok.InstanceURL,
		LoginURL:     loginURL,
		ClientID:     clientID,
		ClientSecret: opts.ClientSecret,
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
		Created:      s.now().UTC(),
	}, nil
}

func (s *AuthInfoService) accessToken(
	ctx context.Context,
	username string,
	opts *AuthOptions,
) (domain.AuthFields, error) {
	if opts.InstanceURL == "" {
		return domain.AuthFields{}, &domain.MissingArgError{Which: "instanceUrl"}
	}

	fields := domain.AuthFields{
		Username:    username,
		InstanceURL: strings.TrimRight(opts.InstanceURL, "/"),
		LoginURL:    opts.LoginURL,
		AccessToken: opts.AccessToken,
		Created:     s.now().UTC(),
	}

	id, err := s.oauth.Identity(ctx, fields.InstanceURL+userinfoPath, opts.AccessToken)
	if err != nil {
		return domain.AuthFields{}, fmt.Errorf("%w: validating access token: %w", domain.ErrAuthInfoCreation, err)
	}
	if fields.Username == "" {
		fields.Username = id.Username
	}
	fields.OrgID = id.OrgID
	if fields.Username == "" {
		return domain.AuthFields{}, &domain.MissingArgError{Which: "username"}
	}
	return fields, nil
}

// load reads and decrypts the persisted record of username.
func (s *AuthInfoService) load(username string) (*AuthInfo, error) {
	file, err := s.authFile(username)
	if err != nil {
		return nil, err
	}
	contents, err := file.Read()
	if err != nil {
		return nil, err
	}
	if !file.Exists() {
		return nil, fmt.Errorf("%w: no authorization information found for %s",
			domain.ErrAuthInfoCreation, username)
	}

	data, err := json.Marshal(contents)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", file.Path(), err)
	}
	var fields domain.AuthFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", domain.ErrAuthInfoCreation, file.Path(), err)
	}
	if fields.Username == "" {
		fields.Username = username
	}

	for _, secret := range secretFields(&fields) {
		plain, err := s.cipher.Decrypt(*secret)
		if err != nil {
			return nil, fmt.Errorf("decrypting record of %s: %w", username, err)
		}
		*secret = plain
	}

	return &AuthInfo{svc: s, fields: fields}, nil
}

func (s *AuthInfoService) authFile(username string) (driven.ConfigFile, error) {
	if username == "" {
		return nil, &domain.MissingArgError{Which: "username"}
	}
	return s.files.ConfigFile(username+domain.AuthFileExtension, true)
}

// RemoveAuthFile deletes the credential record file of username.
// A missing file is not an error.
func (s *AuthInfoService) RemoveAuthFile(username string) error {
	file, err := s.authFile(username)
	if err != nil {
		return err
	}
	return file.Unlink()
}

// ListAllAuthFiles returns the file names of every credential record in
// the global state folder.
func (s *AuthInfoService) ListAllAuthFiles() ([]string, error) {
	names, err := s.files.ListGlobal("*" + domain.AuthFileExtension)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if authFilePattern.MatchString(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// ListAllUsernames returns the usernames of every credential record.
func (s *AuthInfoService) ListAllUsernames() ([]string, error) {
	names, err := s.ListAllAuthFiles()
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		names[i] = strings.TrimSuffix(name, domain.AuthFileExtension)
	}
	return names, nil
}

// HasAuthentications reports whether any credential record exists.
func (s *AuthInfoService) HasAuthentications() (bool, error) {
	names, err := s.ListAllAuthFiles()
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// secretFields returns pointers to the fields stored as ciphertext.
func secretFields(f *domain.AuthFields) []*string {
	return []*string{&f.AccessToken, &f.RefreshToken, &f.ClientSecret}
}

// AuthInfo is a loaded credential record. Secrets are plaintext in
// memory and ciphertext on disk.
type AuthInfo struct {
	svc *AuthInfoService

	mu     sync.RWMutex
	fields domain.AuthFields
}

// Username returns the record's key.
func (a *AuthInfo) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fields.Username
}

// Fields returns a copy of the decrypted fields.
func (a *AuthInfo) Fields() domain.AuthFields {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fields
}

// IsAccessTokenFlow reports whether the record has no OAuth client.
func (a *AuthInfo) IsAccessTokenFlow() bool {
	return a.Fields().IsAccessTokenFlow()
}

// Update merges fields into memory without persisting.
func (a *AuthInfo) Update(fields domain.AuthFields) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fields.Merge(fields)
}

// Save merges extra into memory and persists the record encrypted.
func (a *AuthInfo) Save(extra domain.AuthFields) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fields.Merge(extra)

	encrypted := a.fields
	for _, secret := range secretFields(&encrypted) {
		cipherText, err := a.svc.cipher.Encrypt(*secret)
		if err != nil {
			return fmt.Errorf("encrypting record of %s: %w", a.fields.Username, err)
		}
		*secret = cipherText
	}

	data, err := json.Marshal(encrypted)
	if err != nil {
		return fmt.Errorf("encoding record of %s: %w", a.fields.Username, err)
	}
	var contents map[string]any
	if err := json.Unmarshal(data, &contents); err != nil {
		return fmt.Errorf("encoding record of %s: %w", a.fields.Username, err)
	}

	file, err := a.svc.authFile(a.fields.Username)
	if err != nil {
		return err
	}
	return file.Write(contents)
}

// Refresh exchanges the refresh token for a new access token and
// persists it. Rejections fail with ErrAuthRefresh and are not retried.
func (a *AuthInfo) Refresh(ctx context.Context) error {
	fields := a.Fields()
	if fields.IsAccessTokenFlow() || fields.RefreshToken == "" {
		return fmt.Errorf("%w: %s has no refresh token", domain.ErrAuthRefresh, fields.Username)
	}

	tok, err := a.svc.oauth.Refresh(ctx, driven.OAuthConfig{
		ClientID:     fields.ClientID,
		ClientSecret: fields.ClientSecret,
		LoginURL:     fields.LoginURL,
	}, fields.RefreshToken)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrAuthRefresh, err)
	}

	logger.Debug("auth info: refreshed access token for %s", fields.Username)
	return a.Save(domain.AuthFields{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		InstanceURL:  tok.InstanceURL,
	})
}

// ConnectionOptions returns the decrypted values needed to open a
// session. OAuth2 is nil for access-token-only records.
func (a *AuthInfo) ConnectionOptions() domain.ConnectionOptions {
	f := a.Fields()
	opts := domain.ConnectionOptions{
		AccessToken: f.AccessToken,
		InstanceURL: f.InstanceURL,
		LoginURL:    f.LoginURL,
	}
	if !f.IsAccessTokenFlow() {
		opts.OAuth2 = &domain.OAuth2Options{
			ClientID:     f.ClientID,
			ClientSecret: f.ClientSecret,
			RefreshToken: f.RefreshToken,
			LoginURL:     f.LoginURL,
		}
	}
	return opts
}

// FrontDoorURL returns a URL that opens the org in a browser session.
func (a *AuthInfo) FrontDoorURL() string {
	f := a.Fields()
	return strings.TrimRight(f.InstanceURL, "/") + "/secur/frontdoor.jsp?sid=" + url.QueryEscape(f.AccessToken)
}
