package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
	"github.com/catalandres/sfdx-core/internal/logger"
)

var orgLog = logger.Named("org")

// ConnectionFactory opens a session for a credential record.
type ConnectionFactory func(ctx context.Context, auth *AuthInfo) (driven.Connection, error)

// OrgService creates Orgs and owns the collaborators they share.
type OrgService struct {
	files   driven.StateFiles
	auths   *AuthInfoService
	aliases *Aliases
	connect ConnectionFactory
	now     func() time.Time
}

// NewOrgService creates an OrgService.
func NewOrgService(
	files driven.StateFiles,
	auths *AuthInfoService,
	aliases *Aliases,
	connect ConnectionFactory,
) *OrgService {
	return &OrgService{
		files:   files,
		auths:   auths,
		aliases: aliases,
		connect: connect,
		now:     time.Now,
	}
}

// OrgOptions are optional Org collaborators.
type OrgOptions struct {
	// Aggregator supplies default usernames and is reloaded after removal.
	Aggregator *ConfigAggregator
	// IsDevHub marks the org as a dev hub without asking the platform.
	IsDevHub bool
}

// Create builds an Org from a username or alias. An empty identifier
// falls back to the aggregator's default username, or default dev hub
// username when opts.IsDevHub is set.
func (s *OrgService) Create(ctx context.Context, usernameOrAlias string, opts OrgOptions) (*Org, error) {
	if usernameOrAlias == "" && opts.Aggregator != nil {
		key := domain.ConfigKeyDefaultUsername
		if opts.IsDevHub {
			key = domain.ConfigKeyDefaultDevHubUsername
		}
		usernameOrAlias = opts.Aggregator.GetString(key)
	}
	if usernameOrAlias == "" {
		return nil, &domain.MissingArgError{Which: "username"}
	}

	auth, err := s.auths.Create(ctx, usernameOrAlias, nil)
	if err != nil {
		return nil, err
	}
	return s.FromAuthInfo(ctx, auth, opts)
}

// FromConnection builds an Org around an existing session.
func (s *OrgService) FromConnection(ctx context.Context, conn driven.Connection, opts OrgOptions) (*Org, error) {
	if conn == nil {
		return nil, &domain.MissingArgError{Which: "connection"}
	}
	auth, err := s.auths.Create(ctx, conn.AuthInfoFields().Username, nil)
	if err != nil {
		return nil, err
	}
	return s.newOrg(auth, conn, opts), nil
}

// FromAuthInfo builds an Org around a loaded credential record.
func (s *OrgService) FromAuthInfo(ctx context.Context, auth *AuthInfo, opts OrgOptions) (*Org, error) {
	if auth == nil {
		return nil, &domain.MissingArgError{Which: "authInfo"}
	}
	conn, err := s.connect(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", auth.Username(), err)
	}
	return s.newOrg(auth, conn, opts), nil
}

func (s *OrgService) newOrg(auth *AuthInfo, conn driven.Connection, opts OrgOptions) *Org {
	return &Org{
		svc:        s,
		auth:       auth,
		conn:       conn,
		aggregator: opts.Aggregator,
		isDevHub:   opts.IsDevHub,
		status:     domain.OrgStatusUnknown,
	}
}

// Org is one authorized organization: a credential record, a session
// and an optional config view.
type Org struct {
	svc        *OrgService
	auth       *AuthInfo
	conn       driven.Connection
	aggregator *ConfigAggregator

	mu          sync.RWMutex
	isDevHub    bool
	status      domain.OrgStatus
	createdDate string
}

// Username returns the org's admin username.
func (o *Org) Username() string {
	return o.auth.Username()
}

// OrgID returns the org id.
func (o *Org) OrgID() string {
	return o.auth.Fields().OrgID
}

// AuthInfo returns the org's credential record.
func (o *Org) AuthInfo() *AuthInfo {
	return o.auth
}

// Connection returns the org's session.
func (o *Org) Connection() driven.Connection {
	return o.conn
}

// ConfigAggregator returns the org's config view, which may be nil.
func (o *Org) ConfigAggregator() *ConfigAggregator {
	return o.aggregator
}

// Status returns the cached scratch org status.
func (o *Org) Status() domain.OrgStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// IsDevHubOrg reports whether the org is known to be a dev hub.
func (o *Org) IsDevHubOrg() bool {
	o.mu.RLock()
	flagged := o.isDevHub
	o.mu.RUnlock()
	return flagged || o.auth.Fields().IsDevHub
}

// GetField returns one static or computed field, or nil.
func (o *Org) GetField(name domain.OrgField) any {
	f := o.auth.Fields()

	switch name {
	case domain.OrgFieldUsername:
		return f.Username
	case domain.OrgFieldOrgID:
		return f.OrgID
	case domain.OrgFieldInstanceURL:
		return f.InstanceURL
	case domain.OrgFieldLoginURL:
		return f.LoginURL
	case domain.OrgFieldDevHubUsername:
		return f.DevHubUsername
	case domain.OrgFieldIsDevHub:
		return o.IsDevHubOrg()
	case domain.OrgFieldEdition:
		return f.Edition
	case domain.OrgFieldExpirationDate:
		return f.ExpirationDate
	case domain.OrgFieldStatus:
		return o.Status()
	case domain.OrgFieldCreatedDate:
		o.mu.RLock()
		defer o.mu.RUnlock()
		return o.createdDate
	case domain.OrgFieldAlias:
		if o.svc.aliases == nil {
			return ""
		}
		alias, err := o.svc.aliases.ByValue(f.Username)
		if err != nil {
			return ""
		}
		return alias
	}
	return nil
}

// GetFields returns the named fields.
func (o *Org) GetFields(names ...domain.OrgField) map[domain.OrgField]any {
	out := make(map[domain.OrgField]any, len(names))
	for _, name := range names {
		out[name] = o.GetField(name)
	}
	return out
}

// CheckScratchOrg looks the org up in a dev hub's scratch org registry.
// devHubUsername selects the dev hub; when empty the aggregator's
// default dev hub is used, and failing that the org's own session.
// The found row is merged into the credential record in memory and the
// session's credential fields are returned.
func (o *Org) CheckScratchOrg(ctx context.Context, devHubUsername string) (domain.AuthFields, error) {
	if devHubUsername == "" && o.aggregator != nil {
		devHubUsername = o.aggregator.GetString(domain.ConfigKeyDefaultDevHubUsername)
	}

	conn := o.conn
	if devHubUsername != "" && devHubUsername != o.Username() {
		hub, err := o.svc.Create(ctx, devHubUsername, OrgOptions{Aggregator: o.aggregator, IsDevHub: true})
		if err != nil {
			return domain.AuthFields{}, err
		}
		conn = hub.Connection()
	}

	soql := fmt.Sprintf("SELECT CreatedDate,Edition,ExpirationDate FROM ActiveScratchOrg WHERE ScratchOrg='%s'",
		domain.TrimTo15(o.OrgID()))
	result, err := conn.Query(ctx, soql)
	if err != nil {
		var qe *domain.QueryError
		if errors.As(err, &qe) && qe.Name == domain.QueryErrorInvalidType {
			return domain.AuthFields{}, fmt.Errorf("%w: %w", domain.ErrNotADevHub, err)
		}
		return domain.AuthFields{}, err
	}
	if len(result.Records) == 0 {
		return domain.AuthFields{}, fmt.Errorf("%w: org %s not found in the scratch org registry",
			domain.ErrNoResults, o.OrgID())
	}

	var rec domain.ScratchOrgRecord
	if err := json.Unmarshal(result.Records[0], &rec); err != nil {
		return domain.AuthFields{}, fmt.Errorf("decoding scratch org record: %w", err)
	}

	o.auth.Update(domain.AuthFields{Edition: rec.Edition, ExpirationDate: rec.ExpirationDate})
	o.mu.Lock()
	o.createdDate = rec.CreatedDate
	o.status = scratchOrgStatus(rec.ExpirationDate, o.svc.now())
	o.mu.Unlock()

	return o.conn.AuthInfoFields(), nil
}

// scratchOrgStatus is EXPIRED once the expiration date has passed.
func scratchOrgStatus(expiration string, now time.Time) domain.OrgStatus {
	if expiration == "" {
		return domain.OrgStatusActive
	}
	exp, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return domain.OrgStatusActive
	}
	if now.After(exp.Add(24 * time.Hour)) {
		return domain.OrgStatusExpired
	}
	return domain.OrgStatusActive
}

// GetDevHubOrg returns the org itself when it is a dev hub, otherwise
// the org named by its recorded dev hub username.
func (o *Org) GetDevHubOrg(ctx context.Context) (*Org, error) {
	if o.IsDevHubOrg() {
		return o, nil
	}
	devHub := o.auth.Fields().DevHubUsername
	if devHub == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoDevHub, o.Username())
	}
	return o.svc.Create(ctx, devHub, OrgOptions{Aggregator: o.aggregator, IsDevHub: true})
}

// DetermineIfDevHubOrg asks the platform whether the org can create
// scratch orgs and records a positive answer.
func (o *Org) DetermineIfDevHubOrg(ctx context.Context) (bool, error) {
	if o.IsDevHubOrg() {
		return true, nil
	}
	_, err := o.conn.Query(ctx, "SELECT Id FROM ScratchOrgInfo LIMIT 1")
	if err != nil {
		var qe *domain.QueryError
		if errors.As(err, &qe) && qe.Name == domain.QueryErrorInvalidType {
			return false, nil
		}
		return false, err
	}

	o.mu.Lock()
	o.isDevHub = true
	o.mu.Unlock()
	if err := o.auth.Save(domain.AuthFields{IsDevHub: true}); err != nil {
		return true, err
	}
	return true, nil
}

// RefreshAuth makes an authenticated request so the session refreshes
// its access token if it has expired.
func (o *Org) RefreshAuth(ctx context.Context) error {
	path := fmt.Sprintf("/services/data/v%s", o.conn.APIVersion())
	if err := o.conn.Request(ctx, http.MethodGet, path, nil, nil); err != nil {
		return fmt.Errorf("refreshing auth for %s: %w", o.Username(), err)
	}
	return nil
}

// RetrieveMaxAPIVersion returns the numerically greatest API version the
// instance exposes.
func (o *Org) RetrieveMaxAPIVersion(ctx context.Context) (string, error) {
	versions, err := o.conn.Versions(ctx)
	if err != nil {
		return "", err
	}

	best, bestNum := "", -1.0
	for _, v := range versions {
		n, err := strconv.ParseFloat(v.Version, 64)
		if err != nil {
			continue
		}
		if n > bestNum {
			best, bestNum = v.Version, n
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: no API versions reported", domain.ErrNoResults)
	}
	return best, nil
}

// OrgUsersPath returns the name of the membership document relative to
// the global state folder.
func (o *Org) OrgUsersPath() string {
	return filepath.Join(domain.OrgUsersFolder, o.OrgID()+".json")
}

func (o *Org) orgUsersFile() (driven.ConfigFile, domain.OrgUsers, error) {
	if o.OrgID() == "" {
		return nil, domain.OrgUsers{}, &domain.MissingArgError{Which: "orgId"}
	}
	file, err := o.svc.files.ConfigFile(o.OrgUsersPath(), true)
	if err != nil {
		return nil, domain.OrgUsers{}, err
	}
	contents, err := file.Read()
	if err != nil {
		return nil, domain.OrgUsers{}, err
	}

	var users domain.OrgUsers
	if raw, ok := contents["usernames"].([]any); ok {
		for _, v := range raw {
			if name, ok := v.(string); ok {
				users.Usernames = append(users.Usernames, name)
			}
		}
	}
	return file, users, nil
}

func writeOrgUsers(file driven.ConfigFile, users domain.OrgUsers) error {
	names := make([]any, 0, len(users.Usernames))
	for _, name := range users.Usernames {
		names = append(names, name)
	}
	file.Set("usernames", names)
	return file.Write(nil)
}

// AddUsername records auth as a member of the org. Adding an existing
// member is a no-op.
func (o *Org) AddUsername(auth *AuthInfo) error {
	if auth == nil {
		return &domain.MissingArgError{Which: "authInfo"}
	}
	file, users, err := o.orgUsersFile()
	if err != nil {
		return err
	}
	if users.Contains(auth.Username()) && file.Exists() {
		return nil
	}
	if !users.Contains(auth.Username()) {
		users.Usernames = append(users.Usernames, auth.Username())
	}
	return writeOrgUsers(file, users)
}

// RemoveUsername drops auth from the org's members.
func (o *Org) RemoveUsername(auth *AuthInfo) error {
	if auth == nil {
		return &domain.MissingArgError{Which: "authInfo"}
	}
	file, users, err := o.orgUsersFile()
	if err != nil {
		return err
	}
	if !file.Exists() || !users.Contains(auth.Username()) {
		return nil
	}

	kept := users.Usernames[:0]
	for _, name := range users.Usernames {
		if name != auth.Username() {
			kept = append(kept, name)
		}
	}
	users.Usernames = kept
	return writeOrgUsers(file, users)
}

// ReadUserAuthFiles returns the org's own record followed by one per
// member username. Members without a record are skipped.
func (o *Org) ReadUserAuthFiles(ctx context.Context) ([]*AuthInfo, error) {
	auths := []*AuthInfo{o.auth}
	if o.auth.IsAccessTokenFlow() || o.OrgID() == "" {
		return auths, nil
	}

	_, users, err := o.orgUsersFile()
	if err != nil {
		return nil, err
	}
	for _, name := range users.Usernames {
		if name == o.Username() {
			continue
		}
		auth, err := o.svc.auths.Create(ctx, name, nil)
		if err != nil {
			if errors.Is(err, domain.ErrAuthInfoCreation) {
				orgLog.Debug("skipping member %s: %v", name, err)
				continue
			}
			return nil, err
		}
		auths = append(auths, auth)
	}
	return auths, nil
}

// CleanLocalOrgData deletes the org's data under the project state
// folder. relPath overrides the default orgs/<username>. Outside a
// project this is a no-op.
func (o *Org) CleanLocalOrgData(relPath string) error {
	dir, err := o.svc.files.LocalStateDir()
	if err != nil {
		if errors.Is(err, domain.ErrInvalidProjectWorkspace) {
			return nil
		}
		return err
	}
	if relPath == "" {
		relPath = filepath.Join(domain.OrgUsersFolder, o.Username())
	}
	target := filepath.Join(dir, relPath)
	orgLog.Debug("removing local data %s", target)
	return o.svc.files.RemoveAll(target)
}

// Remove deletes the org's credential records, membership record, local
// data, default username settings and aliases. Already absent targets
// are skipped; any other failure stops the cascade. The Org must not be
// used afterwards.
func (o *Org) Remove(ctx context.Context) error {
	accessTokenOnly := o.auth.IsAccessTokenFlow()

	auths := []*AuthInfo{o.auth}
	if !accessTokenOnly {
		var err error
		if auths, err = o.ReadUserAuthFiles(ctx); err != nil {
			return err
		}
	}

	for _, auth := range auths {
		username := auth.Username()
		orgLog.Debug("removing auth file of %s", username)
		if err := o.svc.auths.RemoveAuthFile(username); err != nil {
			return err
		}
		if err := o.clearDefaults(username); err != nil {
			return err
		}
		if o.svc.aliases != nil {
			orgLog.Debug("removing aliases of %s", username)
			if err := o.svc.aliases.UnsetByValue(username); err != nil {
				return err
			}
		}
	}

	if !accessTokenOnly && o.OrgID() != "" {
		file, _, err := o.orgUsersFile()
		if err != nil {
			return err
		}
		orgLog.Debug("removing membership record %s", file.Path())
		if err := file.Unlink(); err != nil {
			return err
		}
	}

	if err := o.CleanLocalOrgData(""); err != nil {
		return err
	}

	if o.aggregator != nil {
		return o.aggregator.Reload()
	}
	return nil
}

// clearDefaults unsets default username settings equal to username in
// both scopes.
func (o *Org) clearDefaults(username string) error {
	for _, global := range []bool{true, false} {
		cfg, err := NewSfdxConfig(o.svc.files, global)
		if err != nil {
			if !global && errors.Is(err, domain.ErrPathIsNullOrUndefined) {
				continue
			}
			return err
		}

		changed := false
		for _, key := range []string{domain.ConfigKeyDefaultUsername, domain.ConfigKeyDefaultDevHubUsername} {
			if v, ok := cfg.Get(key); ok && isUsername(v, username, o.svc.aliases) {
				orgLog.Debug("unsetting %s in %s", key, cfg.Path())
				cfg.Unset(key)
				changed = true
			}
		}
		if changed {
			if err := cfg.Write(); err != nil {
				return err
			}
		}
	}
	return nil
}

// isUsername reports whether a config value names username directly or
// through an alias.
func isUsername(value any, username string, aliases *Aliases) bool {
	s, ok := value.(string)
	if !ok || s == "" {
		return false
	}
	if strings.EqualFold(s, username) {
		return true
	}
	if aliases == nil {
		return false
	}
	resolved, err := aliases.Fetch(s)
	return err == nil && resolved == username
}
