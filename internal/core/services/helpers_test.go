package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/catalandres/sfdx-core/internal/adapters/driven/config/file"
	"github.com/catalandres/sfdx-core/internal/adapters/driven/crypto"
	"github.com/catalandres/sfdx-core/internal/adapters/driven/project"
	"github.com/catalandres/sfdx-core/internal/adapters/driven/storage/memory"
	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

// testEnv wires the services over temp directories and fakes.
type testEnv struct {
	home    string
	work    string
	files   *file.StateFiles
	cipher  *crypto.Crypto
	oauth   *memory.OAuthClient
	aliases *Aliases
	auths   *AuthInfoService
	orgs    *OrgService

	mu    sync.Mutex
	conns map[string]*memory.Connection
}

func newTestEnv(t *testing.T, inProject bool) *testEnv {
	t.Helper()

	home := t.TempDir()
	work := t.TempDir()
	if inProject {
		require.NoError(t, os.WriteFile(filepath.Join(work, domain.ProjectFileName), []byte("{}"), 0600))
	}

	cipher, err := crypto.New(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	env := &testEnv{
		home:   home,
		work:   work,
		files:  file.NewStateFiles(project.Locations{HomeDir: home, WorkDir: work}),
		cipher: cipher,
		oauth:  memory.NewOAuthClient(),
		conns:  make(map[string]*memory.Connection),
	}
	env.aliases = NewAliases(env.files)
	env.auths = NewAuthInfoService(env.files, env.cipher, env.oauth, env.aliases)
	env.auths.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	env.orgs = NewOrgService(env.files, env.auths, env.aliases, env.connect)
	env.orgs.now = env.auths.now
	return env
}

// connect hands out one fake connection per username.
func (e *testEnv) connect(_ context.Context, auth *AuthInfo) (driven.Connection, error) {
	return e.conn(auth.Fields()), nil
}

func (e *testEnv) conn(fields domain.AuthFields) *memory.Connection {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.conns[fields.Username]; ok {
		return c
	}
	c := memory.NewConnection(fields)
	e.conns[fields.Username] = c
	return c
}

// saveAuth persists a credential record directly.
func (e *testEnv) saveAuth(t *testing.T, fields domain.AuthFields) *AuthInfo {
	t.Helper()
	info := &AuthInfo{svc: e.auths, fields: fields}
	require.NoError(t, info.Save(domain.AuthFields{}))
	return info
}

// authPath returns the credential record path of username.
func (e *testEnv) authPath(username string) string {
	return filepath.Join(e.home, domain.StateFolder, username+".json")
}

// oauthFields returns a refreshable record for username in orgID.
func oauthFields(username, orgID string) domain.AuthFields {
	return domain.AuthFields{
		Username:     username,
		OrgID:        orgID,
		InstanceURL:  "https://na1.example.com",
		LoginURL:     domain.DefaultLoginURL,
		ClientID:     domain.DefaultClientID,
		AccessToken:  "00D!access-" + username,
		RefreshToken: "5Aep-refresh-" + username,
	}
}

func readJSONFile(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := file.ParseJSON(data, path)
	require.NoError(t, err)
	return doc
}
