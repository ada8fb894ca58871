package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catalandres/sfdx-core/internal/adapters/driven/config/file"
	"github.com/catalandres/sfdx-core/internal/adapters/driven/crypto"
	"github.com/catalandres/sfdx-core/internal/adapters/driven/project"
	"github.com/catalandres/sfdx-core/internal/adapters/driven/storage/memory"
	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
	"github.com/catalandres/sfdx-core/internal/core/services"
)

const (
	testUsername    = "user@example.com"
	testOrgID       = "00D000000000001AAA"
	testAccessToken = "00Dtoken-abcdef"
)

// testServices wires the commands over temp directories and fakes.
type testServices struct {
	home       string
	work       string
	files      *file.StateFiles
	oauth      *memory.OAuthClient
	aliases    *services.Aliases
	aggregator *services.ConfigAggregator
	auths      *services.AuthInfoService
	settings   *services.SettingsService

	// instanceURL is stored on records created by storeRecord.
	instanceURL string
}

func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	home := t.TempDir()
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, domain.ProjectFileName), []byte("{}"), 0600))

	cipher, err := crypto.Open(memory.NewKeyRepository())
	require.NoError(t, err)

	s := &testServices{
		home:        home,
		work:        work,
		files:       file.NewStateFiles(project.Locations{HomeDir: home, WorkDir: work}),
		oauth:       memory.NewOAuthClient(),
		settings:    services.NewSettingsService(memory.NewSettingsStore()),
		instanceURL: "https://na1.example.com",
	}
	s.aliases = services.NewAliases(s.files)
	s.aggregator, err = services.NewConfigAggregator(s.files, services.WithEnviron(func() []string { return nil }))
	require.NoError(t, err)
	s.auths = services.NewAuthInfoService(s.files, cipher, s.oauth, s.aliases)
	orgs := services.NewOrgService(s.files, s.auths, s.aliases, s.connect)

	Configure(Services{
		Locations:  project.Locations{HomeDir: home, WorkDir: work},
		Files:      s.files,
		Aliases:    s.aliases,
		Aggregator: s.aggregator,
		Auths:      s.auths,
		Orgs:       orgs,
		Settings:   s.settings,
	})
	t.Cleanup(func() { Configure(Services{}) })
	return s
}

func (s *testServices) connect(_ context.Context, auth *services.AuthInfo) (driven.Connection, error) {
	conn := memory.NewConnection(auth.Fields())
	conn.SetAPIVersion("60.0")
	return conn, nil
}

// storeRecord saves an access token record through the auth service.
func (s *testServices) storeRecord(t *testing.T, username, orgID, token string) {
	t.Helper()
	s.oauth.Identities[token] = &driven.Identity{Username: username, OrgID: orgID}
	_, err := s.auths.Create(context.Background(), "", &services.AuthOptions{
		AccessToken: token,
		InstanceURL: s.instanceURL,
	})
	require.NoError(t, err)
}

// execute runs the root command and returns everything it printed.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores flag variables shared by package-level commands.
func resetFlags() {
	configGlobal = false
	orgTarget = ""
	orgShowToken = false
	orgRemoveNoPrompt = false
	authClientID = domain.DefaultClientID
	authInstanceURL = ""
	authRedirectURI = domain.DefaultRedirectURI
	authAlias = ""
	authSetDefault = false
	authSetDefaultDevHub = false
	authNoBrowser = false
	authAskClientSecret = false
	streamChannel = ""
	streamReplay = -1
	streamCount = 0
	streamAPIVersion = ""
	streamTimeout = 0
}
