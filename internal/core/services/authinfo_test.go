package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalandres/sfdx-core/internal/adapters/driven/crypto"
	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/ports/driven"
)

const (
	testUsername = "admin@example.com"
	testOrgID    = "00D000000000001AAA"
)

func registerCode(env *testEnv, code string) {
	env.oauth.Codes[code] = &driven.OAuthToken{
		AccessToken:  "00D!fresh",
		RefreshToken: "5Aep-refresh",
		InstanceURL:  "https://na1.example.com",
		IdentityURL:  "https://login.example.com/id/" + testOrgID + "/005000000000001AAA",
	}
	env.oauth.Identities["00D!fresh"] = &driven.Identity{Username: testUsername, OrgID: testOrgID}
}

func TestAuthInfoService_Create_AuthCode(t *testing.T) {
	env := newTestEnv(t, false)
	registerCode(env, "code-1")

	info, err := env.auths.Create(context.Background(), "", &AuthOptions{
		AuthCode:     "code-1",
		CodeVerifier: "verifier-1",
		ClientSecret: "shh",
	})
	require.NoError(t, err)

	f := info.Fields()
	assert.Equal(t, testUsername, f.Username)
	assert.Equal(t, testOrgID, f.OrgID)
	assert.Equal(t, "https://na1.example.com", f.InstanceURL)
	assert.Equal(t, domain.DefaultLoginURL, f.LoginURL)
	assert.Equal(t, domain.DefaultClientID, f.ClientID)
	assert.Equal(t, "00D!fresh", f.AccessToken)
	assert.Equal(t, "5Aep-refresh", f.RefreshToken)
	assert.False(t, f.Created.IsZero())
	assert.Equal(t, "verifier-1", env.oauth.Verifiers["code-1"])
}

func TestAuthInfo_Save_EncryptsSecrets(t *testing.T) {
	env := newTestEnv(t, false)
	env.saveAuth(t, domain.AuthFields{
		Username:     testUsername,
		ClientID:     "client",
		ClientSecret: "client-secret",
		AccessToken:  "00D!plain-access",
		RefreshToken: "5Aep-plain-refresh",
	})

	path := env.authPath(testUsername)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "00D!plain-access")
	assert.NotContains(t, string(data), "5Aep-plain-refresh")
	assert.NotContains(t, string(data), "client-secret")
	assert.Contains(t, string(data), "\n    \"username\": ")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	doc := readJSONFile(t, path)
	plain, err := env.cipher.Decrypt(doc["accessToken"].(string))
	require.NoError(t, err)
	assert.Equal(t, "00D!plain-access", plain)
}

func TestAuthInfoService_Create_LoadsPersisted(t *testing.T) {
	env := newTestEnv(t, false)
	env.saveAuth(t, oauthFields(testUsername, testOrgID))

	info, err := env.auths.Create(context.Background(), testUsername, nil)
	require.NoError(t, err)

	assert.Equal(t, oauthFields(testUsername, testOrgID), info.Fields())
}

func TestAuthInfoService_Create_ResolvesAlias(t *testing.T) {
	env := newTestEnv(t, false)
	env.saveAuth(t, oauthFields(testUsername, testOrgID))
	require.NoError(t, env.aliases.Set("prod", testUsername))

	info, err := env.auths.Create(context.Background(), "prod", nil)
	require.NoError(t, err)
	assert.Equal(t, testUsername, info.Username())
}

func TestAuthInfoService_Create_Failures(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.auths.Create(context.Background(), "nobody@example.com", nil)
	assert.ErrorIs(t, err, domain.ErrAuthInfoCreation)
	assert.Equal(t, domain.KindAuthInfoCreation, domain.KindOf(err))

	_, err = env.auths.Create(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrMissingArg)

	_, err = env.auths.Create(context.Background(), "", &AuthOptions{AuthCode: "unknown"})
	assert.ErrorIs(t, err, domain.ErrAuthInfoCreation)

	_, err = env.auths.Create(context.Background(), "", &AuthOptions{ClientID: "only-a-client"})
	assert.ErrorIs(t, err, domain.ErrAuthInfoCreation)
}

func TestAuthInfoService_Create_WrongKey(t *testing.T) {
	env := newTestEnv(t, false)
	env.saveAuth(t, oauthFields(testUsername, testOrgID))

	other, err := crypto.New(bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)
	svc := NewAuthInfoService(env.files, other, env.oauth, nil)

	_, err = svc.Create(context.Background(), testUsername, nil)
	assert.ErrorIs(t, err, domain.ErrCrypto)
}

func TestAuthInfoService_Create_RefreshToken(t *testing.T) {
	env := newTestEnv(t, false)
	env.oauth.Refreshes["5Aep-existing"] = &driven.OAuthToken{
		AccessToken: "00D!from-refresh",
		InstanceURL: "https://na2.example.com",
		IdentityURL: "https://login.example.com/id/" + testOrgID + "/005",
	}
	env.oauth.Identities["00D!from-refresh"] = &driven.Identity{Username: testUsername, OrgID: testOrgID}

	info, err := env.auths.Create(context.Background(), "", &AuthOptions{RefreshToken: "5Aep-existing"})
	require.NoError(t, err)

	f := info.Fields()
	assert.Equal(t, "00D!from-refresh", f.AccessToken)
	assert.Equal(t, "5Aep-existing", f.RefreshToken)
	assert.Equal(t, "https://na2.example.com", f.InstanceURL)
}

func TestAuthInfoService_Create_AccessToken(t *testing.T) {
	env := newTestEnv(t, false)
	env.oauth.Identities["00D!bare"] = &driven.Identity{Username: "bare@example.com", OrgID: testOrgID}

	info, err := env.auths.Create(context.Background(), "", &AuthOptions{
		AccessToken: "00D!bare",
		InstanceURL: "https://na3.example.com/",
	})
	require.NoError(t, err)

	assert.True(t, info.IsAccessTokenFlow())
	assert.Equal(t, "bare@example.com", info.Username())
	assert.Equal(t, "https://na3.example.com", info.Fields().InstanceURL)
	assert.Nil(t, info.ConnectionOptions().OAuth2)
	assert.FileExists(t, env.authPath("bare@example.com"))

	_, err = env.auths.Create(context.Background(), "", &AuthOptions{AccessToken: "00D!bare"})
	assert.ErrorIs(t, err, domain.ErrMissingArg)
}

func TestAuthInfo_Refresh(t *testing.T) {
	env := newTestEnv(t, false)
	info := env.saveAuth(t, oauthFields(testUsername, testOrgID))
	env.oauth.Refreshes["5Aep-refresh-"+testUsername] = &driven.OAuthToken{AccessToken: "00D!rotated"}

	require.NoError(t, info.Refresh(context.Background()))
	assert.Equal(t, "00D!rotated", info.Fields().AccessToken)
	assert.Equal(t, "5Aep-refresh-"+testUsername, info.Fields().RefreshToken)

	reloaded, err := env.auths.Create(context.Background(), testUsername, nil)
	require.NoError(t, err)
	assert.Equal(t, "00D!rotated", reloaded.Fields().AccessToken)
}

func TestAuthInfo_Refresh_Rejected(t *testing.T) {
	env := newTestEnv(t, false)
	info := env.saveAuth(t, oauthFields(testUsername, testOrgID))

	err := info.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRefresh)
	assert.Equal(t, 1, env.oauth.RefreshCalls, "a rejected refresh is not retried")
	assert.Equal(t, "00D!access-"+testUsername, info.Fields().AccessToken)
}

func TestAuthInfo_Refresh_AccessTokenOnly(t *testing.T) {
	env := newTestEnv(t, false)
	info := env.saveAuth(t, domain.AuthFields{Username: testUsername, AccessToken: "00D!x"})

	err := info.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRefresh)
	assert.Zero(t, env.oauth.RefreshCalls)
}

func TestAuthInfo_Save_MergesExtraFields(t *testing.T) {
	env := newTestEnv(t, false)
	info := env.saveAuth(t, oauthFields(testUsername, ""))

	require.NoError(t, info.Save(domain.AuthFields{OrgID: testOrgID, DevHubUsername: "hub@example.com"}))

	reloaded, err := env.auths.Create(context.Background(), testUsername, nil)
	require.NoError(t, err)
	assert.Equal(t, testOrgID, reloaded.Fields().OrgID)
	assert.Equal(t, "hub@example.com", reloaded.Fields().DevHubUsername)
	assert.Equal(t, "00D!access-"+testUsername, reloaded.Fields().AccessToken)
}

func TestAuthInfo_Update_DoesNotPersist(t *testing.T) {
	env := newTestEnv(t, false)
	info := env.saveAuth(t, oauthFields(testUsername, testOrgID))

	info.Update(domain.AuthFields{Edition: "Developer"})
	assert.Equal(t, "Developer", info.Fields().Edition)

	reloaded, err := env.auths.Create(context.Background(), testUsername, nil)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Fields().Edition)
}

func TestAuthInfo_ConnectionOptions(t *testing.T) {
	env := newTestEnv(t, false)
	info := env.saveAuth(t, oauthFields(testUsername, testOrgID))

	opts := info.ConnectionOptions()
	assert.Equal(t, "00D!access-"+testUsername, opts.AccessToken)
	assert.Equal(t, "https://na1.example.com", opts.InstanceURL)
	require.NotNil(t, opts.OAuth2)
	assert.Equal(t, domain.DefaultClientID, opts.OAuth2.ClientID)
	assert.Equal(t, "5Aep-refresh-"+testUsername, opts.OAuth2.RefreshToken)
}

func TestAuthInfo_FrontDoorURL(t *testing.T) {
	env := newTestEnv(t, false)
	info := env.saveAuth(t, domain.AuthFields{
		Username:    testUsername,
		InstanceURL: "https://na1.example.com/",
		AccessToken: "00D!a b",
	})

	assert.Equal(t, "https://na1.example.com/secur/frontdoor.jsp?sid=00D%21a+b", info.FrontDoorURL())
}

func TestAuthInfoService_ListAllAuthFiles(t *testing.T) {
	env := newTestEnv(t, false)

	has, err := env.auths.HasAuthentications()
	require.NoError(t, err)
	assert.False(t, has)

	env.saveAuth(t, oauthFields("b@example.com", testOrgID))
	env.saveAuth(t, oauthFields("a@example.co.uk", testOrgID))
	require.NoError(t, env.aliases.Set("x", "a@example.co.uk"))
	writeConfig(t, env, true, map[string]string{domain.ConfigKeyDefaultUsername: "a@example.co.uk"})
	require.NoError(t, os.WriteFile(filepath.Join(env.home, domain.StateFolder, "notes.json"), []byte("{}"), 0600))

	names, err := env.auths.ListAllAuthFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.co.uk.json", "b@example.com.json"}, names)

	usernames, err := env.auths.ListAllUsernames()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.co.uk", "b@example.com"}, usernames)

	has, err = env.auths.HasAuthentications()
	require.NoError(t, err)
	assert.True(t, has)
}

func TestAuthInfoService_RemoveAuthFile(t *testing.T) {
	env := newTestEnv(t, false)
	env.saveAuth(t, oauthFields(testUsername, testOrgID))

	require.NoError(t, env.auths.RemoveAuthFile(testUsername))
	assert.NoFileExists(t, env.authPath(testUsername))
	require.NoError(t, env.auths.RemoveAuthFile(testUsername))
}
