package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalandres/sfdx-core/internal/core/domain"
)

func writeConfig(t *testing.T, env *testEnv, global bool, values map[string]string) {
	t.Helper()
	cfg, err := NewSfdxConfig(env.files, global)
	require.NoError(t, err)
	for k, v := range values {
		require.NoError(t, cfg.Set(k, v))
	}
	require.NoError(t, cfg.Write())
}

func environ(vars ...string) AggregatorOption {
	return WithEnviron(func() []string { return vars })
}

func TestConfigAggregator_Precedence(t *testing.T) {
	env := newTestEnv(t, true)
	writeConfig(t, env, true, map[string]string{
		domain.ConfigKeyAPIVersion:      "50.0",
		domain.ConfigKeyDefaultUsername: "global@example.com",
		domain.ConfigKeyInstanceURL:     "https://global.example.com",
	})
	writeConfig(t, env, false, map[string]string{
		domain.ConfigKeyAPIVersion:      "51.0",
		domain.ConfigKeyDefaultUsername: "local@example.com",
	})

	agg, err := NewConfigAggregator(env.files, environ("SFDX_API_VERSION=52.0", "HOME=/tmp"))
	require.NoError(t, err)

	info := agg.GetInfo(domain.ConfigKeyAPIVersion)
	assert.Equal(t, "52.0", info.Value)
	assert.Equal(t, domain.LocationEnvironment, info.Location)
	assert.Equal(t, "SFDX_API_VERSION", info.Path)

	info = agg.GetInfo(domain.ConfigKeyDefaultUsername)
	assert.Equal(t, "local@example.com", info.Value)
	assert.Equal(t, domain.LocationLocal, info.Location)
	assert.Contains(t, info.Path, env.work)

	info = agg.GetInfo(domain.ConfigKeyInstanceURL)
	assert.Equal(t, "https://global.example.com", info.Value)
	assert.Equal(t, domain.LocationGlobal, info.Location)
	assert.Contains(t, info.Path, env.home)
}

func TestConfigAggregator_NotFound(t *testing.T) {
	env := newTestEnv(t, false)

	agg, err := NewConfigAggregator(env.files, environ())
	require.NoError(t, err)

	info := agg.GetInfo(domain.ConfigKeyDefaultDevHubUsername)
	assert.Equal(t, domain.LocationNotFound, info.Location)
	assert.Nil(t, info.Value)
	assert.False(t, info.IsFound())
	assert.Nil(t, agg.GetPropertyValue(domain.ConfigKeyDefaultDevHubUsername))
}

func TestConfigAggregator_ProcessEnvironment(t *testing.T) {
	env := newTestEnv(t, false)
	t.Setenv("SFDX_DEFAULTUSERNAME", "env@example.com")

	agg, err := NewConfigAggregator(env.files)
	require.NoError(t, err)

	assert.Equal(t, "env@example.com", agg.GetString(domain.ConfigKeyDefaultUsername))
	assert.Equal(t, domain.LocationEnvironment, agg.GetLocation(domain.ConfigKeyDefaultUsername))
}

func TestConfigAggregator_IgnoresUnrecognisedVariables(t *testing.T) {
	env := newTestEnv(t, false)

	agg, err := NewConfigAggregator(env.files, environ("SFDX_NOT_A_KEY=1", "API_VERSION=1.0"))
	require.NoError(t, err)

	assert.Empty(t, agg.List())
}

func TestConfigAggregator_OutsideProject(t *testing.T) {
	env := newTestEnv(t, false)
	writeConfig(t, env, true, map[string]string{domain.ConfigKeyDefaultUsername: "g@example.com"})

	agg, err := NewConfigAggregator(env.files, environ())
	require.NoError(t, err)

	assert.Len(t, agg.Paths(), 1)
	assert.Equal(t, domain.LocationGlobal, agg.GetLocation(domain.ConfigKeyDefaultUsername))
}

func TestConfigAggregator_Reload(t *testing.T) {
	env := newTestEnv(t, true)
	agg, err := NewConfigAggregator(env.files, environ())
	require.NoError(t, err)
	assert.Len(t, agg.Paths(), 2)
	assert.Equal(t, domain.LocationNotFound, agg.GetLocation(domain.ConfigKeyDefaultUsername))

	writeConfig(t, env, false, map[string]string{domain.ConfigKeyDefaultUsername: "new@example.com"})
	assert.Equal(t, domain.LocationNotFound, agg.GetLocation(domain.ConfigKeyDefaultUsername))

	require.NoError(t, agg.Reload())
	assert.Equal(t, "new@example.com", agg.GetString(domain.ConfigKeyDefaultUsername))
}

func TestConfigAggregator_List(t *testing.T) {
	env := newTestEnv(t, true)
	writeConfig(t, env, true, map[string]string{domain.ConfigKeyMaxQueryLimit: "10"})
	writeConfig(t, env, false, map[string]string{domain.ConfigKeyDefaultUsername: "l@example.com"})

	agg, err := NewConfigAggregator(env.files, environ("SFDX_API_VERSION=55.0"))
	require.NoError(t, err)

	infos := agg.List()
	require.Len(t, infos, 3)
	assert.Equal(t, domain.ConfigKeyAPIVersion, infos[0].Key)
	assert.Equal(t, domain.ConfigKeyDefaultUsername, infos[1].Key)
	assert.Equal(t, domain.ConfigKeyMaxQueryLimit, infos[2].Key)
	assert.Equal(t, domain.LocationGlobal, infos[2].Location)
}
