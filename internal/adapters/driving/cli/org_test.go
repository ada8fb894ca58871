package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/services"
)

func TestOrgDisplayCmd(t *testing.T) {
	s := setupTestServices(t)
	s.storeRecord(t, testUsername, testOrgID, testAccessToken)
	require.NoError(t, s.aliases.Set("dev", testUsername))

	out, err := execute(t, "", "org", "display", "-u", "dev")

	require.NoError(t, err)
	assert.Contains(t, out, testUsername)
	assert.Contains(t, out, "alias")
	assert.Contains(t, out, testOrgID)
	assert.Contains(t, out, "https://na1.example.com")
	assert.Contains(t, out, "00Dt...cdef")
	assert.NotContains(t, out, testAccessToken)
}

func TestOrgDisplayCmd_ShowToken(t *testing.T) {
	s := setupTestServices(t)
	s.storeRecord(t, testUsername, testOrgID, testAccessToken)

	out, err := execute(t, "", "org", "display", "-u", testUsername, "--show-token")

	require.NoError(t, err)
	assert.Contains(t, out, testAccessToken)
}

func TestOrgDisplayCmd_DefaultUsername(t *testing.T) {
	s := setupTestServices(t)
	s.storeRecord(t, testUsername, testOrgID, testAccessToken)
	_, err := execute(t, "", "config", "set", "defaultusername="+testUsername)
	require.NoError(t, err)

	out, err := execute(t, "", "org", "display")

	require.NoError(t, err)
	assert.Contains(t, out, testOrgID)
}

func TestOrgDisplayCmd_NoTarget(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "org", "display")

	assert.ErrorIs(t, err, domain.ErrMissingArg)
}

func TestOrgListCmd(t *testing.T) {
	s := setupTestServices(t)

	out, err := execute(t, "", "org", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No authorized orgs.")

	s.storeRecord(t, testUsername, testOrgID, testAccessToken)
	s.storeRecord(t, "hub@example.com", "00D000000000002AAA", "00Dtoken-hub000")
	require.NoError(t, s.aliases.Set("hub", "hub@example.com"))
	_, err = execute(t, "", "config", "set", "defaultdevhubusername=hub", "defaultusername="+testUsername)
	require.NoError(t, err)

	out, err = execute(t, "", "org", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "(D) hub")
	assert.Contains(t, out, "hub@example.com")
	assert.Contains(t, out, "(U)")
	assert.Contains(t, out, testUsername)
	assert.Contains(t, out, testOrgID)
}

func TestOrgRemoveCmd(t *testing.T) {
	s := setupTestServices(t)
	s.storeRecord(t, testUsername, testOrgID, testAccessToken)
	require.NoError(t, s.aliases.Set("dev", testUsername))
	_, err := execute(t, "", "config", "set", "defaultusername=dev")
	require.NoError(t, err)

	out, err := execute(t, "", "org", "remove", "-u", "dev", "--no-prompt")

	require.NoError(t, err)
	assert.Contains(t, out, "Removed "+testUsername)

	usernames, err := s.auths.ListAllUsernames()
	require.NoError(t, err)
	assert.Empty(t, usernames)

	aliases, err := s.aliases.List()
	require.NoError(t, err)
	assert.Empty(t, aliases)

	assert.False(t, s.aggregator.GetInfo(domain.ConfigKeyDefaultUsername).IsFound())
	cfg, err := services.NewSfdxConfig(s.files, false)
	require.NoError(t, err)
	_, ok := cfg.Get(domain.ConfigKeyDefaultUsername)
	assert.False(t, ok)
}

func TestOrgRemoveCmd_Prompt(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		removed bool
	}{
		{"yes", "y\n", true},
		{"full word", "YES\n", true},
		{"no", "n\n", false},
		{"empty", "\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServices(t)
			s.storeRecord(t, testUsername, testOrgID, testAccessToken)

			out, err := execute(t, tt.answer, "org", "remove", "-u", testUsername)

			require.NoError(t, err)
			assert.Contains(t, out, "Remove "+testUsername)
			has, err := s.auths.HasAuthentications()
			require.NoError(t, err)
			assert.Equal(t, !tt.removed, has)
			if !tt.removed {
				assert.Contains(t, out, "Cancelled.")
			}
		})
	}
}

func TestOrgCmd_ServiceNotConfigured(t *testing.T) {
	Configure(Services{})

	_, err := execute(t, "", "org", "display", "-u", testUsername)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "org service not configured")

	_, err = execute(t, "", "org", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth service not configured")
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"short", "abc123", "****"},
		{"exactly 8 chars", "12345678", "****"},
		{"long", "00D5g000004abcdef", "00D5...cdef"},
		{"empty", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskToken(tt.input))
		})
	}
}
