package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mxshs/oddsranker/src/apperr"
	"mxshs/oddsranker/src/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCredentials(t *testing.T) {
	path := writeFile(t, ".env", "# account\nUSERNAME=alice\nPASSWORD= s3cret \n")

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, domain.Credentials{Username: "alice", Password: "s3cret"}, creds)
}

func TestLoadCredentialsMissingValue(t *testing.T) {
	t.Setenv(EnvPrefix+PasswordKey, "")
	path := writeFile(t, ".env", "USERNAME=alice\nPASSWORD=\n")

	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConfigurationMissing))
	assert.Contains(t, err.Error(), PasswordKey)
}

func TestLoadCredentialsFallsBackToEnvironment(t *testing.T) {
	t.Setenv(UsernameKey, "shell-user")
	t.Setenv(EnvPrefix+UsernameKey, "bob")
	t.Setenv(EnvPrefix+PasswordKey, "hunter2")

	creds, err := LoadCredentials(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "bob", creds.Username)
	assert.Equal(t, "hunter2", creds.Password)
}

func TestLoadCredentialsIgnoresShellUsername(t *testing.T) {
	t.Setenv(UsernameKey, "shell-user")
	t.Setenv(EnvPrefix+UsernameKey, "")
	path := writeFile(t, ".env", "PASSWORD=s3cret\n")

	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConfigurationMissing))
	assert.Contains(t, err.Error(), UsernameKey)
}

func TestDefaultSite(t *testing.T) {
	site, err := DefaultSite()
	require.NoError(t, err)

	assert.Equal(t, "page", site.PageParam)
	assert.Equal(t, 30*time.Second, site.Browser.IdleTimeout)
	assert.Len(t, site.Bookmakers, 10)

	listing, ok := site.ListingURL(domain.Football)
	require.True(t, ok)
	assert.Equal(t, "https://www.odds-compare.example/football/matches", listing)
	assert.Equal(t, "https://www.odds-compare.example/login", site.LoginURL())

	b, ok := site.Bookmaker("2")
	require.True(t, ok)
	assert.Equal(t, "Winamax", b.Name)
}

func TestLoadSiteOverridesDefaults(t *testing.T) {
	path := writeFile(t, "site.yaml", `
base_url: https://staging.example
bookmakers:
  - { id: "a", name: Alpha }
`)

	site, err := LoadSite(path)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example/account/bookmakers", site.SettingsURL())
	assert.Equal(t, []domain.Bookmaker{{ID: "a", Name: "Alpha"}}, site.Bookmakers)
	assert.Equal(t, ".match-block", site.Selector.MatchBlock)
}

func TestLoadSiteRejectsDuplicateBookmakers(t *testing.T) {
	path := writeFile(t, "site.yaml", `
bookmakers:
  - { id: "1", name: A }
  - { id: "1", name: B }
`)

	_, err := LoadSite(path)
	require.ErrorContains(t, err, "duplicate")
}
