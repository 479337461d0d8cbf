package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() Settings {
	cfg := Defaults()
	cfg.Organization = "contoso"
	cfg.PersonalAccessToken = "pat"
	cfg.TenantID = "tenant"
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "https://vsaex.dev.azure.com", cfg.DevOpsBaseURL)
	assert.Equal(t, "https://graph.microsoft.com", cfg.GraphBaseURL)
	assert.Equal(t, 180, cfg.DaysBeforeDeletion)
	assert.Equal(t, 90, cfg.DaysBeforeDemotion)
	assert.Equal(t, 30, cfg.DaysGraceAfterCreation)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.DeleteDirectoryIdentities)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("ENTSYNC_ORGANIZATION", "contoso")
	t.Setenv("ENTSYNC_DAYS_BEFORE_DELETION", "400")
	t.Setenv("ENTSYNC_DRY_RUN", "true")
	t.Setenv("ENTSYNC_EXCLUDED_NAME_WORDS", "service,bot")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "contoso", cfg.Organization)
	assert.Equal(t, 400, cfg.DaysBeforeDeletion)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "service,bot", cfg.ExcludedNameWords)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entsync.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
organization = "from-file"
days_before_demotion = 45
group_prefix = "ADO-"
`), 0o600))
	t.Setenv("ENTSYNC_ORGANIZATION", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Environment beats the file; the file beats defaults.
	assert.Equal(t, "from-env", cfg.Organization)
	assert.Equal(t, 45, cfg.DaysBeforeDemotion)
	assert.Equal(t, "ADO-", cfg.GroupPrefix)
	assert.Equal(t, 180, cfg.DaysBeforeDeletion)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := Defaults()

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization")
	assert.Contains(t, err.Error(), "personal access token")
	assert.Contains(t, err.Error(), "tenant id")
}

func TestValidate_NegativeDayCount(t *testing.T) {
	cfg := validSettings()
	cfg.DaysBeforeDemotion = -1

	assert.Error(t, cfg.Validate())
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validSettings().Validate())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"service", "bot"}, SplitList("service, bot"))
	assert.Equal(t, []string{"one"}, SplitList("one,"))
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList(" , "))
}
