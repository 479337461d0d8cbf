package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings holds all configuration for a reconciliation pass. Values are
// layered: defaults, then an optional TOML settings file, then environment
// variables, then command-line flags on top. Loaded once at startup and
// treated as immutable.
type Settings struct {
	// Azure DevOps organization and credentials.
	Organization        string `toml:"organization"`
	PersonalAccessToken string `toml:"-"`
	DevOpsBaseURL       string `toml:"devops_base_url"`

	// Identity directory (Microsoft Graph) app registration.
	TenantID      string `toml:"tenant_id"`
	ClientID      string `toml:"client_id"`
	ClientSecret  string `toml:"-"`
	GraphBaseURL  string `toml:"graph_base_url"`
	OAuthEndpoint string `toml:"oauth_endpoint"`

	// Lifecycle policy day counts.
	DaysBeforeDeletion     int `toml:"days_before_deletion"`
	DaysBeforeDemotion     int `toml:"days_before_demotion"`
	DaysGraceAfterCreation int `toml:"days_grace_after_creation"`

	// Policy group naming.
	GroupPrefix string `toml:"group_prefix"`
	GroupSuffix string `toml:"group_suffix"`

	// Exclusion filters, comma-delimited. Matching is case-insensitive
	// substring membership.
	ExcludedNameWords  string `toml:"excluded_name_words"`
	ExcludedPrincipals string `toml:"excluded_principals"`

	// DryRun disables every mutating remote call; intent is logged.
	DryRun bool `toml:"dry_run"`
	// DeleteDirectoryIdentities extends the deletion policy to the
	// identity directory itself.
	DeleteDirectoryIdentities bool `toml:"delete_directory_identities"`

	// HTTP behavior for both remote clients.
	HTTPTimeout       time.Duration `toml:"-"`
	MaxRetries        int           `toml:"max_retries"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
}

// Defaults returns the baseline settings. Credentials and the organization
// have no defaults and must be provided.
func Defaults() Settings {
	return Settings{
		DevOpsBaseURL:          "https://vsaex.dev.azure.com",
		GraphBaseURL:           "https://graph.microsoft.com",
		OAuthEndpoint:          "https://login.microsoftonline.com",
		DaysBeforeDeletion:     180,
		DaysBeforeDemotion:     90,
		DaysGraceAfterCreation: 30,
		GroupPrefix:            "License-",
		GroupSuffix:            "",
		HTTPTimeout:            100 * time.Second,
		MaxRetries:             3,
		RequestsPerSecond:      10,
	}
}

// Load builds Settings from defaults, the optional TOML file at path, and
// environment variables, in that order. An empty path skips the file layer.
func Load(path string) (Settings, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Settings{}, fmt.Errorf("reading settings file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Settings) {
	setString(&cfg.Organization, "ENTSYNC_ORGANIZATION")
	setString(&cfg.PersonalAccessToken, "ENTSYNC_DEVOPS_PAT")
	setString(&cfg.DevOpsBaseURL, "ENTSYNC_DEVOPS_BASE_URL")
	setString(&cfg.TenantID, "ENTSYNC_TENANT_ID")
	setString(&cfg.ClientID, "ENTSYNC_CLIENT_ID")
	setString(&cfg.ClientSecret, "ENTSYNC_CLIENT_SECRET")
	setString(&cfg.GraphBaseURL, "ENTSYNC_GRAPH_BASE_URL")
	setString(&cfg.OAuthEndpoint, "ENTSYNC_OAUTH_ENDPOINT")
	setInt(&cfg.DaysBeforeDeletion, "ENTSYNC_DAYS_BEFORE_DELETION")
	setInt(&cfg.DaysBeforeDemotion, "ENTSYNC_DAYS_BEFORE_DEMOTION")
	setInt(&cfg.DaysGraceAfterCreation, "ENTSYNC_DAYS_GRACE_AFTER_CREATION")
	setString(&cfg.GroupPrefix, "ENTSYNC_GROUP_PREFIX")
	setString(&cfg.GroupSuffix, "ENTSYNC_GROUP_SUFFIX")
	setString(&cfg.ExcludedNameWords, "ENTSYNC_EXCLUDED_NAME_WORDS")
	setString(&cfg.ExcludedPrincipals, "ENTSYNC_EXCLUDED_PRINCIPALS")
	setBool(&cfg.DryRun, "ENTSYNC_DRY_RUN")
	setBool(&cfg.DeleteDirectoryIdentities, "ENTSYNC_DELETE_DIRECTORY_IDENTITIES")
	setInt(&cfg.MaxRetries, "ENTSYNC_MAX_RETRIES")
}

// Validate reports missing required settings and invalid day counts. Called
// before any remote call; a failure here is fatal.
func (s Settings) Validate() error {
	var missing []string
	if s.Organization == "" {
		missing = append(missing, "organization")
	}
	if s.PersonalAccessToken == "" {
		missing = append(missing, "personal access token")
	}
	if s.TenantID == "" {
		missing = append(missing, "tenant id")
	}
	if s.ClientID == "" {
		missing = append(missing, "client id")
	}
	if s.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required settings are not set: %s", strings.Join(missing, ", "))
	}

	if s.DaysBeforeDeletion < 0 || s.DaysBeforeDemotion < 0 || s.DaysGraceAfterCreation < 0 {
		return fmt.Errorf("policy day counts must not be negative")
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	return nil
}

// SplitList splits a comma-delimited exclusion list into trimmed entries,
// dropping empties.
func SplitList(list string) []string {
	var out []string
	for _, entry := range strings.Split(list, ",") {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
