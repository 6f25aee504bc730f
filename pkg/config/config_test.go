package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alxnderia/ingestion/pkg/provider"
)

const testTenant = "8b0f6c1e-3f51-4c4e-9d0a-3a0f0c6b2d11"

// clearEnv isolates a test from the developer's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"TENANT_ID", "DATABASE_URL", "PG_HOST", "PG_PORT", "PG_USER", "PG_PASSWORD", "PG_DATABASE",
		"GOOGLE_ADMIN_EMAIL", "GOOGLE_CUSTOMER_ID", "AWS_IDENTITY_STORE_ID", "AWS_SSO_INSTANCE_ARN",
		"AWS_ACCESS_KEY_ID", "AWS_PROFILE", "AWS_LAMBDA_FUNCTION_NAME", "AWS_ORGANIZATIONS_ENABLED",
		"GITHUB_TOKEN", "GITHUB_ORG_LOGINS", "GCP_ORG_ID", "INGEST_LOG_LEVEL", "LOG_LEVEL",
		"INGEST_MAX_RETRIES", "INGEST_SCHEDULE_GITHUB",
	} {
		t.Setenv(name, "")
		_ = os.Unsetenv(name)
	}
	t.Setenv("INGEST_CONFIG_PATH", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TENANT_ID", testTenant)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, testTenant, cfg.TenantID)
	assert.Equal(t, "environment", cfg.Source("tenant_id"))
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, "default", cfg.Source("batch_size"))
	assert.Equal(t, 60*time.Minute, cfg.Interval(provider.TypeGoogleWorkspace))
	assert.Equal(t, 30*time.Minute, cfg.Interval(provider.TypeGithub))
	assert.Equal(t, 6*time.Hour, cfg.Interval(provider.TypeAwsOrganizations))
	assert.Equal(t, 2*time.Hour, cfg.Interval(provider.TypeGcpResourceManager))
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.PostProcessInterval)
	assert.Equal(t, 300*time.Second, cfg.Scheduler.MisfireGrace)
	assert.Equal(t, 3, cfg.Scheduler.MaxRetries)

	for _, typ := range provider.TypeValues() {
		assert.False(t, cfg.Configured(typ), typ.String())
	}
	assert.Equal(t, "postgres://cloudintel:@localhost:5432/cloud_identity_intel", cfg.DatabaseURL())
}

func TestValidateRequiresTenant(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingTenant)

	cfg.TenantID = "acme"
	assert.ErrorContains(t, cfg.Validate(), "must be a UUID")
}

func TestProvidersFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TENANT_ID", testTenant)
	t.Setenv("GOOGLE_ADMIN_EMAIL", "admin@example.com")
	t.Setenv("GOOGLE_CUSTOMER_ID", "C0123")
	t.Setenv("AWS_IDENTITY_STORE_ID", "d-1234567890")
	t.Setenv("AWS_SSO_INSTANCE_ARN", "arn:aws:sso:::instance/ssoins-1")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ORGANIZATIONS_ENABLED", "TRUE")
	t.Setenv("GITHUB_TOKEN", "ghp_x")
	t.Setenv("GITHUB_ORG_LOGINS", " acme, , widgets ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Configured(provider.TypeGoogleWorkspace))
	assert.True(t, cfg.Configured(provider.TypeAwsIdentityCenter))
	assert.True(t, cfg.Configured(provider.TypeAwsOrganizations))
	assert.True(t, cfg.Configured(provider.TypeGithub))
	assert.False(t, cfg.Configured(provider.TypeGcpResourceManager))

	assert.Equal(t, "eu-west-1", cfg.AwsIdentityCenter.Region)
	assert.Equal(t, []string{"acme", "widgets"}, cfg.Github.OrgLogins)
	assert.Equal(t, DefaultGithubURL, cfg.Github.APIBaseURL)
	assert.Equal(t, "environment", cfg.Source("github"))
}

func TestFileThenEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("INGEST_CONFIG_PATH", dir)

	yml := `
tenant_id: ` + testTenant + `
batch_size: 250
gcp:
  org_id: "123456"
scheduler:
  github_interval: 10m
  max_retries: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yml), 0o600))
	t.Setenv("INGEST_MAX_RETRIES", "1")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, "file", cfg.Source("batch_size"))
	assert.Equal(t, 10*time.Minute, cfg.Interval(provider.TypeGithub))
	assert.Equal(t, "file", cfg.Source("schedule"))
	assert.Equal(t, 1, cfg.Scheduler.MaxRetries)
	assert.Equal(t, "environment", cfg.Source("max_retries"))
	assert.True(t, cfg.Configured(provider.TypeGcpResourceManager))
}

func TestInvalidScheduleEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("INGEST_SCHEDULE_GITHUB", "often")

	_, err := Load()
	assert.ErrorContains(t, err, "INGEST_SCHEDULE_GITHUB")
}

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, value string) (string, error) {
	if v, ok := f[value]; ok {
		return v, nil
	}
	return value, nil
}

func TestResolveSecrets(t *testing.T) {
	cfg := newDefault()
	cfg.Database.URL = "aws-secret://ingest/db#url"
	cfg.Github = &GithubConfig{Token: "gcp-secret://github-token"}

	err := cfg.ResolveSecrets(context.Background(), fakeResolver{
		"aws-secret://ingest/db#url": "postgres://u:p@db:5432/ingest",
		"gcp-secret://github-token":  "ghp_resolved",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/ingest", cfg.DatabaseURL())
	assert.Equal(t, "ghp_resolved", cfg.Github.Token)
}

func TestFormatTextRedactsCredentials(t *testing.T) {
	cfg := newDefault()
	cfg.Database.URL = "postgres://ingest:hunter2@db:5432/ingest"
	cfg.Status.JWTSecret = "s3cret"

	out := cfg.FormatText()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3cret")
	assert.True(t, strings.Contains(out, "(redacted)"))

	js, err := cfg.FormatJSON()
	require.NoError(t, err)
	assert.Contains(t, js, `"attributes"`)
}
