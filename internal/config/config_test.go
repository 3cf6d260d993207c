package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
indy:
  request_timeout: 30s
  temperature: 0.2
cms:
  base_url: "http://cms.internal"
`), 0600))

	t.Setenv("OPENAI_API_KEY", "sk-from-env-000000")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("INDY_CMS_URL", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Indy.RequestTimeout)
	assert.InDelta(t, 0.2, cfg.Indy.Temperature, 1e-9)
	assert.Equal(t, "http://cms.internal", cfg.CMS.BaseURL)
	assert.Equal(t, "sk-from-env-000000", cfg.API.OpenAIKey)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	// untouched sections keep their defaults
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 2000, cfg.Indy.MaxTokens)
}

func TestLoad_KeychainFallback(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, NewKeyringManager().SaveAPIKey("sk-keychain-000000"))
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-keychain-000000", cfg.API.OpenAIKey)
	assert.True(t, cfg.API.UseKeychain)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSave_OmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.API.OpenAIKey = "sk-secret-000000"
	path := filepath.Join(t.TempDir(), "out", "config.yaml")

	require.NoError(t, cfg.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
	assert.Contains(t, string(data), "gpt-4o-mini")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.API.OpenAIKey = "sk-ok-000000000"

	result := cfg.ValidateWithMode(ValidationContextAll, ModeDevelopment)
	assert.False(t, result.HasErrors(), result.Error())
	assert.NotEmpty(t, result.Warnings) // no redis configured

	cfg.Storage.Type = "mongo"
	cfg.Indy.Temperature = 3
	result = cfg.ValidateWithMode(ValidationContextServe, ModeDevelopment)
	assert.True(t, result.HasErrors())
	assert.Len(t, result.Errors, 2)
}

func TestValidate_ChatRequiresOpenAIKey(t *testing.T) {
	cfg := Default()
	result := cfg.ValidateWithMode(ValidationContextChat, ModeDevelopment)
	require.True(t, result.HasErrors())
	assert.Contains(t, result.Error(), "OPENAI_API_KEY")
}

func TestValidate_PostgresSSLByMode(t *testing.T) {
	cfg := Default()
	cfg.Storage.Type = "postgres"
	cfg.Storage.PostgresDSN = "postgres://u:p@db:5432/indy?sslmode=disable"

	dev := cfg.ValidateWithMode(ValidationContextServe, ModeDevelopment)
	assert.False(t, dev.HasErrors())

	ci := cfg.ValidateWithMode(ValidationContextServe, ModeCI)
	assert.True(t, ci.HasErrors())
}

func TestDetectMode_Override(t *testing.T) {
	t.Setenv("INDY_MODE", "ci")
	assert.Equal(t, ModeCI, DetectMode())
	t.Setenv("INDY_MODE", "dev")
	assert.Equal(t, ModeDevelopment, DetectMode())
}

func TestDeploymentMode_DescribesCredentialSource(t *testing.T) {
	assert.Equal(t, "CI/CD pipeline", ModeCI.Description())
	assert.Equal(t, "environment variables only", ModeCI.ConfigSource())
	assert.Equal(t, ".env file", ModeDevelopment.ConfigSource())
	assert.Equal(t, "unknown", DeploymentMode("other").ConfigSource())
}

func TestCredentialManager_HasCredentialsFromFile(t *testing.T) {
	keyring.MockInit()
	t.Setenv("OPENAI_API_KEY", "")

	cm := NewCredentialManager()
	cm.configPath = filepath.Join(t.TempDir(), "credentials.yaml")
	assert.Equal(t, cm.configPath, cm.GetConfigPath())
	assert.False(t, cm.HasCredentials())

	require.NoError(t, cm.saveConfigFile(Credentials{OpenAIAPIKey: "sk-file-0000000000"}))
	assert.True(t, cm.HasCredentials())

	t.Setenv("OPENAI_API_KEY", "sk-env-0000000000")
	cm.configPath = filepath.Join(t.TempDir(), "missing.yaml")
	assert.True(t, cm.HasCredentials())
}
