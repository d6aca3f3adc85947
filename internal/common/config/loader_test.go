// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_REGION", "AWS_DEFAULT_REGION",
		"AZURE_SUBSCRIPTION_ID", "AZURE_TENANT_ID", "AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "SNS_TOPIC_ARN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromFile_DefaultsAndOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CLOUDWISE_TEST_SUBSCRIPTION", "sub-123")

	path := writeConfig(t, `
app:
  name: cloudwise
providers:
  azure:
    subscription_id: ${CLOUDWISE_TEST_SUBSCRIPTION}
workers:
  interpret-cloud-query:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "AKIATEST", cfg.Providers.AWS.AccessKeyID)
	assert.True(t, cfg.Providers.AWS.Configured())
	assert.Equal(t, "us-east-1", cfg.Providers.AWS.Region)
	assert.Equal(t, "sub-123", cfg.Providers.Azure.SubscriptionID)
	assert.False(t, cfg.Providers.Azure.Configured(), "partial azure credentials are not usable")

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "json", cfg.LLM.Mode)
	assert.Equal(t, 0.1, cfg.LLM.Temperature)
	assert.Equal(t, 500, cfg.LLM.MaxTokens)
	assert.Equal(t, "llm", cfg.Optimizer.Strategy)
	assert.Equal(t, ":8080", cfg.Server.Address)

	w := GetWorkerConfig(cfg, "interpret-cloud-query")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_AnthropicKeyFromEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")

	cfg, err := LoadFromFile(writeConfig(t, "llm:\n  provider: anthropic\n"))
	require.NoError(t, err)
	assert.Equal(t, "anthropic-key", cfg.LLM.APIKey)
	assert.Contains(t, cfg.LLM.Model, "claude")
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{
			name:   "camunda enabled without broker",
			body:   "camunda:\n  enabled: true\n",
			errMsg: "camunda.broker_address",
		},
		{
			name:   "audit enabled without postgres",
			body:   "audit:\n  enabled: true\n",
			errMsg: "database.postgres.host",
		},
		{
			name:   "cache enabled without redis",
			body:   "cache:\n  enabled: true\n",
			errMsg: "database.redis.address",
		},
		{
			name:   "unknown llm mode",
			body:   "llm:\n  mode: yaml\n",
			errMsg: "llm.mode",
		},
		{
			name:   "unknown optimizer strategy",
			body:   "optimizer:\n  strategy: random\n",
			errMsg: "optimizer.strategy",
		},
		{
			name:   "email enabled without recipients",
			body:   "notifications:\n  email:\n    enabled: true\n    from: ops@example.com\n",
			errMsg: "notifications.email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))

	cfg := &Config{Workers: map[string]WorkerConfig{"optimize-cloud-costs": {Enabled: false}}}
	assert.False(t, IsWorkerEnabled(cfg, "optimize-cloud-costs"))
	assert.True(t, IsWorkerEnabled(cfg, "analyze-cloud-error"))
	assert.True(t, GetWorkerConfig(cfg, "analyze-cloud-error").Enabled)

	pg := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "cw", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cw sslmode=disable", pg.GetDSN())
}
