package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
app:
  name: emi-decision-engine
  environment: test
camunda:
  enabled: false
models:
  tracking_uri: http://mlflow:5000
  eligibility:
    reference: models:/emi-eligibility@champion
    serving_url: http://eligibility:5001
  emi:
    reference: models:/emi-max-amount/3
    serving_url: http://emi:5002
    timeout: 1500
cache:
  enabled: true
  redis:
    address: ${TEST_REDIS_ADDR}
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_DefaultsAndExpansion(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis:6379")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))

	require.NoError(t, err)
	assert.Equal(t, "emi-v2", cfg.Models.FeatureSchema)
	assert.True(t, cfg.Models.EnforceSchema)
	assert.Equal(t, 5, cfg.Models.ResolveRetries)
	assert.Equal(t, 5000, cfg.Models.Eligibility.Timeout)
	assert.Equal(t, 1500, cfg.Models.EMI.Timeout)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Address)
	assert.Equal(t, 600, cfg.Cache.TTL)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.False(t, cfg.Camunda.Enabled)
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis:6379")
	t.Setenv("MODELS_EMI_SERVING_URL", "http://override:9000")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))

	require.NoError(t, err)
	assert.Equal(t, "http://override:9000", cfg.Models.EMI.ServingURL)
}

func TestLoadFromFile_LegacySchemaAndOptOut(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis:6379")
	path := writeConfig(t, baseYAML+"tracing:\n  sample_ratio: 0.25\n")
	t.Setenv("MODELS_FEATURE_SCHEMA", "emi-v1")
	t.Setenv("MODELS_ENFORCE_SCHEMA", "false")

	cfg, err := LoadFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, "emi-v1", cfg.Models.FeatureSchema)
	assert.False(t, cfg.Models.EnforceSchema)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Models: ModelsConfig{
				TrackingURI: "http://mlflow:5000",
				Eligibility: ModelConfig{Reference: "models:/elig@champion", ServingURL: "http://a"},
				EMI:         ModelConfig{Reference: "models/emi", ServingURL: "http://b"},
			},
		}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown schema", func(c *Config) { c.Models.FeatureSchema = "emi-v9" }, "feature_schema"},
		{"missing reference", func(c *Config) { c.Models.EMI.Reference = "" }, "models.emi.reference"},
		{"missing serving url", func(c *Config) { c.Models.Eligibility.ServingURL = "" }, "models.eligibility.serving_url"},
		{"registry without tracking uri", func(c *Config) { c.Models.TrackingURI = "" }, "tracking_uri"},
		{"camunda without broker", func(c *Config) { c.Camunda.Enabled = true }, "broker_address"},
		{"cache without redis", func(c *Config) { c.Cache.Enabled = true }, "cache.redis.address"},
		{"bad sample ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }, "sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"evaluate-emi-eligibility": {Enabled: false, MaxJobsActive: 2}}}

	assert.False(t, IsWorkerEnabled(cfg, "evaluate-emi-eligibility"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "evaluate-emi-eligibility").MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "other"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "other").MaxJobsActive)
}
