package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/crewflow/persistence"
	"github.com/BaSui01/crewflow/types"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Health.MaxConcurrentAgents)
	assert.Equal(t, 5*time.Minute, cfg.Health.DefaultTimeout)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, 3, cfg.Coordinator.MaxDelegationAttempts)
	assert.Equal(t, 2, cfg.Coordinator.Review.MaxRevisions)
	assert.Equal(t, 3, cfg.Coordinator.Review.Synthesis.Quorum)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoader_FileLayering(t *testing.T) {
	path := writeConfigFile(t, `
log:
  level: debug
  format: console
health:
  max_concurrent_agents: 4
store:
  type: file
  base_dir: /tmp/snapshots
coordinator:
  max_delegation_attempts: 5
  review:
    synthesis:
      strategy: vote
      quorum: 5
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Health.MaxConcurrentAgents)
	assert.Equal(t, "file", cfg.Store.Type)
	assert.Equal(t, "/tmp/snapshots", cfg.Store.BaseDir)
	assert.Equal(t, 5, cfg.Coordinator.MaxDelegationAttempts)
	assert.Equal(t, "vote", cfg.Coordinator.Review.Synthesis.Strategy)
	assert.Equal(t, 5, cfg.Coordinator.Review.Synthesis.Quorum)

	// Untouched sections keep their defaults.
	assert.Equal(t, 5, cfg.Health.MaxConcurrentPerType)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
}

func TestLoader_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).
		Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
log:
  level: debug
store:
  type: file
`)
	t.Setenv("CREWFLOW_LOG_LEVEL", "warn")
	t.Setenv("CREWFLOW_STORE_TYPE", "redis")
	t.Setenv("CREWFLOW_STORE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("CREWFLOW_HEALTH_DEFAULT_TIMEOUT", "90s")
	t.Setenv("CREWFLOW_TELEMETRY_ENABLED", "true")
	t.Setenv("CREWFLOW_LOG_OUTPUT_PATHS", "stdout, /var/log/crewflow.log")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "redis", cfg.Store.Type)
	assert.Equal(t, "redis.internal:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, 90*time.Second, cfg.Health.DefaultTimeout)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, []string{"stdout", "/var/log/crewflow.log"}, cfg.Log.OutputPaths)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("CF_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithEnvPrefix("CF").Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoader_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad log level", map[string]string{"CREWFLOW_LOG_LEVEL": "loud"}, "invalid log level"},
		{"bad store type", map[string]string{"CREWFLOW_STORE_TYPE": "tape"}, "unknown store type"},
		{"bad strategy", map[string]string{"CREWFLOW_COORDINATOR_REVIEW_SYNTHESIS_STRATEGY": "guess"}, "unknown synthesis strategy"},
		{"bad sample rate", map[string]string{"CREWFLOW_TELEMETRY_SAMPLE_RATE": "1.5"}, "sample_rate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := NewLoader().Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoader_CustomValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			return assert.AnError
		}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestConfig_Converters(t *testing.T) {
	cfg := DefaultConfig()

	policy := cfg.Health.Policy()
	assert.Equal(t, 10, policy.MaxConcurrentAgents)
	assert.Equal(t, 2, policy.MaxConcurrentPerTier[types.TierEvaluator])
	assert.Equal(t, 10, policy.MaxConcurrentPerTier[types.TierSpecialist])

	sc := cfg.Store.StoreConfig()
	assert.Equal(t, persistence.StoreTypeMemory, sc.Type)
	assert.Equal(t, "crewflow:", sc.Redis.KeyPrefix)

	cc := cfg.Coordinator.CrewConfig()
	assert.Equal(t, 256, cc.EventBuffer)
	assert.Equal(t, 3, cc.Review.Synthesis.Quorum)
}

func TestLogConfig_Build(t *testing.T) {
	logger, err := DefaultLogConfig().Build()
	require.NoError(t, err)
	logger.Info("config logger smoke test")

	_, err = LogConfig{Level: "shout", Format: "json"}.Build()
	require.Error(t, err)
}
