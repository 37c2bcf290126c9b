package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDefaultTimeoutValues verifies that timeout configurations have sensible defaults
func TestDefaultTimeoutValues(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.DBInitTimeout, "DB init timeout should be 30s")
	assert.Equal(t, 5*time.Second, cfg.RedisConnTimeout, "Redis connection timeout should be 5s")
	assert.Equal(t, 5*time.Second, cfg.CacheInitTimeout, "Cache init timeout should be 5s")
	assert.Equal(t, 5*time.Second, cfg.ServerShutdownTimeout, "Server shutdown timeout should be 5s")
	assert.Equal(t, 10*time.Second, cfg.AuditShutdownTimeout, "Audit shutdown timeout should be 10s")
	assert.Equal(t, 15*time.Second, cfg.GitHubTimeout, "GitHub timeout should be 15s")
	assert.Equal(t, 1*time.Second, cfg.GitHubRetryDelay, "GitHub retry delay should be 1s")
}

// TestTimeoutConfigurationFromEnv verifies that timeout values can be configured via environment
func TestTimeoutConfigurationFromEnv(t *testing.T) {
	tests := []struct {
		envKey   string
		envValue string
		getter   func(*Config) time.Duration
		expected time.Duration
	}{
		{"DB_INIT_TIMEOUT", "60s", func(c *Config) time.Duration { return c.DBInitTimeout }, 60 * time.Second},
		{"REDIS_CONN_TIMEOUT", "10s", func(c *Config) time.Duration { return c.RedisConnTimeout }, 10 * time.Second},
		{"CACHE_INIT_TIMEOUT", "3s", func(c *Config) time.Duration { return c.CacheInitTimeout }, 3 * time.Second},
		{"SERVER_SHUTDOWN_TIMEOUT", "30s", func(c *Config) time.Duration { return c.ServerShutdownTimeout }, 30 * time.Second},
		{"AUDIT_SHUTDOWN_TIMEOUT", "15s", func(c *Config) time.Duration { return c.AuditShutdownTimeout }, 15 * time.Second},
		{"GITHUB_RETRY_DELAY", "250ms", func(c *Config) time.Duration { return c.GitHubRetryDelay }, 250 * time.Millisecond},
		{"STATE_CLEANUP_INTERVAL", "1m", func(c *Config) time.Duration { return c.StateCleanupInterval }, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.envValue)

			cfg := Load()

			assert.Equal(t, tt.expected, tt.getter(cfg), "%s should be configurable via env", tt.envKey)
		})
	}
}

// TestTimeoutConfigurationInvalidValues verifies that invalid timeout values fall back to defaults
func TestTimeoutConfigurationInvalidValues(t *testing.T) {
	t.Setenv("GITHUB_TIMEOUT", "soon")
	t.Setenv("DB_INIT_TIMEOUT", "30")

	cfg := Load()

	assert.Equal(t, 15*time.Second, cfg.GitHubTimeout)
	assert.Equal(t, 30*time.Second, cfg.DBInitTimeout)
}
