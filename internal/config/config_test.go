package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabaseDriver:     "sqlite",
		RateLimitStore:     RateLimitStoreMemory,
		CacheType:          CacheTypeMemory,
		TokenProviderMode:  TokenProviderModeLocal,
		GitHubMaxAttempts:  3,
		TokenEncryptionKey: DefaultTokenEncryptionKey,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "valid redis rate limit store",
			mutate: func(c *Config) { c.RateLimitStore = RateLimitStoreRedis; c.RedisAddr = "localhost:6379" },
		},
		{
			name:     "invalid store - typo",
			mutate:   func(c *Config) { c.RateLimitStore = "reddis" },
			errorMsg: `invalid RATE_LIMIT_STORE value: "reddis"`,
		},
		{
			name:     "invalid store - uppercase",
			mutate:   func(c *Config) { c.RateLimitStore = "MEMORY" },
			errorMsg: `invalid RATE_LIMIT_STORE value: "MEMORY"`,
		},
		{
			name: "redis rate limit store without address",
			mutate: func(c *Config) {
				c.EnableRateLimit = true
				c.RateLimitStore = RateLimitStoreRedis
			},
			errorMsg: `RATE_LIMIT_STORE="redis" requires REDIS_ADDR`,
		},
		{
			name:     "redis cache without address",
			mutate:   func(c *Config) { c.CacheType = CacheTypeRedis },
			errorMsg: `CACHE_TYPE="redis" requires REDIS_ADDR`,
		},
		{
			name:     "redis-aside cache without address",
			mutate:   func(c *Config) { c.CacheType = CacheTypeRedisAside },
			errorMsg: `CACHE_TYPE="redis-aside" requires REDIS_ADDR`,
		},
		{
			name:     "invalid cache type",
			mutate:   func(c *Config) { c.CacheType = "memcached" },
			errorMsg: `invalid CACHE_TYPE value: "memcached"`,
		},
		{
			name:     "invalid database driver",
			mutate:   func(c *Config) { c.DatabaseDriver = "mysql" },
			errorMsg: `invalid DATABASE_DRIVER value: "mysql"`,
		},
		{
			name:     "http_api token provider without url",
			mutate:   func(c *Config) { c.TokenProviderMode = TokenProviderModeHTTPAPI },
			errorMsg: "TOKEN_API_URL is required when TOKEN_PROVIDER_MODE=http_api",
		},
		{
			name:     "invalid token provider",
			mutate:   func(c *Config) { c.TokenProviderMode = "ldap" },
			errorMsg: `invalid TOKEN_PROVIDER_MODE value: "ldap"`,
		},
		{
			name:     "zero github attempts",
			mutate:   func(c *Config) { c.GitHubMaxAttempts = 0 },
			errorMsg: "GITHUB_MAX_ATTEMPTS must be at least 1, got 0",
		},
		{
			name:     "github app without id",
			mutate:   func(c *Config) { c.GitHubAppEnabled = true },
			errorMsg: "GITHUB_APP_ID is required when GITHUB_APP_ENABLED=true",
		},
		{
			name: "github app without slug",
			mutate: func(c *Config) {
				c.GitHubAppEnabled = true
				c.GitHubAppID = 42
			},
			errorMsg: "GITHUB_APP_SLUG is required when GITHUB_APP_ENABLED=true",
		},
		{
			name: "github app without key",
			mutate: func(c *Config) {
				c.GitHubAppEnabled = true
				c.GitHubAppID = 42
				c.GitHubAppSlug = "nexus"
			},
			errorMsg: "GITHUB_APP_PRIVATE_KEY or GITHUB_APP_PRIVATE_KEY_PATH is required when GITHUB_APP_ENABLED=true",
		},
		{
			name:     "production with default encryption key",
			mutate:   func(c *Config) { c.IsProduction = true },
			errorMsg: "TOKEN_ENCRYPTION_KEY must be set in production",
		},
		{
			name: "production with custom encryption key",
			mutate: func(c *Config) {
				c.IsProduction = true
				c.TokenEncryptionKey = "a-real-key"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errorMsg, err.Error())
		})
	}
}

func TestLoad_GitHubDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "https://api.github.com/", cfg.GitHubAPIURL)
	assert.Equal(t, "https://github.com", cfg.GitHubWebURL)
	assert.Equal(t, 3, cfg.GitHubMaxAttempts)
	assert.Equal(t, []string{"repo", "read:user", "read:org"}, cfg.GitHubOAuthScopes)
	assert.Equal(t, CacheTypeMemory, cfg.CacheType)
	assert.Equal(t, TokenProviderModeLocal, cfg.TokenProviderMode)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("GITHUB_APP_ID", "12345")
	t.Setenv("GITHUB_SCOPES", " repo , ,read:org ")
	t.Setenv("FRONTEND_URL", "https://app.example.com/")
	t.Setenv("ENVIRONMENT", "production")

	cfg := Load()

	assert.Equal(t, int64(12345), cfg.GitHubAppID)
	assert.Equal(t, []string{"repo", "read:org"}, cfg.GitHubOAuthScopes)
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
	assert.True(t, cfg.IsProduction)
	assert.Equal(t, LogModeProduction, cfg.LogMode)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("GITHUB_MAX_ATTEMPTS", "three")
	t.Setenv("GITHUB_APP_ID", "abc")

	cfg := Load()

	assert.Equal(t, 3, cfg.GitHubMaxAttempts)
	assert.Equal(t, int64(0), cfg.GitHubAppID)
}

func TestAppPrivateKeyPEM(t *testing.T) {
	t.Run("inline key with escaped newlines", func(t *testing.T) {
		cfg := &Config{GitHubAppPrivateKey: `-----BEGIN KEY-----\nabc\n-----END KEY-----`}
		pem, err := cfg.AppPrivateKeyPEM()
		require.NoError(t, err)
		assert.Equal(t, "-----BEGIN KEY-----\nabc\n-----END KEY-----", string(pem))
	})

	t.Run("key from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.pem")
		require.NoError(t, os.WriteFile(path, []byte("file-key"), 0o600))

		cfg := &Config{GitHubAppPrivateKeyPath: path}
		pem, err := cfg.AppPrivateKeyPEM()
		require.NoError(t, err)
		assert.Equal(t, "file-key", string(pem))
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := (&Config{}).AppPrivateKeyPEM()
		assert.Error(t, err)
	})
}
