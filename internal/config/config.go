package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token provider mode constants
const (
	TokenProviderModeLocal   = "local"
	TokenProviderModeHTTPAPI = "http_api"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Installation token cache backends
const (
	CacheTypeMemory     = "memory"
	CacheTypeRedis      = "redis"
	CacheTypeRedisAside = "redis-aside"
)

// Log modes
const (
	LogModeDevelopment = "development"
	LogModeProduction  = "production"
)

// DefaultTokenEncryptionKey is only acceptable outside production.
const DefaultTokenEncryptionKey = "dev-token-encryption-key-change-me" //nolint:gosec // G101: development default

type Config struct {
	// Server settings
	ServerAddr         string
	BaseURL            string
	FrontendURL        string // Browser app that receives callback redirects
	Environment        string
	IsProduction       bool
	CORSAllowedOrigins []string

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// Logging
	LogMode string

	// Bearer token verification
	TokenProviderMode string // "local" or "http_api"
	JWTSecret         string
	JWTExpiration     time.Duration // Lifetime of tokens minted by the issue-token command

	// HTTP API token verification
	TokenAPIURL                string
	TokenAPITimeout            time.Duration
	TokenAPIInsecureSkipVerify bool
	TokenAPIAuthMode           string // "none", "simple", or "hmac"
	TokenAPIAuthSecret         string
	TokenAPIAuthHeader         string
	TokenAPIMaxRetries         int
	TokenAPIRetryDelay         time.Duration
	TokenAPIMaxRetryDelay      time.Duration

	// GitHub OAuth App
	GitHubOAuthEnabled     bool
	GitHubClientID         string
	GitHubClientSecret     string
	GitHubOAuthRedirectURL string
	GitHubOAuthScopes      []string
	GitHubWebURL           string // https://github.com or a GitHub Enterprise host

	// GitHub App
	GitHubAppEnabled        bool
	GitHubAppID             int64
	GitHubAppSlug           string
	GitHubAppPrivateKey     string // PEM contents
	GitHubAppPrivateKeyPath string // Alternative to GitHubAppPrivateKey

	// GitHub API access
	GitHubAPIURL             string
	GitHubWebhookSecret      string
	GitHubTimeout            time.Duration
	GitHubInsecureSkipVerify bool
	GitHubMaxAttempts        int
	GitHubRetryDelay         time.Duration

	// Provider credential encryption at rest
	TokenEncryptionKey string

	// Redis (rate limiting and shared caches)
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisConnTimeout time.Duration

	// Installation token cache
	CacheType        string
	CacheClientTTL   time.Duration
	CacheSizePerConn int // MB, redis-aside only
	CacheInitTimeout time.Duration

	// Rate limiting
	EnableRateLimit          bool
	RateLimitStore           string
	RateLimitCleanupInterval time.Duration
	CallbackRateLimit        int // requests per minute per IP
	WebhookRateLimit         int
	APIRateLimit             int

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string
	MetricsGaugeUpdateEnabled  bool
	MetricsGaugeUpdateInterval time.Duration

	// Audit
	EnableAuditLogging bool
	AuditLogRetention  time.Duration
	AuditLogBufferSize int

	// Background jobs
	StateCleanupInterval time.Duration

	// Timeouts
	DBInitTimeout         time.Duration
	ServerShutdownTimeout time.Duration
	AuditShutdownTimeout  time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "nexus.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	environment := getEnv("ENVIRONMENT", "development")
	isProduction := environment == "production"
	defaultLogMode := LogModeDevelopment
	if isProduction {
		defaultLogMode = LogModeProduction
	}

	return &Config{
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:        strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		Environment:        environment,
		IsProduction:       isProduction,
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", nil),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		LogMode: getEnv("LOG_MODE", defaultLogMode),

		TokenProviderMode: getEnv("TOKEN_PROVIDER_MODE", TokenProviderModeLocal),
		JWTSecret:         getEnv("JWT_SECRET", "your-256-bit-secret-change-in-production"),
		JWTExpiration:     getEnvDuration("JWT_EXPIRATION", time.Hour),

		TokenAPIURL:                getEnv("TOKEN_API_URL", ""),
		TokenAPITimeout:            getEnvDuration("TOKEN_API_TIMEOUT", 10*time.Second),
		TokenAPIInsecureSkipVerify: getEnvBool("TOKEN_API_INSECURE_SKIP_VERIFY", false),
		TokenAPIAuthMode:           getEnv("TOKEN_API_AUTH_MODE", "none"),
		TokenAPIAuthSecret:         getEnv("TOKEN_API_AUTH_SECRET", ""),
		TokenAPIAuthHeader:         getEnv("TOKEN_API_AUTH_HEADER", "X-API-Secret"),
		TokenAPIMaxRetries:         getEnvInt("TOKEN_API_MAX_RETRIES", 3),
		TokenAPIRetryDelay:         getEnvDuration("TOKEN_API_RETRY_DELAY", 1*time.Second),
		TokenAPIMaxRetryDelay:      getEnvDuration("TOKEN_API_MAX_RETRY_DELAY", 10*time.Second),

		GitHubOAuthEnabled:     getEnvBool("GITHUB_OAUTH_ENABLED", true),
		GitHubClientID:         getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret:     getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubOAuthRedirectURL: getEnv("GITHUB_REDIRECT_URL", ""),
		GitHubOAuthScopes:      getEnvSlice("GITHUB_SCOPES", []string{"repo", "read:user", "read:org"}),
		GitHubWebURL:           strings.TrimRight(getEnv("GITHUB_WEB_URL", "https://github.com"), "/"),

		GitHubAppEnabled:        getEnvBool("GITHUB_APP_ENABLED", false),
		GitHubAppID:             getEnvInt64("GITHUB_APP_ID", 0),
		GitHubAppSlug:           getEnv("GITHUB_APP_SLUG", ""),
		GitHubAppPrivateKey:     getEnv("GITHUB_APP_PRIVATE_KEY", ""),
		GitHubAppPrivateKeyPath: getEnv("GITHUB_APP_PRIVATE_KEY_PATH", ""),

		GitHubAPIURL:             getEnv("GITHUB_API_URL", "https://api.github.com/"),
		GitHubWebhookSecret:      getEnv("GITHUB_WEBHOOK_SECRET", ""),
		GitHubTimeout:            getEnvDuration("GITHUB_TIMEOUT", 15*time.Second),
		GitHubInsecureSkipVerify: getEnvBool("GITHUB_INSECURE_SKIP_VERIFY", false),
		GitHubMaxAttempts:        getEnvInt("GITHUB_MAX_ATTEMPTS", 3),
		GitHubRetryDelay:         getEnvDuration("GITHUB_RETRY_DELAY", 1*time.Second),

		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", DefaultTokenEncryptionKey),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisConnTimeout: getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),

		CacheType:        getEnv("CACHE_TYPE", CacheTypeMemory),
		CacheClientTTL:   getEnvDuration("CACHE_CLIENT_TTL", 30*time.Second),
		CacheSizePerConn: getEnvInt("CACHE_SIZE_PER_CONN", 32),
		CacheInitTimeout: getEnvDuration("CACHE_INIT_TIMEOUT", 5*time.Second),

		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		CallbackRateLimit:        getEnvInt("CALLBACK_RATE_LIMIT", 20),
		WebhookRateLimit:         getEnvInt("WEBHOOK_RATE_LIMIT", 300),
		APIRateLimit:             getEnvInt("API_RATE_LIMIT", 120),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", false),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateEnabled:  getEnvBool("METRICS_GAUGE_UPDATE_ENABLED", true),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 5*time.Minute),

		EnableAuditLogging: getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogRetention:  getEnvDuration("AUDIT_LOG_RETENTION", 90*24*time.Hour),
		AuditLogBufferSize: getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),

		StateCleanupInterval: getEnvDuration("STATE_CLEANUP_INTERVAL", 10*time.Minute),

		DBInitTimeout:         getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),
		ServerShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		AuditShutdownTimeout:  getEnvDuration("AUDIT_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate checks enumerated settings and cross-field requirements.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER value: %q", c.DatabaseDriver)
	}

	switch c.RateLimitStore {
	case RateLimitStoreMemory, RateLimitStoreRedis:
	default:
		return fmt.Errorf("invalid RATE_LIMIT_STORE value: %q", c.RateLimitStore)
	}
	if c.EnableRateLimit && c.RateLimitStore == RateLimitStoreRedis && c.RedisAddr == "" {
		return errors.New(`RATE_LIMIT_STORE="redis" requires REDIS_ADDR`)
	}

	switch c.CacheType {
	case CacheTypeMemory:
	case CacheTypeRedis, CacheTypeRedisAside:
		if c.RedisAddr == "" {
			return fmt.Errorf("CACHE_TYPE=%q requires REDIS_ADDR", c.CacheType)
		}
	default:
		return fmt.Errorf("invalid CACHE_TYPE value: %q", c.CacheType)
	}

	switch c.TokenProviderMode {
	case TokenProviderModeLocal:
	case TokenProviderModeHTTPAPI:
		if c.TokenAPIURL == "" {
			return errors.New("TOKEN_API_URL is required when TOKEN_PROVIDER_MODE=http_api")
		}
	default:
		return fmt.Errorf("invalid TOKEN_PROVIDER_MODE value: %q", c.TokenProviderMode)
	}

	if c.GitHubMaxAttempts < 1 {
		return fmt.Errorf("GITHUB_MAX_ATTEMPTS must be at least 1, got %d", c.GitHubMaxAttempts)
	}

	if c.GitHubAppEnabled {
		if c.GitHubAppID <= 0 {
			return errors.New("GITHUB_APP_ID is required when GITHUB_APP_ENABLED=true")
		}
		if c.GitHubAppSlug == "" {
			return errors.New("GITHUB_APP_SLUG is required when GITHUB_APP_ENABLED=true")
		}
		if c.GitHubAppPrivateKey == "" && c.GitHubAppPrivateKeyPath == "" {
			return errors.New(
				"GITHUB_APP_PRIVATE_KEY or GITHUB_APP_PRIVATE_KEY_PATH is required when GITHUB_APP_ENABLED=true",
			)
		}
	}

	if c.IsProduction && c.TokenEncryptionKey == DefaultTokenEncryptionKey {
		return errors.New("TOKEN_ENCRYPTION_KEY must be set in production")
	}

	return nil
}

// AppPrivateKeyPEM returns the GitHub App private key, reading it from disk
// when only a path is configured.
func (c *Config) AppPrivateKeyPEM() ([]byte, error) {
	if c.GitHubAppPrivateKey != "" {
		// Single-line env values usually carry escaped newlines
		return []byte(strings.ReplaceAll(c.GitHubAppPrivateKey, `\n`, "\n")), nil
	}
	if c.GitHubAppPrivateKeyPath == "" {
		return nil, errors.New("no GitHub App private key configured")
	}
	return os.ReadFile(c.GitHubAppPrivateKeyPath)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if parts := splitAndTrim(value, ","); len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
