package bootstrap

import (
	"context"
	"fmt"

	"github.com/Giuseph66/neurelix-nexus/internal/cache"
	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/core"
	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/metrics"
)

const installationTokenKeyPrefix = "nexus:ghinst:"

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config, log *logger.Logger) metrics.Recorder {
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Info("prometheus metrics initialized")
	} else {
		log.Info("metrics disabled, using noop recorder")
	}
	return recorder
}

// initializeInstallationTokenCache picks the backend for GitHub App
// installation tokens. A shared backend lets every replica reuse one token.
func initializeInstallationTokenCache(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
) (core.Cache[github.InstallationToken], error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.CacheInitTimeout)
	defer cancel()

	switch cfg.CacheType {
	case config.CacheTypeRedisAside:
		c, err := cache.NewRueidisAsideCache[github.InstallationToken](
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			installationTokenKeyPrefix,
			cfg.CacheClientTTL,
			cfg.CacheSizePerConn,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis-aside token cache: %w", err)
		}
		if err := c.Health(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("redis-aside token cache unreachable: %w", err)
		}
		log.Info("installation token cache: redis-aside",
			"addr", cfg.RedisAddr, "db", cfg.RedisDB,
			"client_ttl", cfg.CacheClientTTL, "cache_size_per_conn_mb", cfg.CacheSizePerConn)
		return c, nil

	case config.CacheTypeRedis:
		c, err := cache.NewRueidisCache[github.InstallationToken](
			ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, installationTokenKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis token cache: %w", err)
		}
		log.Info("installation token cache: redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return c, nil

	default:
		log.Info("installation token cache: memory (single instance only)")
		return cache.NewMemoryCache[github.InstallationToken](), nil
	}
}
