package bootstrap

import (
	"context"
	"fmt"

	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"

	"github.com/redis/go-redis/v9"
)

// initializeRedisClient opens the go-redis client shared by the rate limiters.
// Returns nil when rate limiting is off or keeps counters in memory.
// ulule/limiter only speaks go-redis, so the token cache keeps its own rueidis client.
func initializeRedisClient(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
) (*redis.Client, error) {
	if !cfg.EnableRateLimit || cfg.RateLimitStore != config.RateLimitStoreRedis {
		return nil, nil //nolint:nilnil // redis client not needed in this configuration
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.RedisConnTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}

	log.Info("rate limit redis client initialized", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return client, nil
}
