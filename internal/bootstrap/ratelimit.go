package bootstrap

import (
	"fmt"

	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// rateLimitMiddlewares holds the limiter for each class of route
type rateLimitMiddlewares struct {
	callback gin.HandlerFunc
	webhook  gin.HandlerFunc
	api      gin.HandlerFunc
}

// setupRateLimiting returns pass-through middlewares when rate limiting is disabled
func setupRateLimiting(
	cfg *config.Config,
	redisClient *redis.Client,
	log *logger.Logger,
) (rateLimitMiddlewares, error) {
	if !cfg.EnableRateLimit {
		noOp := func(c *gin.Context) { c.Next() }
		return rateLimitMiddlewares{callback: noOp, webhook: noOp, api: noOp}, nil
	}

	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)
	log.Info("rate limiting enabled", "store", cfg.RateLimitStore)

	create := func(requestsPerMinute int, name string) (gin.HandlerFunc, error) {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         storeType,
			RedisClient:       redisClient,
			Prefix:            "nexus:ratelimit:" + name,
			CleanupInterval:   cfg.RateLimitCleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s rate limiter: %w", name, err)
		}
		return limiter, nil
	}

	var (
		limiters rateLimitMiddlewares
		err      error
	)
	if limiters.callback, err = create(cfg.CallbackRateLimit, "callback"); err != nil {
		return limiters, err
	}
	if limiters.webhook, err = create(cfg.WebhookRateLimit, "webhook"); err != nil {
		return limiters, err
	}
	if limiters.api, err = create(cfg.APIRateLimit, "api"); err != nil {
		return limiters, err
	}
	return limiters, nil
}
