package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitStoreType selects where counters live.
type RateLimitStoreType string

const (
	// RateLimitStoreMemory keeps counters per process
	RateLimitStoreMemory RateLimitStoreType = "memory"
	// RateLimitStoreRedis shares counters between replicas
	RateLimitStoreRedis RateLimitStoreType = "redis"
)

var errRedisClientRequired = errors.New("redis rate limit store requires a redis client")

// RateLimitConfig configures one limiter instance.
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	StoreType         RateLimitStoreType

	// Prefix separates the counters of different limiters sharing one store.
	Prefix string

	// RedisClient is shared with the rest of the process; the limiter never closes it.
	RedisClient *redis.Client
}

// NewRateLimiter builds a per-client-IP limiter. Exhausted clients get a 429
// with the usual {"error": ...} body.
func NewRateLimiter(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", cfg.RequestsPerMinute)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ratelimit"
	}

	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  int64(cfg.RequestsPerMinute),
	}

	var store limiter.Store
	switch cfg.StoreType {
	case RateLimitStoreRedis:
		if cfg.RedisClient == nil {
			return nil, errRedisClientRequired
		}
		var err error
		store, err = limiterRedis.NewStoreWithOptions(cfg.RedisClient, limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: cfg.CleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
	default:
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: cfg.CleanupInterval,
		})
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later",
			})
		}),
	), nil
}
