package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/core"
	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/metrics"
	"github.com/Giuseph66/neurelix-nexus/internal/services"
	"github.com/Giuseph66/neurelix-nexus/internal/store"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
)

const auditCleanupInterval = 24 * time.Hour

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server, log *logger.Logger) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			log.Info("server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("failed to start server", "error", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, cfg *config.Config, srv *http.Server, log *logger.Logger) {
	m.AddShutdownJob(func() error {
		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", "error", err)
			return err
		}
		log.Info("server exited")
		return nil
	})
}

// runPeriodically calls fn once at start and then on every tick until ctx ends.
func runPeriodically(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(ctx)
	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// addStatePurgeJob removes handshake states that expired without a callback
func addStatePurgeJob(
	m *graceful.Manager,
	cfg *config.Config,
	conns *services.ConnectionService,
	log *logger.Logger,
) {
	if cfg.StateCleanupInterval <= 0 {
		return
	}
	m.AddRunningJob(func(ctx context.Context) error {
		runPeriodically(ctx, cfg.StateCleanupInterval, func(ctx context.Context) {
			purged, err := conns.PurgeExpiredStates(ctx)
			switch {
			case err != nil && ctx.Err() == nil:
				log.Error("failed to purge expired connection states", "error", err)
			case purged > 0:
				log.Info("purged expired connection states", "count", purged)
			}
		})
		return nil
	})
}

// addAuditLogCleanupJob adds periodic audit log cleanup job
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	audit *services.AuditService,
	log *logger.Logger,
) {
	if !cfg.EnableAuditLogging || cfg.AuditLogRetention <= 0 {
		return
	}
	m.AddRunningJob(func(ctx context.Context) error {
		runPeriodically(ctx, auditCleanupInterval, func(ctx context.Context) {
			deleted, err := audit.CleanupOldLogs(ctx, cfg.AuditLogRetention)
			switch {
			case err != nil && ctx.Err() == nil:
				log.Error("failed to cleanup old audit logs", "error", err)
			case deleted > 0:
				log.Info("cleaned up old audit logs", "count", deleted)
			}
		})
		return nil
	})
}

// addMetricsGaugeUpdateJob adds periodic metrics gauge update job
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	recorder metrics.Recorder,
	log *logger.Logger,
) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled {
		return
	}
	updater := metrics.NewGaugeUpdater(db, recorder)
	errLog := newErrorLogger(log)

	m.AddRunningJob(func(ctx context.Context) error {
		runPeriodically(ctx, cfg.MetricsGaugeUpdateInterval, func(ctx context.Context) {
			if err := updater.Update(ctx); err != nil && ctx.Err() == nil {
				recorder.RecordDatabaseQueryError("count_git_connections")
				errLog.logIfNeeded("count_git_connections", err)
			}
		})
		return nil
	})
}

// addAuditServiceShutdownJob flushes buffered audit entries
func addAuditServiceShutdownJob(
	m *graceful.Manager,
	cfg *config.Config,
	audit *services.AuditService,
	log *logger.Logger,
) {
	m.AddShutdownJob(func() error {
		log.Info("shutting down audit service")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AuditShutdownTimeout)
		defer cancel()

		if err := audit.Shutdown(ctx); err != nil {
			log.Error("error shutting down audit service", "error", err)
			return err
		}
		return nil
	})
}

// addCacheShutdownJob closes the installation token cache
func addCacheShutdownJob(
	m *graceful.Manager,
	tokens core.Cache[github.InstallationToken],
	log *logger.Logger,
) {
	if tokens == nil {
		return
	}
	m.AddShutdownJob(func() error {
		if err := tokens.Close(); err != nil {
			log.Error("error closing installation token cache", "error", err)
			return nil
		}
		log.Info("installation token cache closed")
		return nil
	})
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(m *graceful.Manager, redisClient *redis.Client, log *logger.Logger) {
	if redisClient == nil {
		return
	}
	m.AddShutdownJob(func() error {
		log.Info("closing Redis connection")
		if err := redisClient.Close(); err != nil {
			log.Error("error closing Redis client", "error", err)
			return err
		}
		log.Info("Redis connection closed")
		return nil
	})
}

// addDatabaseShutdownJob closes the database pool
func addDatabaseShutdownJob(m *graceful.Manager, db *store.Store, log *logger.Logger) {
	m.AddShutdownJob(func() error {
		if err := db.Close(); err != nil {
			log.Error("error closing database", "error", err)
			return err
		}
		log.Info("database connection closed")
		return nil
	})
}

// errorLogger logs a failing operation at most once per window.
type errorLogger struct {
	mu              sync.Mutex
	log             *logger.Logger
	lastErrorTimes  map[string]time.Time
	rateLimitWindow time.Duration
}

func newErrorLogger(log *logger.Logger) *errorLogger {
	return &errorLogger{
		log:             log,
		lastErrorTimes:  make(map[string]time.Time),
		rateLimitWindow: 5 * time.Minute,
	}
}

func (e *errorLogger) logIfNeeded(operation string, err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if last, ok := e.lastErrorTimes[operation]; ok && now.Sub(last) < e.rateLimitWindow {
		return false
	}
	e.lastErrorTimes[operation] = now
	e.log.Error("database query failed",
		"operation", operation,
		"error", err,
		"suppressed_for", e.rateLimitWindow.String(),
	)
	return true
}
