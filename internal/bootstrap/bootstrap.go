package bootstrap

import (
	"context"
	"net/http"

	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/core"
	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/metrics"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
	"github.com/Giuseph66/neurelix-nexus/internal/token"
	"github.com/Giuseph66/neurelix-nexus/internal/util"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config
	Log    *logger.Logger

	// Core infrastructure
	DB              *store.Store
	MetricsRecorder metrics.Recorder
	RedisClient     *redis.Client
	TokenCache      core.Cache[github.InstallationToken]
	Sealer          *util.Sealer

	// Business layer
	Services serviceSet
	Verifier token.Verifier

	// HTTP
	Router *gin.Engine
	Server *http.Server
}

// Run initializes every component and serves until a shutdown signal arrives.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	app := &Application{Config: cfg, Log: log}

	// Phase 1: Validate configuration
	if err := validateConfiguration(cfg); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		app.closeInfrastructure()
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		app.closeInfrastructure()
		return err
	}

	// Phase 4: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		app.closeInfrastructure()
		return err
	}

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()
	return nil
}

// initializeInfrastructure sets up database, metrics, Redis and the token cache
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	app.DB, err = initializeDatabase(ctx, app.Config)
	if err != nil {
		return err
	}

	app.MetricsRecorder = initializeMetrics(app.Config, app.Log)

	app.RedisClient, err = initializeRedisClient(ctx, app.Config, app.Log)
	if err != nil {
		return err
	}

	app.TokenCache, err = initializeInstallationTokenCache(ctx, app.Config, app.Log)
	if err != nil {
		return err
	}

	app.Sealer, err = util.NewSealer(app.Config.TokenEncryptionKey)
	return err
}

// initializeBusinessLayer builds the GitHub clients and every service
func (app *Application) initializeBusinessLayer() error {
	httpClient, err := createProviderHTTPClient(app.Config, app.Log)
	if err != nil {
		return err
	}

	factory, err := initializeGitHubFactory(
		app.Config, httpClient, app.Sealer, app.TokenCache, app.MetricsRecorder, app.Log)
	if err != nil {
		return err
	}
	oauth := initializeOAuthProvider(app.Config, httpClient, app.Log)

	app.Services = initializeServices(
		app.Config, app.DB, factory, oauth, app.Sealer, app.MetricsRecorder, app.Log)
	return nil
}

// initializeHTTPLayer sets up the verifier, handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	var err error
	app.Verifier, err = initializeTokenVerifier(app.Config, app.Log)
	if err != nil {
		return err
	}

	limiters, err := setupRateLimiting(app.Config, app.RedisClient, app.Log)
	if err != nil {
		return err
	}

	h := initializeHandlers(app.Config, app.Services, app.Log)
	app.Router = setupRouter(app.Config, app.Log, app.DB, h, app.MetricsRecorder, app.Verifier, limiters)
	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// closeInfrastructure releases whatever was opened before a failed start.
func (app *Application) closeInfrastructure() {
	if app.TokenCache != nil {
		_ = app.TokenCache.Close()
	}
	if app.RedisClient != nil {
		_ = app.RedisClient.Close()
	}
	if app.DB != nil {
		_ = app.DB.Close()
	}
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server, app.Log)
	addServerShutdownJob(m, app.Config, app.Server, app.Log)
	addStatePurgeJob(m, app.Config, app.Services.Connections, app.Log)
	addAuditLogCleanupJob(m, app.Config, app.Services.Audit, app.Log)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.Log)
	addAuditServiceShutdownJob(m, app.Config, app.Services.Audit, app.Log)
	addCacheShutdownJob(m, app.TokenCache, app.Log)
	addRedisClientShutdownJob(m, app.RedisClient, app.Log)
	addDatabaseShutdownJob(m, app.DB, app.Log)

	<-m.Done()
}
