package bootstrap

import (
	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/handlers"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/metrics"
	"github.com/Giuseph66/neurelix-nexus/internal/middleware"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
	"github.com/Giuseph66/neurelix-nexus/internal/token"
	"github.com/Giuseph66/neurelix-nexus/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	log *logger.Logger,
	db *store.Store,
	h handlerSet,
	recorder metrics.Recorder,
	verifier token.Verifier,
	limiters rateLimitMiddlewares,
) *gin.Engine {
	setupGinMode(cfg, log)
	r := gin.New()
	// Handlers pass *gin.Context straight to the services as a context.Context.
	r.ContextWithFallback = true

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(util.IPMiddleware())
	r.Use(middleware.CORS(append([]string{cfg.FrontendURL}, cfg.CORSAllowedOrigins...)...))

	r.GET("/health", handlers.Health(db))
	setupMetricsEndpoint(r, cfg, log)
	setupAPIRoutes(r, h, verifier, limiters, log)

	log.Info("HTTP server configured",
		"addr", cfg.ServerAddr,
		"base_url", cfg.BaseURL,
		"frontend_url", cfg.FrontendURL,
		"token_mode", cfg.TokenProviderMode,
	)
	return r
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config, log *logger.Logger) {
	switch {
	case !cfg.MetricsEnabled:
		log.Info("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Info("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET("/metrics", middleware.MetricsAuthMiddleware(cfg.MetricsToken), gin.WrapH(promhttp.Handler()))
	default:
		log.Info("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

func setupAPIRoutes(
	r *gin.Engine,
	h handlerSet,
	verifier token.Verifier,
	limiters rateLimitMiddlewares,
	log *logger.Logger,
) {
	v1 := r.Group("/api/v1")

	// Browser redirects and GitHub deliveries carry no bearer token.
	v1.GET("/git/oauth/callback", limiters.callback, h.connection.OAuthCallback)
	v1.GET("/git/app/callback", limiters.callback, h.connection.AppCallback)
	v1.POST("/git/webhooks/github", limiters.webhook, h.webhook.Receive)

	project := v1.Group("/projects/:projectID")
	project.Use(middleware.RequireBearer(verifier, log))
	{
		project.GET("/git/connection", h.connection.GetStatus)
		project.DELETE("/git/connection", limiters.api, h.connection.Revoke)
		project.POST("/git/oauth/start", limiters.api, h.connection.StartOAuth)
		project.POST("/git/app/start", limiters.api, h.connection.StartAppInstall)

		project.GET("/git/repositories", h.repository.List)
		project.POST("/git/repositories/sync", limiters.api, h.repository.Sync)
		project.PUT("/git/repositories/:repoID/selection", limiters.api, h.repository.SetSelected)
		project.GET("/git/repositories/:repoID/branches", h.repository.ListBranches)
		project.GET("/git/repositories/:repoID/commits", h.repository.ListCommits)

		project.GET("/git/repositories/:repoID/pulls", h.pullRequest.List)
		project.POST("/git/repositories/:repoID/pulls", limiters.api, h.pullRequest.Create)
		project.POST("/git/repositories/:repoID/pulls/:number/reviews", limiters.api, h.pullRequest.Review)
		project.PUT("/git/repositories/:repoID/pulls/:number/merge", limiters.api, h.pullRequest.Merge)

		project.POST("/git/autolink/detect", h.link.Detect)
		project.GET("/tarefas/:tarefaID/git-links", h.link.List)
		project.POST("/tarefas/:tarefaID/git-links", limiters.api, h.link.Create)
		project.DELETE("/tarefas/:tarefaID/git-links/:linkID", limiters.api, h.link.Delete)

		project.GET("/audit", h.audit.List)
		project.GET("/audit/stats", h.audit.Stats)
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config, log *logger.Logger) {
	mode := ginModeMap[cfg.IsProduction]
	gin.SetMode(mode)
	log.Debug("gin mode selected", "mode", mode)
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}
