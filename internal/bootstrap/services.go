package bootstrap

import (
	"github.com/Giuseph66/neurelix-nexus/internal/auth"
	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/metrics"
	"github.com/Giuseph66/neurelix-nexus/internal/services"
	"github.com/Giuseph66/neurelix-nexus/internal/store"
	"github.com/Giuseph66/neurelix-nexus/internal/util"
)

type serviceSet struct {
	Audit        *services.AuditService
	Permissions  *services.PermissionService
	Links        *services.LinkService
	Connections  *services.ConnectionService
	Repositories *services.RepositoryService
	PullRequests *services.PullRequestService
	Webhooks     *services.WebhookService
}

// initializeServices wires the business services in dependency order
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	factory *github.Factory,
	oauth *auth.OAuthProvider,
	sealer *util.Sealer,
	recorder metrics.Recorder,
	log *logger.Logger,
) serviceSet {
	var s serviceSet
	s.Audit = services.NewAuditService(db, log, cfg.EnableAuditLogging, cfg.AuditLogBufferSize)
	s.Permissions = services.NewPermissionService(db)
	s.Links = services.NewLinkService(db, s.Permissions, s.Audit, recorder, log)
	s.Connections = services.NewConnectionService(
		db, s.Permissions, s.Audit, factory, oauth, sealer, recorder, log)
	s.Repositories = services.NewRepositoryService(
		db, s.Permissions, s.Connections, s.Links, s.Audit, log)
	s.PullRequests = services.NewPullRequestService(
		db, s.Repositories, s.Connections, s.Links, s.Audit, log)
	s.Webhooks = services.NewWebhookService(
		cfg.GitHubWebhookSecret, db, s.Repositories, s.PullRequests, s.Connections, s.Audit, recorder, log)

	if cfg.GitHubWebhookSecret == "" {
		log.Warn("GITHUB_WEBHOOK_SECRET is empty, every webhook delivery will be rejected")
	}
	return s
}
