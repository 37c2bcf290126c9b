package bootstrap

import (
	"github.com/Giuseph66/neurelix-nexus/internal/config"
	"github.com/Giuseph66/neurelix-nexus/internal/handlers"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
)

// maxWebhookBytes matches GitHub's own cap on delivery payloads.
const maxWebhookBytes = 25 << 20

type handlerSet struct {
	connection  *handlers.ConnectionHandler
	repository  *handlers.RepositoryHandler
	pullRequest *handlers.PullRequestHandler
	link        *handlers.LinkHandler
	webhook     *handlers.WebhookHandler
	audit       *handlers.AuditHandler
}

func initializeHandlers(cfg *config.Config, s serviceSet, log *logger.Logger) handlerSet {
	return handlerSet{
		connection:  handlers.NewConnectionHandler(s.Connections, cfg.FrontendURL, log),
		repository:  handlers.NewRepositoryHandler(s.Repositories, log),
		pullRequest: handlers.NewPullRequestHandler(s.PullRequests, log),
		link:        handlers.NewLinkHandler(s.Links, log),
		webhook:     handlers.NewWebhookHandler(s.Webhooks, maxWebhookBytes, log),
		audit:       handlers.NewAuditHandler(s.Audit, s.Permissions, log),
	}
}
