package handlers

import (
	"net/http"

	"github.com/Giuseph66/neurelix-nexus/internal/github"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/services"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives GitHub webhook deliveries.
type WebhookHandler struct {
	webhooks *services.WebhookService
	maxBytes int64
	log      *logger.Logger
}

func NewWebhookHandler(webhooks *services.WebhookService, maxBytes int64, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, maxBytes: maxBytes, log: log}
}

// Receive handles POST /git/webhooks/github. Deliveries that do not concern
// any mirrored repository are acknowledged with 202.
func (h *WebhookHandler) Receive(c *gin.Context) {
	delivery, err := github.DeliveryFromRequest(c.Request, h.maxBytes)
	if err != nil {
		badRequest(c, "could not read request body")
		return
	}

	result, err := h.webhooks.Handle(c, delivery)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	status := http.StatusOK
	if result == services.WebhookIgnored {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"result": result, "delivery": delivery.ID})
}
