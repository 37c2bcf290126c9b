package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/middleware"
	"github.com/Giuseph66/neurelix-nexus/internal/services"

	"github.com/gin-gonic/gin"
)

// ConnectionHandler serves the connection status endpoints and both
// provider callbacks.
type ConnectionHandler struct {
	conns       *services.ConnectionService
	frontendURL string
	log         *logger.Logger
}

func NewConnectionHandler(
	conns *services.ConnectionService,
	frontendURL string,
	log *logger.Logger,
) *ConnectionHandler {
	return &ConnectionHandler{
		conns:       conns,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

// GetStatus handles GET /projects/:projectID/git/connection
func (h *ConnectionHandler) GetStatus(c *gin.Context) {
	status, err := h.conns.GetStatus(c, c.Param("projectID"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Revoke handles DELETE /projects/:projectID/git/connection
func (h *ConnectionHandler) Revoke(c *gin.Context) {
	conn, err := h.conns.Revoke(c, c.Param("projectID"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connection": conn})
}

// StartOAuth handles POST /projects/:projectID/git/oauth/start
func (h *ConnectionHandler) StartOAuth(c *gin.Context) {
	authorizeURL, err := h.conns.StartOAuth(c, c.Param("projectID"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorize_url": authorizeURL})
}

// StartAppInstall handles POST /projects/:projectID/git/app/start
func (h *ConnectionHandler) StartAppInstall(c *gin.Context) {
	installURL, err := h.conns.StartAppInstall(c, c.Param("projectID"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"install_url": installURL})
}

// OAuthCallback handles GitHub's redirect after the user authorizes the
// OAuth App. It always answers with a redirect to the frontend.
func (h *ConnectionHandler) OAuthCallback(c *gin.Context) {
	res, err := h.conns.CompleteOAuth(c, c.Query("state"), c.Query("code"), c.Query("error"))
	h.redirect(c, res, err)
}

// AppCallback handles GitHub's redirect after an App installation.
func (h *ConnectionHandler) AppCallback(c *gin.Context) {
	res, err := h.conns.CompleteAppInstall(
		c, c.Query("state"), c.Query("installation_id"), c.Query("setup_action"))
	h.redirect(c, res, err)
}

func (h *ConnectionHandler) redirect(c *gin.Context, res *services.CallbackResult, err error) {
	projectID := ""
	if res != nil {
		projectID = res.ProjectID
	}

	if projectID == "" {
		q := url.Values{"git": {"error"}, "reason": {callbackReason(services.ErrInvalidState)}}
		c.Redirect(http.StatusFound, h.frontendURL+"/integrations/git?"+q.Encode())
		return
	}

	q := url.Values{"git": {"connected"}}
	if err != nil {
		q = url.Values{"git": {"error"}, "reason": {callbackReason(err)}}
	}
	target := h.frontendURL + "/projects/" + url.PathEscape(projectID) + "/settings/integrations?" + q.Encode()
	c.Redirect(http.StatusFound, target)
}

// callbackReason turns a handshake failure into the short, non-sensitive
// reason shown by the frontend.
func callbackReason(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidState):
		return "invalid or expired state"
	case errors.Is(err, services.ErrAuthorizationDenied):
		return "authorization denied"
	case errors.Is(err, services.ErrTokenExchange):
		return "token exchange failed"
	case errors.Is(err, services.ErrAccountLookup):
		return "account lookup failed"
	case errors.Is(err, services.ErrInvalidInstallation):
		return "invalid installation"
	case errors.Is(err, services.ErrInstallationPending):
		return "installation pending approval"
	case errors.Is(err, services.ErrFlowDisabled):
		return "integration not configured"
	case errors.Is(err, services.ErrPersistConnection):
		return "could not save connection"
	default:
		return "unexpected error"
	}
}
