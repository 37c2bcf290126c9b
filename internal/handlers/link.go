package handlers

import (
	"net/http"

	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/middleware"
	"github.com/Giuseph66/neurelix-nexus/internal/services"

	"github.com/gin-gonic/gin"
)

// LinkHandler serves tarefa <-> git links and key detection.
type LinkHandler struct {
	links *services.LinkService
	log   *logger.Logger
}

func NewLinkHandler(links *services.LinkService, log *logger.Logger) *LinkHandler {
	return &LinkHandler{links: links, log: log}
}

type detectRequest struct {
	Text string `json:"text"`
}

// Detect handles POST /projects/:projectID/git/autolink/detect
func (h *LinkHandler) Detect(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	res, err := h.links.Detect(c, c.Param("projectID"), middleware.UserID(c), req.Text)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// List handles GET /projects/:projectID/tarefas/:tarefaID/git-links
func (h *LinkHandler) List(c *gin.Context) {
	links, err := h.links.ListLinks(c, c.Param("projectID"), c.Param("tarefaID"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// Create handles POST /projects/:projectID/tarefas/:tarefaID/git-links.
// Re-posting an existing link answers 200 with the stored row.
func (h *LinkHandler) Create(c *gin.Context) {
	var in services.ManualLinkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	link, created, err := h.links.CreateManualLink(
		c, c.Param("projectID"), c.Param("tarefaID"), middleware.UserID(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, link)
}

// Delete handles DELETE /projects/:projectID/tarefas/:tarefaID/git-links/:linkID
func (h *LinkHandler) Delete(c *gin.Context) {
	err := h.links.DeleteLink(
		c, c.Param("projectID"), c.Param("tarefaID"), c.Param("linkID"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
