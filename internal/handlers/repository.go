package handlers

import (
	"net/http"
	"strconv"

	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/middleware"
	"github.com/Giuseph66/neurelix-nexus/internal/services"

	"github.com/gin-gonic/gin"
)

// RepositoryHandler serves the repository, branch and commit mirrors.
type RepositoryHandler struct {
	repos *services.RepositoryService
	log   *logger.Logger
}

func NewRepositoryHandler(repos *services.RepositoryService, log *logger.Logger) *RepositoryHandler {
	return &RepositoryHandler{repos: repos, log: log}
}

// List handles GET /projects/:projectID/git/repositories. With ?live=true
// the list is fetched from GitHub instead of the mirror.
func (h *RepositoryHandler) List(c *gin.Context) {
	live := c.Query("live") == queryValueTrue
	repos, err := h.repos.ListRepositories(c, c.Param("projectID"), middleware.UserID(c), live)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"repositories": repos})
}

// Sync handles POST /projects/:projectID/git/repositories/sync
func (h *RepositoryHandler) Sync(c *gin.Context) {
	res, err := h.repos.SyncRepositories(c, c.Param("projectID"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type selectionRequest struct {
	Selected *bool `json:"selected"`
}

// SetSelected handles PUT /projects/:projectID/git/repositories/:repoID/selection
func (h *RepositoryHandler) SetSelected(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Selected == nil {
		badRequest(c, "selected is required")
		return
	}

	repo, err := h.repos.SetSelected(
		c, c.Param("projectID"), middleware.UserID(c), c.Param("repoID"), *req.Selected)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, repo)
}

// ListBranches handles GET .../repositories/:repoID/branches
func (h *RepositoryHandler) ListBranches(c *gin.Context) {
	branches, err := h.repos.ListBranches(c, c.Param("projectID"), middleware.UserID(c), c.Param("repoID"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branches": branches})
}

// ListCommits handles GET .../repositories/:repoID/commits?branch=&limit=
func (h *RepositoryHandler) ListCommits(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	commits, err := h.repos.ListCommits(
		c, c.Param("projectID"), middleware.UserID(c), c.Param("repoID"), c.Query("branch"), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commits": commits})
}
