package handlers

import (
	"net/http"
	"strconv"

	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/middleware"
	"github.com/Giuseph66/neurelix-nexus/internal/services"

	"github.com/gin-gonic/gin"
)

// PullRequestHandler proxies pull request operations for a mirrored repository.
type PullRequestHandler struct {
	pulls *services.PullRequestService
	log   *logger.Logger
}

func NewPullRequestHandler(pulls *services.PullRequestService, log *logger.Logger) *PullRequestHandler {
	return &PullRequestHandler{pulls: pulls, log: log}
}

// List handles GET .../repositories/:repoID/pulls?state=open|closed|all
func (h *PullRequestHandler) List(c *gin.Context) {
	prs, err := h.pulls.List(
		c, c.Param("projectID"), middleware.UserID(c), c.Param("repoID"), c.Query("state"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pull_requests": prs})
}

// Create handles POST .../repositories/:repoID/pulls
func (h *PullRequestHandler) Create(c *gin.Context) {
	var in services.CreatePullRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	pr, err := h.pulls.Create(c, c.Param("projectID"), middleware.UserID(c), c.Param("repoID"), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, pr)
}

// Review handles POST .../pulls/:number/reviews
func (h *PullRequestHandler) Review(c *gin.Context) {
	number, ok := prNumber(c)
	if !ok {
		return
	}
	var in services.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	review, err := h.pulls.Review(
		c, c.Param("projectID"), middleware.UserID(c), c.Param("repoID"), number, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// Merge handles PUT .../pulls/:number/merge. An empty body merges with the
// default method.
func (h *PullRequestHandler) Merge(c *gin.Context) {
	number, ok := prNumber(c)
	if !ok {
		return
	}
	var in services.MergeInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	res, err := h.pulls.Merge(
		c, c.Param("projectID"), middleware.UserID(c), c.Param("repoID"), number, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func prNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n <= 0 {
		badRequest(c, "pull request number must be a positive integer")
		return 0, false
	}
	return n, true
}
