package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/middleware"
	"github.com/Giuseph66/neurelix-nexus/internal/models"
	"github.com/Giuseph66/neurelix-nexus/internal/services"
	"github.com/Giuseph66/neurelix-nexus/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	// queryValueTrue represents the string "true" used in query parameters
	queryValueTrue = "true"
)

// AuditHandler exposes a project's audit trail to its owners and admins.
type AuditHandler struct {
	audit *services.AuditService
	perms *services.PermissionService
	log   *logger.Logger
}

func NewAuditHandler(
	audit *services.AuditService,
	perms *services.PermissionService,
	log *logger.Logger,
) *AuditHandler {
	return &AuditHandler{audit: audit, perms: perms, log: log}
}

// List handles GET /projects/:projectID/audit
func (h *AuditHandler) List(c *gin.Context) {
	projectID := c.Param("projectID")
	if err := h.perms.Require(c, projectID, middleware.UserID(c), services.CapViewAudit); err != nil {
		respondError(c, h.log, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	params := store.NewPaginationParams(page, pageSize, c.Query("search"))

	// The project always comes from the path, never from the query
	filters := store.AuditLogFilters{
		ProjectID:    projectID,
		EventType:    models.EventType(c.Query("event_type")),
		ActorUserID:  c.Query("actor_user_id"),
		ResourceType: models.ResourceType(c.Query("resource_type")),
		ResourceID:   c.Query("resource_id"),
		Severity:     models.EventSeverity(c.Query("severity")),
		Search:       c.Query("search"),
	}
	if successStr := c.Query("success"); successStr != "" {
		success := successStr == queryValueTrue
		filters.Success = &success
	}
	if startTimeStr := c.Query("start_time"); startTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			filters.StartTime = t
		}
	}
	if endTimeStr := c.Query("end_time"); endTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			filters.EndTime = t
		}
	}

	logs, pagination, err := h.audit.GetAuditLogs(c, params, filters)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": logs,
		"pagination": gin.H{
			"page":        pagination.CurrentPage,
			"page_size":   pagination.PageSize,
			"total":       pagination.Total,
			"total_pages": pagination.TotalPages,
			"has_next":    pagination.HasNext,
			"has_prev":    pagination.HasPrev,
		},
	})
}

// Stats handles GET /projects/:projectID/audit/stats?since=
func (h *AuditHandler) Stats(c *gin.Context) {
	projectID := c.Param("projectID")
	if err := h.perms.Require(c, projectID, middleware.UserID(c), services.CapViewAudit); err != nil {
		respondError(c, h.log, err)
		return
	}

	end := time.Now()
	start := end.Add(-30 * 24 * time.Hour)
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			badRequest(c, "since must be an RFC3339 timestamp")
			return
		}
		start = t
	}

	stats, err := h.audit.GetAuditLogStats(c, projectID, start, end)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
