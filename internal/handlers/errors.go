package handlers

import (
	"errors"
	"net/http"

	"github.com/Giuseph66/neurelix-nexus/internal/apierr"
	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/services"

	"github.com/gin-gonic/gin"
)

const msgInternal = "Internal server error"

// statusFor maps a service error to the HTTP status and client message.
// Unknown errors are reported as a generic 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotMember), errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrConnectionNotFound),
		errors.Is(err, services.ErrRepositoryNotFound),
		errors.Is(err, services.ErrPullRequestNotFound),
		errors.Is(err, services.ErrTarefaNotFound),
		errors.Is(err, services.ErrLinkNotFound):
		return http.StatusNotFound, rootMessage(err)
	case errors.Is(err, services.ErrInvalidSignature):
		return http.StatusUnauthorized, services.ErrInvalidSignature.Error()
	case errors.Is(err, services.ErrInvalidPayload):
		return http.StatusBadRequest, services.ErrInvalidPayload.Error()
	case errors.Is(err, services.ErrConnectionInactive),
		errors.Is(err, services.ErrFlowDisabled):
		return http.StatusBadRequest, rootMessage(err)
	case errors.Is(err, services.ErrConnectionLost):
		return http.StatusInternalServerError, services.ErrConnectionLost.Error()
	}

	if apiErr, ok := apierr.As(err); ok {
		if apiErr.Status >= http.StatusInternalServerError || apiErr.Message == "" {
			return apiErr.Status, msgInternal
		}
		return apiErr.Status, apiErr.Message
	}
	return http.StatusInternalServerError, msgInternal
}

// rootMessage returns the message of the sentinel at the bottom of a chain of
// wrapped errors, so callers never see internal detail added on the way up.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func respondError(c *gin.Context, log *logger.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			"method", c.Request.Method, "route", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
