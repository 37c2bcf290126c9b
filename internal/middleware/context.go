package middleware

import (
	"github.com/Giuseph66/neurelix-nexus/internal/util"

	"github.com/gin-gonic/gin"
)

// UserID returns the id stored by RequireBearer, or "" on public routes.
func UserID(c *gin.Context) string {
	return c.GetString(util.GinKeyUserID)
}

func UserEmail(c *gin.Context) string {
	return c.GetString(util.GinKeyEmail)
}
