package util

import (
	"context"

	"github.com/gin-gonic/gin"
)

type contextKey string

const (
	ipContextKey     contextKey = "client_ip"
	userIDContextKey contextKey = "user_id"

	// Gin keys set by the bearer middleware
	GinKeyUserID = "user_id"
	GinKeyEmail  = "user_email"
)

// IPMiddleware extracts client IP and stores it in the context
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gin's ClientIP() handles X-Forwarded-For and other headers
		c.Set(string(ipContextKey), c.ClientIP())
		c.Next()
	}
}

// SetIPContext returns a copy of ctx carrying ip. An empty ip leaves ctx unchanged.
func SetIPContext(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, ipContextKey, ip)
}

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.ClientIP()
	}
	if ip, ok := ctx.Value(ipContextKey).(string); ok {
		return ip
	}
	return ""
}

func SetUserIDContext(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}

// GetUserIDFromContext returns the authenticated user id, if any.
func GetUserIDFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.GetString(GinKeyUserID)
	}
	if id, ok := ctx.Value(userIDContextKey).(string); ok {
		return id
	}
	return ""
}
