package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Giuseph66/neurelix-nexus/internal/logger"
	"github.com/Giuseph66/neurelix-nexus/internal/token"
	"github.com/Giuseph66/neurelix-nexus/internal/util"

	"github.com/gin-gonic/gin"
)

// RequireBearer rejects requests without a valid bearer token and stores the
// verified identity on the Gin context.
func RequireBearer(verifier token.Verifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", `Bearer realm="api"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			msg := "Unauthorized"
			switch {
			case errors.Is(err, token.ErrExpiredToken):
				msg = "Token expired"
			case errors.Is(err, token.ErrHTTPTokenConnection),
				errors.Is(err, token.ErrHTTPTokenInvalidResp):
				log.Error("token verification unavailable",
					"verifier", verifier.Name(), "error", err)
			default:
				log.Debug("bearer token rejected", "verifier", verifier.Name(), "error", err)
			}
			c.Header("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(util.GinKeyUserID, identity.UserID)
		c.Set(util.GinKeyEmail, identity.Email)
		c.Next()
	}
}

// bearerToken extracts the credential from an Authorization header value.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, token.TokenTypeBearer) {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
