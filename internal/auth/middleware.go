package auth

import (
	"net/http"
	"strings"
	"time"

	"callcenter-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	tokenQueryParam     = "token"
)

// RequireAccessToken verifies an access token and injects identity into request context.
// It does not perform RBAC checks; those belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return requireAccess(m, false)
}

// RequireAccessTokenOrQuery also accepts ?token=, for websocket upgrades
// where browsers cannot set headers.
func RequireAccessTokenOrQuery(m *Manager) gin.HandlerFunc {
	return requireAccess(m, true)
}

func requireAccess(m *Manager, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" && allowQuery {
			tok = strings.TrimSpace(c.Query(tokenQueryParam))
		}
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Missing bearer token"})
			return
		}

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token"})
			return
		}

		id := Identity{UserID: claims.UserID, Role: claims.Role}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Set("user_id", id.UserID)
		c.Set("role", id.Role)
		logger.Enrich(c, "user_id", id.UserID, "role", id.Role)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
	if !strings.HasPrefix(raw, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
}
