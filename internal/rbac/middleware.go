package rbac

import (
	"net/http"
	"strconv"

	"callcenter-api/internal/auth"

	"github.com/gin-gonic/gin"
)

func deny(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// Admins pass every check.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil {
			deny(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if IsAdmin(role) {
			c.Next()
			return
		}
		if _, ok := allowedSet[role]; !ok {
			deny(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}

// RequireAdmin is RequireAnyRole with no extra roles.
func RequireAdmin() gin.HandlerFunc { return RequireAnyRole() }

// RequireSelfOrAdmin lets an admin through, or a caller whose user id equals
// the numeric path parameter param.
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.IdentityFrom(c.Request.Context())
		if err != nil {
			deny(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if IsAdmin(id.Role) {
			c.Next()
			return
		}
		target, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil || target != id.UserID {
			deny(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}
