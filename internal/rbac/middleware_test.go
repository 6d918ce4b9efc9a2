package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"callcenter-api/internal/auth"

	"github.com/gin-gonic/gin"
)

func withIdentity(id auth.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id.UserID != 0 {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		}
		c.Next()
	}
}

func serve(t *testing.T, path, url string, id auth.Identity, mw gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET(path, withIdentity(id), mw, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serve(t, "/x", "/x", auth.Identity{UserID: 1, Role: RoleAdmin}, RequireAnyRole(RoleAgent)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serve(t, "/x", "/x", auth.Identity{UserID: 1, Role: RoleAdmin}, RequireAdmin()); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAdmin_AgentForbidden(t *testing.T) {
	if code := serve(t, "/x", "/x", auth.Identity{UserID: 2, Role: RoleAgent}, RequireAdmin()); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_MissingIdentity(t *testing.T) {
	if code := serve(t, "/x", "/x", auth.Identity{}, RequireAnyRole(RoleAgent)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireSelfOrAdmin(t *testing.T) {
	agent := auth.Identity{UserID: 7, Role: RoleAgent}
	if code := serve(t, "/p/:agentId", "/p/7", agent, RequireSelfOrAdmin("agentId")); code != http.StatusOK {
		t.Fatalf("expected self access, got %d", code)
	}
	if code := serve(t, "/p/:agentId", "/p/8", agent, RequireSelfOrAdmin("agentId")); code != http.StatusForbidden {
		t.Fatalf("expected 403 for other agent, got %d", code)
	}
	admin := auth.Identity{UserID: 1, Role: RoleAdmin}
	if code := serve(t, "/p/:agentId", "/p/8", admin, RequireSelfOrAdmin("agentId")); code != http.StatusOK {
		t.Fatalf("expected admin access, got %d", code)
	}
}
