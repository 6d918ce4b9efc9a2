package httpapi

import (
	"context"
	"net/http"
	"time"

	"callcenter-api/internal/activities"
	"callcenter-api/internal/apperr"
	"callcenter-api/internal/audit"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/calls"
	"callcenter-api/internal/campaigns"
	"callcenter-api/internal/leads"
	"callcenter-api/internal/livestats"
	"callcenter-api/internal/metrics"
	"callcenter-api/internal/reporting"
	"callcenter-api/internal/templates"
	"callcenter-api/internal/users"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth       *auth.Service
	Users      *users.Service
	Campaigns  *campaigns.Service
	Progress   *campaigns.Progress
	Leads      *leads.Service
	Activities *activities.Service
	Calls      *calls.Service
	Reports    *reporting.Service
	Templates  *templates.Service
	Live       *livestats.Service
	Audit      *audit.Service
	Metrics    *metrics.Metrics

	// Ping checks the database for /healthz.
	Ping func(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

func (h Handlers) Health(c *gin.Context) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	h.Metrics.RecordLoginAttempt(err == nil)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Login successful", res)
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, pair)
}

func (h Handlers) Me(c *gin.Context) {
	u, err := h.Auth.Me(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, u)
}

// --- Audit ---

func (h Handlers) ListAuditEvents(c *gin.Context) {
	var q struct {
		Limit int `form:"limit"`
	}
	if !bindQuery(c, &q) {
		return
	}
	events, err := h.Audit.Recent(c.Request.Context(), q.Limit)
	if err != nil {
		fail(c, apperr.Persistence("recent audit events", err))
		return
	}
	ok(c, events)
}
