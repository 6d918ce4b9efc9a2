package main

import (
	"net/http"

	"callcenter-api/internal/httpapi"
	"callcenter-api/internal/rbac"

	"github.com/gin-gonic/gin"
)

// routeDeps carries the middleware the route table needs besides handlers.
type routeDeps struct {
	Auth        gin.HandlerFunc // bearer token
	AuthOrQuery gin.HandlerFunc // bearer token or ?token=, for websockets
	LoginLimit  gin.HandlerFunc
	Metrics     http.Handler
	LiveWS      http.Handler
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, d routeDeps) {
	// public
	r.GET("/healthz", h.Health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	authGroup := r.Group("/auth")
	{
		login := []gin.HandlerFunc{h.Login}
		if d.LoginLimit != nil {
			login = append([]gin.HandlerFunc{d.LoginLimit}, login...)
		}
		authGroup.POST("/login", login...)
		authGroup.POST("/refresh", h.Refresh)
	}

	if d.LiveWS != nil {
		r.GET("/live/ws", d.AuthOrQuery, gin.WrapH(d.LiveWS))
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(d.Auth)

	admin := rbac.RequireAdmin()
	agentOrAdmin := rbac.RequireAnyRole(rbac.RoleAgent)

	v1.GET("/me", h.Me)
	v1.PUT("/me/availability", h.SetAvailability)

	leads := v1.Group("/leads")
	{
		leads.POST("/batch", admin, h.AssignLeadsBatch)
		leads.POST("", admin, h.CreateLead)
		leads.GET("", h.ListLeads)
		leads.GET("/campaign/:campaignId", h.ListCampaignLeads("campaignId"))
		leads.GET("/:id", h.GetLead)
		leads.PUT("/:id/status", h.UpdateLeadStatus)
		leads.POST("/:id/log_call", agentOrAdmin, h.LogLeadCall)
		leads.GET("/:id/activity", h.ListLeadActivities)
		leads.POST("/:id/activity", h.CreateLeadActivity)
	}

	campaigns := v1.Group("/campaigns")
	{
		campaigns.GET("", h.ListCampaigns)
		campaigns.POST("", admin, h.CreateCampaign)
		campaigns.GET("/:id", h.GetCampaign)
		campaigns.PUT("/:id/status", admin, h.UpdateCampaignStatus)
		campaigns.POST("/:id/agents", admin, h.AssignCampaignAgents)
		campaigns.POST("/:id/recompute", admin, h.RecomputeCampaign)
		campaigns.GET("/:id/stats", h.CampaignStats)
		campaigns.GET("/:id/leads", h.ListCampaignLeads("id"))
		campaigns.POST("/:id/leads/import", admin, h.ImportCampaignLeads)
		campaigns.GET("/:id/leads/export", admin, h.ExportCampaignLeads)
	}

	callStats := v1.Group("/call-stats")
	{
		callStats.POST("", agentOrAdmin, h.LogCallStat)
		callStats.GET("/summary", admin, h.CallSummary)
	}

	dashboard := v1.Group("/dashboard", admin)
	{
		dashboard.GET("/stats", h.DashboardStats)
		dashboard.GET("/agents", h.DashboardAgents)
		dashboard.GET("/lead-counters", h.LeadCounters)
	}

	v1.GET("/agent-performance/:agentId", rbac.RequireSelfOrAdmin("agentId"), h.AgentPerformance)

	users := v1.Group("/users", admin)
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
	}
	v1.GET("/agents", admin, h.ListAgents)

	tpl := v1.Group("/templates")
	{
		tpl.GET("", h.ListTemplates)
		tpl.POST("", h.CreateTemplate)
		tpl.POST("/render", h.RenderTemplate)
		tpl.GET("/:id", h.GetTemplate)
	}

	live := v1.Group("/live")
	{
		live.GET("", h.LiveSnapshot)
		live.POST("/reset", admin, h.ResetLive)
	}

	v1.GET("/audit-events", admin, h.ListAuditEvents)
}
