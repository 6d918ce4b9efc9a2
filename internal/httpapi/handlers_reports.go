package httpapi

import (
	"callcenter-api/internal/apperr"
	"callcenter-api/internal/calls"
	"callcenter-api/internal/reporting"

	"github.com/gin-gonic/gin"
)

func (h Handlers) LogCallStat(c *gin.Context) {
	var req calls.LogInput
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.Calls.LogCall(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Call logged", out)
}

func scopeOf(c *gin.Context) (reporting.Scope, bool) {
	s, good := reporting.ParseScope(c.Query("scope"))
	if !good {
		fail(c, apperr.Validation("scope must be today or all"))
	}
	return s, good
}

func (h Handlers) CallSummary(c *gin.Context) {
	scope, good := scopeOf(c)
	if !good {
		return
	}
	out, err := h.Reports.CallSummary(c.Request.Context(), scope)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h Handlers) DashboardStats(c *gin.Context) {
	out, err := h.Reports.DashboardStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

// DashboardAgents is today's summary plus the per-agent rollup for today.
func (h Handlers) DashboardAgents(c *gin.Context) {
	out, err := h.Reports.CallSummary(c.Request.Context(), reporting.ScopeToday)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h Handlers) LeadCounters(c *gin.Context) {
	out, err := h.Reports.AgentLeadCounters(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h Handlers) AgentPerformance(c *gin.Context) {
	agentID, good := paramID(c, "agentId")
	if !good {
		return
	}
	campaignID, good := queryID(c, "campaign_id")
	if !good {
		return
	}
	out, err := h.Reports.AgentPerformance(c.Request.Context(), agentID, c.Query("date"), campaignID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}
