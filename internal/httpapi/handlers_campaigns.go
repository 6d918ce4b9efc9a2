package httpapi

import (
	"callcenter-api/internal/campaigns"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListCampaigns(c *gin.Context) {
	var q struct {
		AgentID int64 `form:"agent_id"`
	}
	if !bindQuery(c, &q) {
		return
	}
	out, err := h.Campaigns.List(c.Request.Context(), q.AgentID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h Handlers) CreateCampaign(c *gin.Context) {
	var req campaigns.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.Campaigns.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Campaign created", d)
}

func (h Handlers) GetCampaign(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	d, err := h.Campaigns.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, d)
}

type campaignStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft active completed"`
}

func (h Handlers) UpdateCampaignStatus(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	var req campaignStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.Campaigns.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Campaign status updated", out)
}

type assignAgentsRequest struct {
	AgentIDs []int64 `json:"agent_ids" binding:"required,min=1"`
}

func (h Handlers) AssignCampaignAgents(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	var req assignAgentsRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.Campaigns.AssignAgents(c.Request.Context(), id, req.AgentIDs)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Agents assigned", d)
}

func (h Handlers) CampaignStats(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	out, err := h.Reports.CampaignStats(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h Handlers) RecomputeCampaign(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	called, err := h.Progress.Recompute(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, campaigns.CallLogged{CampaignID: id, Called: called})
}
