package httpapi

import (
	"bytes"
	"fmt"
	"net/http"

	"callcenter-api/internal/activities"
	"callcenter-api/internal/apperr"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/leads"
	"callcenter-api/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxImportBytes  = 10 << 20
)

type batchRequest struct {
	CampaignID int64           `json:"campaign_id"`
	Leads      []leads.RawLead `json:"leads"`
}

// AssignLeadsBatch inserts and distributes a batch of leads. The response
// carries count at the top level alongside data.
func (h Handlers) AssignLeadsBatch(c *gin.Context) {
	var req batchRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Leads.AssignBatch(c.Request.Context(), req.CampaignID, req.Leads)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": res.Message, "count": res.Count, "data": res})
}

func (h Handlers) CreateLead(c *gin.Context) {
	var req leads.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	l, err := h.Leads.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Lead created", l)
}

type leadListQuery struct {
	CampaignID int64  `form:"campaign_id"`
	AgentID    int64  `form:"agent_id"`
	Status     string `form:"status"`
}

func (h Handlers) ListLeads(c *gin.Context) {
	var q leadListQuery
	if !bindQuery(c, &q) {
		return
	}
	out, err := h.Leads.List(c.Request.Context(), store.LeadFilter{CampaignID: q.CampaignID, AgentID: q.AgentID, Status: q.Status})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

// ListCampaignLeads serves both /leads/campaign/:campaignId and
// /campaigns/:id/leads.
func (h Handlers) ListCampaignLeads(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, good := paramID(c, param)
		if !good {
			return
		}
		out, err := h.Leads.ListByCampaign(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

func (h Handlers) GetLead(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	l, err := h.Leads.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, l)
}

type leadStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h Handlers) UpdateLeadStatus(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	var req leadStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	l, err := h.Leads.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Lead status updated", l)
}

// LogLeadCall records a call on the lead by the authenticated agent and
// returns the campaign's recounted progress.
func (h Handlers) LogLeadCall(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	agentID, err := auth.UserID(c.Request.Context())
	if err != nil {
		fail(c, apperr.Unauthorized("Not authenticated"))
		return
	}
	res, err := h.Progress.LogLeadCall(c.Request.Context(), id, agentID)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Call logged and campaign progress updated", res)
}

func (h Handlers) ListLeadActivities(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	out, err := h.Activities.LeadWithActivities(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h Handlers) CreateLeadActivity(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	var req activities.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.Activities.Create(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Activity added", a)
}

func (h Handlers) ImportCampaignLeads(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, apperr.Validation("CSV file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, apperr.Validation("CSV file is unreadable"))
		return
	}
	defer f.Close()

	res, err := h.Leads.ImportCSV(c.Request.Context(), id, f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": res.Message, "count": res.Count, "data": res})
}

func (h Handlers) ExportCampaignLeads(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	var buf bytes.Buffer
	if err := h.Leads.ExportXLSX(c.Request.Context(), id, &buf); err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="campaign-%d-leads.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
