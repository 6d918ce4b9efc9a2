package httpapi

import (
	"callcenter-api/internal/apperr"
	"callcenter-api/internal/templates"
	"callcenter-api/internal/users"

	"github.com/gin-gonic/gin"
)

// --- Users ---

func (h Handlers) ListUsers(c *gin.Context) {
	var q users.ListQuery
	if !bindQuery(c, &q) {
		return
	}
	out, err := h.Users.List(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h Handlers) CreateUser(c *gin.Context) {
	var req users.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Users.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "User added successfully", u)
}

func (h Handlers) GetUser(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	u, err := h.Users.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, u)
}

func (h Handlers) UpdateUser(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	var req users.UpdateInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Users.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "User updated", u)
}

func (h Handlers) ListAgents(c *gin.Context) {
	out, err := h.Users.ListAgents(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

type availabilityRequest struct {
	AcceptingCalls *bool `json:"accepting_calls" binding:"required"`
}

func (h Handlers) SetAvailability(c *gin.Context) {
	var req availabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Users.SetAvailability(c.Request.Context(), *req.AcceptingCalls)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, u)
}

// --- Templates ---

func (h Handlers) ListTemplates(c *gin.Context) {
	out, err := h.Templates.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

func (h Handlers) CreateTemplate(c *gin.Context) {
	var req templates.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Templates.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Template created", t)
}

func (h Handlers) GetTemplate(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	t, err := h.Templates.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, t)
}

func (h Handlers) RenderTemplate(c *gin.Context) {
	var req templates.RenderInput
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.Templates.Render(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, out)
}

// --- Live stats ---

func (h Handlers) LiveSnapshot(c *gin.Context) {
	ok(c, h.Live.Current(c.Request.Context()))
}

func (h Handlers) ResetLive(c *gin.Context) {
	snap, err := h.Live.Reset(c.Request.Context())
	if err != nil {
		fail(c, apperr.Persistence("reset live stats", err))
		return
	}
	okMessage(c, "Live stats reset", snap)
}
