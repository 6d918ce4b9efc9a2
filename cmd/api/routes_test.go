package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"callcenter-api/internal/activities"
	"callcenter-api/internal/audit"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/calls"
	"callcenter-api/internal/campaigns"
	"callcenter-api/internal/config"
	"callcenter-api/internal/httpapi"
	"callcenter-api/internal/leads"
	"callcenter-api/internal/livestats"
	"callcenter-api/internal/reporting"
	"callcenter-api/internal/store"
	"callcenter-api/internal/templates"
	"callcenter-api/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router   *gin.Engine
	st       *store.Memory
	campaign store.Campaign
	admin    store.User
	agent    store.User
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	st := store.NewMemory()

	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)
	admin, err := st.CreateUser(ctx, store.User{Name: "Root", Email: "root@example.com", PasswordHash: hash, Role: store.RoleAdmin})
	require.NoError(t, err)
	agent, err := st.CreateUser(ctx, store.User{Name: "Asha", Email: "asha@example.com", PasswordHash: hash, Role: store.RoleAgent, AcceptingCalls: true})
	require.NoError(t, err)
	c, err := st.CreateCampaign(ctx, store.Campaign{Name: "Spring", Status: store.CampaignActive})
	require.NoError(t, err)
	require.NoError(t, st.AddCampaignAgents(ctx, c.ID, []int64{agent.ID}))

	mgr, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	au := audit.NewService(audit.NewMemoryRepo())
	live := livestats.NewService()
	h := httpapi.Handlers{
		Auth:       auth.NewService(st, mgr, auth.Lockout{}),
		Users:      users.NewService(st, au),
		Campaigns:  campaigns.NewService(st, au),
		Progress:   campaigns.NewProgress(st),
		Leads:      leads.NewService(st, "US", rand.New(rand.NewSource(7))),
		Activities: activities.NewService(st),
		Calls:      calls.NewService(st, live),
		Reports:    reporting.NewService(st, time.UTC),
		Templates:  templates.NewService(st, "US"),
		Live:       live,
		Audit:      au,
	}

	r := gin.New()
	registerRoutes(r, h, routeDeps{
		Auth:        auth.RequireAccessToken(mgr),
		AuthOrQuery: auth.RequireAccessTokenOrQuery(mgr),
		LoginLimit:  httpapi.NewRateLimiter(600, 100).Middleware(),
	})
	return testApp{router: r, st: st, campaign: c, admin: admin, agent: agent}
}

func (a testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a testApp) login(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Tokens auth.TokenPair `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Data.Tokens.AccessToken)
	return resp.Data.Tokens.AccessToken
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t)
	w := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newTestApp(t)
	w := a.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	a := newTestApp(t)
	w := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "root@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAgentCannotReadDashboard(t *testing.T) {
	a := newTestApp(t)
	tok := a.login(t, "asha@example.com")

	w := a.do(t, http.MethodGet, "/v1/dashboard/stats", tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBatchThenLogCallUpdatesProgress(t *testing.T) {
	a := newTestApp(t)
	adminTok := a.login(t, "root@example.com")
	agentTok := a.login(t, "asha@example.com")

	w := a.do(t, http.MethodPost, "/v1/leads/batch", adminTok, map[string]any{
		"campaign_id": a.campaign.ID,
		"leads": []map[string]string{
			{"name": "Lead 1", "phone": "+1 202-456-1111"},
			{"name": "Lead 2", "phone": "+1 202-456-1112"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var batch struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	assert.True(t, batch.Success)
	assert.Equal(t, 2, batch.Count)

	list, err := a.st.ListLeads(context.Background(), store.LeadFilter{CampaignID: a.campaign.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, l := range list {
		require.NotNil(t, l.AssignedAgentID)
		assert.Equal(t, a.agent.ID, *l.AssignedAgentID)
	}

	w = a.do(t, http.MethodPost, fmt.Sprintf("/v1/leads/%d/log_call", list[0].ID), agentTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var logged struct {
		Message string                `json:"message"`
		Data    campaigns.CallLogged `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logged))
	assert.Equal(t, "Call logged and campaign progress updated", logged.Message)
	assert.Equal(t, 1, logged.Data.Called)

	got, err := a.st.GetCampaign(context.Background(), a.campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Called)
}

func TestBatchWithoutEligibleAgents(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.st.SetAcceptingCalls(context.Background(), a.agent.ID, false))
	adminTok := a.login(t, "root@example.com")

	w := a.do(t, http.MethodPost, "/v1/leads/batch", adminTok, map[string]any{
		"campaign_id": a.campaign.ID,
		"leads":       []map[string]string{{"name": "Lead 1", "phone": "+1 202-456-1111"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	list, err := a.st.ListLeads(context.Background(), store.LeadFilter{CampaignID: a.campaign.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLogCallStatFeedsLiveSnapshot(t *testing.T) {
	a := newTestApp(t)
	agentTok := a.login(t, "asha@example.com")

	w := a.do(t, http.MethodPost, "/v1/call-stats", agentTok, map[string]any{"type": "out", "connected": true, "duration": 42})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/v1/call-stats", agentTok, map[string]any{"type": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/v1/live", agentTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap struct {
		Data livestats.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.Data.AllCalls)
	assert.Equal(t, 1, snap.Data.Out)
}

func TestLogCallOnForeignCampaignIsForbidden(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)
	_, err = a.st.CreateUser(ctx, store.User{Name: "Bilal", Email: "bilal@example.com", PasswordHash: hash, Role: store.RoleAgent, AcceptingCalls: true})
	require.NoError(t, err)
	lead, err := a.st.CreateLead(ctx, store.Lead{CampaignID: a.campaign.ID, Name: "Lead", Phone: "+12024561111", Status: store.LeadStatusNew, AssignedAgentID: &a.agent.ID})
	require.NoError(t, err)

	tok := a.login(t, "bilal@example.com")
	w := a.do(t, http.MethodPost, fmt.Sprintf("/v1/leads/%d/log_call", lead.ID), tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	w = a.do(t, http.MethodGet, fmt.Sprintf("/v1/leads/%d", lead.ID), tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	got, err := a.st.GetCampaign(ctx, a.campaign.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Called)
	n, err := a.st.CountCampaignCalls(ctx, a.campaign.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
