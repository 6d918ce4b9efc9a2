package campaigns

import (
	"context"
	"testing"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/audit"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *store.Memory, *audit.MemoryRepo) {
	t.Helper()
	st := store.NewMemory()
	repo := audit.NewMemoryRepo()
	return NewService(st, audit.NewService(repo)), st, repo
}

func TestCreate_LinksAgentsAndTags(t *testing.T) {
	svc, st, repo := newService(t)
	ctx := context.Background()
	a, err := st.CreateUser(ctx, store.User{Name: "Asha", Email: "a@example.com", Role: store.RoleAgent})
	require.NoError(t, err)

	d, err := svc.Create(ctx, CreateInput{
		Name:      " Spring ",
		StartDate: "2024-03-01",
		EndDate:   "2024-04-01",
		AgentIDs:  []int64{a.ID, a.ID},
		Tags:      []string{"b2b", " B2B ", "", "retail"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Spring", d.Name)
	assert.Equal(t, store.CampaignDraft, d.Status)
	assert.Equal(t, 1, d.AgentCount)
	require.Len(t, d.Agents, 1)
	assert.Equal(t, a.ID, d.Agents[0].ID)
	assert.Equal(t, []string{"b2b", "retail"}, d.Tags)
	require.NotNil(t, d.StartDate)
	assert.Equal(t, 3, int(d.StartDate.Month()))

	events := repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventCampaignCreated, events[0].Type)
}

func TestCreate_RejectsAndRollsBack(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	admin, err := st.CreateUser(ctx, store.User{Name: "Root", Email: "r@example.com", Role: store.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Name: "X", AgentIDs: []int64{admin.ID}})
	assert.True(t, apperr.IsValidation(err))

	n, err := st.CountCampaigns(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.Create(ctx, CreateInput{})
	assert.Equal(t, "campaign_name is required", apperr.MessageOf(err))
	_, err = svc.Create(ctx, CreateInput{Name: "X", Status: "paused"})
	assert.True(t, apperr.IsValidation(err))
	_, err = svc.Create(ctx, CreateInput{Name: "X", StartDate: "03/01/2024"})
	assert.True(t, apperr.IsValidation(err))
	_, err = svc.Create(ctx, CreateInput{Name: "X", StartDate: "2024-05-01", EndDate: "2024-04-01"})
	assert.True(t, apperr.IsValidation(err))
}

func TestList_AgentScoped(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	a, _ := st.CreateUser(ctx, store.User{Name: "A", Email: "a@example.com", Role: store.RoleAgent})
	b, _ := st.CreateUser(ctx, store.User{Name: "B", Email: "b@example.com", Role: store.RoleAgent})
	_, err := svc.Create(ctx, CreateInput{Name: "One", AgentIDs: []int64{a.ID}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: "Two", AgentIDs: []int64{b.ID}})
	require.NoError(t, err)

	agentCtx := auth.WithIdentity(ctx, auth.Identity{UserID: a.ID, Role: store.RoleAgent})
	mine, err := svc.List(agentCtx, b.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "One", mine[0].Name)

	adminCtx := auth.WithIdentity(ctx, auth.Identity{UserID: 1000, Role: store.RoleAdmin})
	all, err := svc.List(adminCtx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateStatus(t *testing.T) {
	svc, _, repo := newService(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, CreateInput{Name: "One"})
	require.NoError(t, err)

	c, err := svc.UpdateStatus(ctx, d.ID, store.CampaignActive)
	require.NoError(t, err)
	assert.Equal(t, store.CampaignActive, c.Status)

	_, err = svc.UpdateStatus(ctx, d.ID, "archived")
	assert.True(t, apperr.IsValidation(err))
	_, err = svc.UpdateStatus(ctx, 404, store.CampaignActive)
	assert.Equal(t, "Campaign not found", apperr.MessageOf(err))

	events := repo.Events()
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventCampaignStatusChanged, events[1].Type)
}

func TestAssignAgents_Idempotent(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	a, _ := st.CreateUser(ctx, store.User{Name: "A", Email: "a@example.com", Role: store.RoleAgent})
	d, err := svc.Create(ctx, CreateInput{Name: "One"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := svc.AssignAgents(ctx, d.ID, []int64{a.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, got.AgentCount)
	}

	_, err = svc.AssignAgents(ctx, 404, []int64{a.ID})
	assert.True(t, apperr.IsNotFound(err))
	_, err = svc.AssignAgents(ctx, d.ID, nil)
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.Get(ctx, 404)
	assert.True(t, apperr.IsNotFound(err))
}
