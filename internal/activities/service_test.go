package activities

import (
	"context"
	"testing"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) (*store.Memory, store.User, store.Lead) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	u, err := st.CreateUser(ctx, store.User{Name: "Asha", Email: "asha@example.com", Role: store.RoleAgent})
	require.NoError(t, err)
	c, err := st.CreateCampaign(ctx, store.Campaign{Name: "Spring"})
	require.NoError(t, err)
	require.NoError(t, st.AddCampaignAgents(ctx, c.ID, []int64{u.ID}))
	l, err := st.CreateLead(ctx, store.Lead{CampaignID: c.ID, Name: "Lead", Phone: "555", Status: store.LeadStatusNew})
	require.NoError(t, err)
	return st, u, l
}

func TestCreate_TouchesLead(t *testing.T) {
	st, u, l := seed(t)
	svc := NewService(st)
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: u.ID, Role: store.RoleAgent})

	a, err := svc.Create(ctx, l.ID, CreateInput{Type: store.ActivityNote, Title: " Asked for brochure "})
	require.NoError(t, err)
	assert.Equal(t, u.ID, a.UserID)
	assert.Equal(t, "Asked for brochure", a.Title)

	got, err := svc.LeadWithActivities(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asked for brochure", got.Lead.LastActivity)
	require.Len(t, got.Activities, 1)
	assert.Equal(t, "Asha", got.Activities[0].UserName)
}

func TestCreate_CallActivityRecounts(t *testing.T) {
	st, u, l := seed(t)
	svc := NewService(st)
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: u.ID, Role: store.RoleAgent})

	_, err := svc.Create(ctx, l.ID, CreateInput{Type: store.ActivityCall, Title: "Called"})
	require.NoError(t, err)

	c, err := st.GetCampaign(ctx, l.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Called)
}

func TestCreate_Validation(t *testing.T) {
	st, u, l := seed(t)
	svc := NewService(st)
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: u.ID, Role: store.RoleAgent})

	_, err := svc.Create(ctx, l.ID, CreateInput{Type: "sms", Title: "x"})
	assert.True(t, apperr.IsValidation(err))
	_, err = svc.Create(ctx, l.ID, CreateInput{Type: store.ActivityNote})
	assert.Equal(t, "title is required", apperr.MessageOf(err))
	_, err = svc.Create(ctx, 999, CreateInput{Type: store.ActivityNote, Title: "x"})
	assert.True(t, apperr.IsNotFound(err))
	_, err = svc.Create(context.Background(), l.ID, CreateInput{Type: store.ActivityNote, Title: "x"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = svc.LeadWithActivities(ctx, 999)
	assert.True(t, apperr.IsNotFound(err))
}

func TestAgentOutsideCampaignCannotTouchLead(t *testing.T) {
	st, _, l := seed(t)
	svc := NewService(st)
	outsider, err := st.CreateUser(context.Background(), store.User{Name: "Bilal", Email: "bilal@example.com", Role: store.RoleAgent})
	require.NoError(t, err)
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: outsider.ID, Role: store.RoleAgent})

	_, err = svc.LeadWithActivities(ctx, l.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = svc.Create(ctx, l.ID, CreateInput{Type: store.ActivityCall, Title: "Call made"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	acts, err := st.ListActivities(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Empty(t, acts)
}
