package auth

import (
	"context"
	"testing"
	"time"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, st *store.Memory, email, password, role string) store.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	u, err := st.CreateUser(context.Background(), store.User{Name: "Test", Email: email, PasswordHash: hash, Role: role})
	require.NoError(t, err)
	return u
}

func TestLogin(t *testing.T) {
	st := store.NewMemory()
	u := seedUser(t, st, "asha@example.com", "s3cret", store.RoleAgent)
	svc := NewService(st, newTestManager(t), Lockout{})
	ctx := context.Background()

	_, err := svc.Login(ctx, "", "x")
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "Email and password required", apperr.MessageOf(err))

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Equal(t, "Invalid credentials", apperr.MessageOf(err))

	_, err = svc.Login(ctx, "asha@example.com", "wrong")
	assert.Equal(t, "Invalid credentials", apperr.MessageOf(err))

	res, err := svc.Login(ctx, "  ASHA@example.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	claims, err := svc.tokens.Verify(res.Tokens.AccessToken, TokenTypeAccess, time.Now())
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, store.RoleAgent, claims.Role)
}

func TestRefreshReloadsRole(t *testing.T) {
	st := store.NewMemory()
	u := seedUser(t, st, "a@example.com", "pw", store.RoleAgent)
	svc := NewService(st, newTestManager(t), Lockout{})
	ctx := context.Background()

	res, err := svc.Login(ctx, "a@example.com", "pw")
	require.NoError(t, err)

	u.Role = store.RoleAdmin
	_, err = st.UpdateUser(ctx, u)
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	claims, err := svc.tokens.Verify(pair.AccessToken, TokenTypeAccess, time.Now())
	require.NoError(t, err)
	assert.Equal(t, store.RoleAdmin, claims.Role)

	_, err = svc.Refresh(ctx, res.Tokens.AccessToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestLoginLockout(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	st := store.NewMemory()
	seedUser(t, st, "a@example.com", "pw", store.RoleAgent)
	svc := NewService(st, newTestManager(t), Lockout{Redis: rdb, MaxFailed: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, "a@example.com", "bad")
		require.Equal(t, "Invalid credentials", apperr.MessageOf(err))
	}
	_, err := svc.Login(ctx, "a@example.com", "pw")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err), "Too many failed login attempts")

	mr.FastForward(2 * time.Minute)
	_, err = svc.Login(ctx, "a@example.com", "pw")
	require.NoError(t, err)
}

func TestMe(t *testing.T) {
	st := store.NewMemory()
	u := seedUser(t, st, "a@example.com", "pw", store.RoleAgent)
	svc := NewService(st, newTestManager(t), Lockout{})

	_, err := svc.Me(context.Background())
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	ctx := WithIdentity(context.Background(), Identity{UserID: u.ID, Role: u.Role})
	got, err := svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}
