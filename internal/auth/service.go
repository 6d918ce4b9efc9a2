package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/store"
	"callcenter-api/pkg/logger"
	"callcenter-api/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// UserLookup is the slice of the store the login flow needs.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
}

// Lockout limits failed logins per email across instances. A nil Redis
// client disables it.
type Lockout struct {
	Redis     *redis.Client
	MaxFailed int
	Window    time.Duration
}

type Service struct {
	users   UserLookup
	tokens  *Manager
	lockout Lockout
	clock   func() time.Time
}

func NewService(users UserLookup, tokens *Manager, lockout Lockout) *Service {
	if lockout.MaxFailed <= 0 {
		lockout.MaxFailed = 5
	}
	if lockout.Window <= 0 {
		lockout.Window = 15 * time.Minute
	}
	return &Service{users: users, tokens: tokens, lockout: lockout, clock: time.Now}
}

type LoginResult struct {
	User   store.User `json:"user"`
	Tokens TokenPair  `json:"tokens"`
}

var errInvalidCredentials = apperr.Unauthorized("Invalid credentials")

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return LoginResult{}, apperr.Validation("Email and password required")
	}

	if s.locked(ctx, email) {
		return LoginResult{}, apperr.Unauthorized("Too many failed login attempts, try again later")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.recordFailure(ctx, email)
		return LoginResult{}, errInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, apperr.Persistence("load user by email", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		s.recordFailure(ctx, email)
		return LoginResult{}, errInvalidCredentials
	}
	s.clearFailures(ctx, email)

	pair, err := s.tokens.IssuePair(s.clock(), u.ID, u.Role)
	if err != nil {
		return LoginResult{}, apperr.Persistence("issue tokens", err)
	}
	return LoginResult{User: u, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair, reloading the role.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, apperr.Validation("refresh_token is required")
	}
	claims, err := s.tokens.Verify(refreshToken, TokenTypeRefresh, s.clock())
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("Invalid refresh token")
	}
	u, err := s.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return TokenPair{}, apperr.Unauthorized("Invalid refresh token")
	}
	if err != nil {
		return TokenPair{}, apperr.Persistence("load user", err)
	}
	pair, err := s.tokens.IssuePair(s.clock(), u.ID, u.Role)
	if err != nil {
		return TokenPair{}, apperr.Persistence("issue tokens", err)
	}
	return pair, nil
}

// Me returns the authenticated user.
func (s *Service) Me(ctx context.Context) (store.User, error) {
	id, err := UserID(ctx)
	if err != nil {
		return store.User{}, apperr.Unauthorized("Not authenticated")
	}
	u, err := s.users.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return store.User{}, apperr.Persistence("load user", err)
	}
	return u, nil
}

func lockoutKey(email string) string { return "auth:failed:" + email }

// Lockout is best effort: Redis failures are logged and the login proceeds.
func (s *Service) locked(ctx context.Context, email string) bool {
	if s.lockout.Redis == nil {
		return false
	}
	n, err := utils.WindowCount(ctx, s.lockout.Redis, lockoutKey(email))
	if err != nil {
		logger.From(ctx).Warn("login lockout check failed", "err", err)
		return false
	}
	return n >= s.lockout.MaxFailed
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if s.lockout.Redis == nil {
		return
	}
	if _, _, err := utils.HitWindow(ctx, s.lockout.Redis, lockoutKey(email), s.lockout.MaxFailed, s.lockout.Window); err != nil {
		logger.From(ctx).Warn("login lockout record failed", "err", err)
	}
}

func (s *Service) clearFailures(ctx context.Context, email string) {
	if s.lockout.Redis == nil {
		return
	}
	if err := utils.ClearWindow(ctx, s.lockout.Redis, lockoutKey(email)); err != nil {
		logger.From(ctx).Warn("login lockout clear failed", "err", err)
	}
}
