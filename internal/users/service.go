package users

import (
	"context"
	"errors"
	"strings"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/audit"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/rbac"
	"callcenter-api/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/sahilm/fuzzy"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

var validate = validator.New()

type Service struct {
	Store store.Store
	Audit *audit.Service
}

func NewService(st store.Store, au *audit.Service) *Service {
	return &Service{Store: st, Audit: au}
}

type CreateInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Phone          string `json:"phone"`
	Team           string `json:"team"`
	Role           string `json:"role"`
	AcceptingCalls *bool  `json:"accepting_calls"`
}

// UpdateInput is a partial patch; nil fields are left unchanged.
type UpdateInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Team     *string `json:"team"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
	Status   *string `json:"status"`
}

type ListQuery struct {
	Role   string `form:"role"`
	Status string `form:"status"`
	Search string `form:"search"`
}

type Stats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

type ListResult struct {
	Stats Stats        `json:"stats"`
	Users []store.User `json:"users"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (store.User, error) {
	u := store.User{
		Name:           strings.TrimSpace(in.Name),
		Email:          normalizeEmail(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		Team:           strings.TrimSpace(in.Team),
		Role:           in.Role,
		AcceptingCalls: true,
	}
	if u.Name == "" || u.Email == "" || in.Password == "" {
		return store.User{}, apperr.Validation("Name, email and password are required")
	}
	if err := checkEmail(u.Email); err != nil {
		return store.User{}, err
	}
	if u.Role == "" {
		u.Role = rbac.RoleAgent
	}
	if !rbac.IsKnownRole(u.Role) {
		return store.User{}, apperr.Validation("Invalid role")
	}
	if in.AcceptingCalls != nil {
		u.AcceptingCalls = *in.AcceptingCalls
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return store.User{}, apperr.Validation("Invalid password")
	}
	u.PasswordHash = hash

	out, err := s.Store.CreateUser(ctx, u)
	if errors.Is(err, store.ErrDuplicate) {
		return store.User{}, apperr.Conflict("Email already exists")
	}
	if err != nil {
		return store.User{}, apperr.Persistence("create user", err)
	}

	s.Audit.Record(ctx, audit.Event{
		Type:         audit.EventUserCreated,
		TargetUserID: &out.ID,
		Message:      "user created",
	}, map[string]any{"email": out.Email, "role": out.Role})
	return out, nil
}

// List filters by role and status, then ranks by fuzzy match on name and
// email when a search term is given. Stats always cover every user.
func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	f := store.UserFilter{Role: q.Role}
	if q.Status != "" {
		accepting, ok := parseStatus(q.Status)
		if !ok {
			return ListResult{}, apperr.Validation("status must be Active or Inactive")
		}
		f.Accepting = &accepting
	}

	all, err := s.Store.ListUsers(ctx, store.UserFilter{})
	if err != nil {
		return ListResult{}, apperr.Persistence("list users", err)
	}
	var st Stats
	for _, u := range all {
		st.Total++
		if u.AcceptingCalls {
			st.Active++
		} else {
			st.Inactive++
		}
	}

	users, err := s.Store.ListUsers(ctx, f)
	if err != nil {
		return ListResult{}, apperr.Persistence("list users", err)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		users = search(users, term)
	}
	return ListResult{Stats: st, Users: users}, nil
}

func (s *Service) ListAgents(ctx context.Context) ([]store.User, error) {
	out, err := s.Store.ListUsers(ctx, store.UserFilter{Role: rbac.RoleAgent})
	if err != nil {
		return nil, apperr.Persistence("list agents", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (store.User, error) {
	u, err := s.Store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return store.User{}, apperr.Persistence("get user", err)
	}
	return u, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (store.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return store.User{}, err
	}
	changed := []string{}
	if in.Name != nil {
		if u.Name = strings.TrimSpace(*in.Name); u.Name == "" {
			return store.User{}, apperr.Validation("name must not be empty")
		}
		changed = append(changed, "name")
	}
	if in.Email != nil {
		u.Email = normalizeEmail(*in.Email)
		if err := checkEmail(u.Email); err != nil {
			return store.User{}, err
		}
		changed = append(changed, "email")
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
		changed = append(changed, "phone")
	}
	if in.Team != nil {
		u.Team = strings.TrimSpace(*in.Team)
		changed = append(changed, "team")
	}
	if in.Role != nil {
		if !rbac.IsKnownRole(*in.Role) {
			return store.User{}, apperr.Validation("Invalid role")
		}
		u.Role = *in.Role
		changed = append(changed, "role")
	}
	if in.Status != nil {
		accepting, ok := parseStatus(*in.Status)
		if !ok {
			return store.User{}, apperr.Validation("status must be Active or Inactive")
		}
		u.AcceptingCalls = accepting
		changed = append(changed, "status")
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return store.User{}, apperr.Validation("Invalid password")
		}
		u.PasswordHash = hash
		changed = append(changed, "password")
	}
	if len(changed) == 0 {
		return store.User{}, apperr.Validation("No fields to update")
	}

	out, err := s.Store.UpdateUser(ctx, u)
	if errors.Is(err, store.ErrDuplicate) {
		return store.User{}, apperr.Conflict("Email already exists")
	}
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return store.User{}, apperr.Persistence("update user", err)
	}

	s.Audit.Record(ctx, audit.Event{
		Type:         audit.EventUserUpdated,
		TargetUserID: &out.ID,
		Message:      "user updated",
	}, map[string]any{"fields": changed})
	return out, nil
}

// SetAvailability toggles accepting_calls for the caller.
func (s *Service) SetAvailability(ctx context.Context, accepting bool) (store.User, error) {
	id, err := auth.UserID(ctx)
	if err != nil {
		return store.User{}, apperr.Unauthorized("Unauthorized")
	}
	if err := s.Store.SetAcceptingCalls(ctx, id, accepting); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, apperr.NotFound("User not found")
		}
		return store.User{}, apperr.Persistence("set availability", err)
	}
	return s.Get(ctx, id)
}

func parseStatus(s string) (bool, bool) {
	switch {
	case strings.EqualFold(s, StatusActive):
		return true, true
	case strings.EqualFold(s, StatusInactive):
		return false, true
	}
	return false, false
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func checkEmail(e string) error {
	if e == "" {
		return apperr.Validation("email is required")
	}
	if err := validate.Var(e, "email"); err != nil {
		return apperr.Validation("Invalid email")
	}
	return nil
}

// searchable exposes "name email" of each user to fuzzy.
type searchable []store.User

func (u searchable) String(i int) string { return u[i].Name + " " + u[i].Email }
func (u searchable) Len() int            { return len(u) }

func search(users []store.User, term string) []store.User {
	matches := fuzzy.FindFrom(term, searchable(users))
	out := make([]store.User, 0, len(matches))
	for _, m := range matches {
		out = append(out, users[m.Index])
	}
	return out
}
