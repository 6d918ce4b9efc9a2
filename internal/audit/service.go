package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"callcenter-api/internal/auth"
	"callcenter-api/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Service logs internal audit information. Audit is admin-only and callers
// treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record fills actor and IP from ctx, encodes meta as JSON and appends the
// event. Failures are logged and swallowed.
func (s *Service) Record(ctx context.Context, e Event, meta map[string]any) {
	if s == nil {
		return
	}
	if id, err := auth.IdentityFrom(ctx); err == nil {
		e.ActorUserID = id.UserID
		e.ActorRole = id.Role
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			e.Metadata = string(b)
		}
	}
	if err := s.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", string(e.Type), "err", err)
	}
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.Recent(ctx, limit)
}
