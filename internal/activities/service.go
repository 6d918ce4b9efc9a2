package activities

import (
	"context"
	"errors"
	"strings"
	"time"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/campaigns"
	"callcenter-api/internal/rbac"
	"callcenter-api/internal/store"
)

type Service struct {
	Store store.Store
	Now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{Store: st, Now: time.Now}
}

type CreateInput struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LeadActivities is a lead with its activity log, newest first.
type LeadActivities struct {
	Lead       store.Lead       `json:"lead"`
	Activities []store.Activity `json:"activities"`
}

func (s *Service) List(ctx context.Context, leadID int64) ([]store.Activity, error) {
	out, err := s.Store.ListActivities(ctx, leadID)
	if err != nil {
		return nil, apperr.Persistence("list activities", err)
	}
	return out, nil
}

func (s *Service) LeadWithActivities(ctx context.Context, leadID int64) (LeadActivities, error) {
	l, err := s.Store.GetLead(ctx, leadID)
	if errors.Is(err, store.ErrNotFound) {
		return LeadActivities{}, apperr.NotFound("Lead not found")
	}
	if err != nil {
		return LeadActivities{}, apperr.Persistence("get lead", err)
	}
	if err := rbac.CheckCampaignAccess(ctx, s.Store, l.CampaignID); err != nil {
		return LeadActivities{}, apperr.Wrap("get lead", err)
	}
	acts, err := s.List(ctx, leadID)
	if err != nil {
		return LeadActivities{}, err
	}
	return LeadActivities{Lead: l, Activities: acts}, nil
}

// Create appends an activity authored by the caller and makes its title the
// lead's last activity. A call activity also refreshes the campaign's called
// counter.
func (s *Service) Create(ctx context.Context, leadID int64, in CreateInput) (store.Activity, error) {
	in.Title = strings.TrimSpace(in.Title)
	if !store.ValidActivityType(in.Type) {
		return store.Activity{}, apperr.Validation("type must be one of call, email, note, status")
	}
	if in.Title == "" {
		return store.Activity{}, apperr.Validation("title is required")
	}
	userID, err := auth.UserID(ctx)
	if err != nil {
		return store.Activity{}, apperr.Unauthorized("Unauthorized")
	}
	now := s.Now()

	var out store.Activity
	err = s.Store.WithTransaction(ctx, func(ctx context.Context, q store.Queries) error {
		lead, err := q.GetLead(ctx, leadID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Lead not found")
		}
		if err != nil {
			return err
		}
		if err := rbac.CheckCampaignAccess(ctx, q, lead.CampaignID); err != nil {
			return err
		}
		out, err = q.InsertActivity(ctx, store.Activity{
			LeadID:      leadID,
			Type:        in.Type,
			Title:       in.Title,
			Description: strings.TrimSpace(in.Description),
			UserID:      userID,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}
		if err := q.TouchLead(ctx, leadID, in.Title, now); err != nil {
			return err
		}
		if in.Type == store.ActivityCall {
			_, err = campaigns.Recount(ctx, q, lead.CampaignID)
		}
		return err
	})
	if err != nil {
		return store.Activity{}, apperr.Wrap("create activity", err)
	}
	return out, nil
}
