package leads

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/audit"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/metrics"
	"callcenter-api/internal/rbac"
	"callcenter-api/internal/store"
	"callcenter-api/pkg/phone"
)

const lastActivityCreated = "Lead created"

// Service owns lead intake, assignment and lead status changes.
type Service struct {
	Store  store.Store
	Region string

	Metrics *metrics.Metrics
	Audit   *audit.Service

	// RNG drives the shuffle in AssignBatch. *rand.Rand is not safe for
	// concurrent use; rngMu guards it.
	RNG   *rand.Rand
	rngMu sync.Mutex

	Now func() time.Time
}

func NewService(st store.Store, region string, rng *rand.Rand) *Service {
	if region == "" {
		region = phone.DefaultRegion
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{Store: st, Region: region, RNG: rng, Now: time.Now}
}

type CreateInput struct {
	CampaignID      int64  `json:"campaign_id"`
	Name            string `json:"name"`
	Company         string `json:"company"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Status          string `json:"status"`
	AssignedAgentID *int64 `json:"assigned_agent_id"`
}

// Create adds a single lead. An assigned agent must belong to the campaign.
func (s *Service) Create(ctx context.Context, in CreateInput) (store.Lead, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = phone.Normalize(in.Phone, s.Region)
	if in.CampaignID <= 0 || in.Name == "" || in.Phone == "" {
		return store.Lead{}, apperr.Validation("campaign_id, name and phone are required")
	}
	if in.Status == "" {
		in.Status = store.LeadStatusNew
	}
	if !store.ValidLeadStatus(in.Status) {
		return store.Lead{}, apperr.Validation("Invalid lead status")
	}

	now := s.Now()
	var out store.Lead
	err := s.Store.WithTransaction(ctx, func(ctx context.Context, q store.Queries) error {
		if _, err := q.GetCampaign(ctx, in.CampaignID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Campaign not found")
			}
			return err
		}
		if in.AssignedAgentID != nil {
			ok, err := q.IsCampaignAgent(ctx, in.CampaignID, *in.AssignedAgentID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validation("Assigned agent is not a member of this campaign")
			}
		}
		var err error
		out, err = q.CreateLead(ctx, store.Lead{
			CampaignID:      in.CampaignID,
			Name:            in.Name,
			Company:         strings.TrimSpace(in.Company),
			Phone:           in.Phone,
			Email:           strings.TrimSpace(in.Email),
			Status:          in.Status,
			AssignedAgentID: in.AssignedAgentID,
			LastActivity:    lastActivityCreated,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		return err
	})
	if err != nil {
		return store.Lead{}, apperr.Wrap("create lead", err)
	}
	return out, nil
}

// List returns leads newest first. Agents only ever see their own leads.
func (s *Service) List(ctx context.Context, f store.LeadFilter) ([]store.Lead, error) {
	if id, err := auth.IdentityFrom(ctx); err == nil && !rbac.IsAdmin(id.Role) {
		f.AgentID = id.UserID
	}
	if f.Status != "" && !store.ValidLeadStatus(f.Status) {
		return nil, apperr.Validation("Invalid lead status")
	}
	out, err := s.Store.ListLeads(ctx, f)
	if err != nil {
		return nil, apperr.Persistence("list leads", err)
	}
	return out, nil
}

func (s *Service) ListByCampaign(ctx context.Context, campaignID int64) ([]store.Lead, error) {
	if campaignID <= 0 {
		return nil, apperr.Validation("campaign_id is required")
	}
	return s.List(ctx, store.LeadFilter{CampaignID: campaignID})
}

func (s *Service) Get(ctx context.Context, id int64) (store.Lead, error) {
	l, err := s.Store.GetLead(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Lead{}, apperr.NotFound("Lead not found")
	}
	if err != nil {
		return store.Lead{}, apperr.Persistence("get lead", err)
	}
	if err := rbac.CheckCampaignAccess(ctx, s.Store, l.CampaignID); err != nil {
		return store.Lead{}, apperr.Wrap("get lead", err)
	}
	return l, nil
}

// UpdateStatus changes the lead status and records a status activity in the
// same transaction.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (store.Lead, error) {
	if id <= 0 {
		return store.Lead{}, apperr.Validation("lead id is required")
	}
	if !store.ValidLeadStatus(status) {
		return store.Lead{}, apperr.Validation("Invalid lead status")
	}
	userID, err := auth.UserID(ctx)
	if err != nil {
		return store.Lead{}, apperr.Unauthorized("Unauthorized")
	}
	now := s.Now()
	title := "Status changed to " + status

	var out store.Lead
	err = s.Store.WithTransaction(ctx, func(ctx context.Context, q store.Queries) error {
		prev, err := q.GetLead(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Lead not found")
		}
		if err != nil {
			return err
		}
		if err := rbac.CheckCampaignAccess(ctx, q, prev.CampaignID); err != nil {
			return err
		}
		if err := q.UpdateLeadStatus(ctx, id, status, title, now); err != nil {
			return err
		}
		if _, err := q.InsertActivity(ctx, store.Activity{
			LeadID:      id,
			Type:        store.ActivityStatus,
			Title:       title,
			Description: "Lead status updated from " + prev.Status + " to " + status,
			UserID:      userID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		out, err = q.GetLead(ctx, id)
		return err
	})
	if err != nil {
		return store.Lead{}, apperr.Wrap("update lead status", err)
	}
	return out, nil
}
