package campaigns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/audit"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/rbac"
	"callcenter-api/internal/store"
)

const dateLayout = "2006-01-02"

type Service struct {
	Store store.Store
	Audit *audit.Service
}

func NewService(st store.Store, au *audit.Service) *Service {
	return &Service{Store: st, Audit: au}
}

type CreateInput struct {
	Name         string   `json:"campaign_name"`
	Description  string   `json:"description"`
	Demographics string   `json:"demographics"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Status       string   `json:"status"`
	AgentIDs     []int64  `json:"agent_ids"`
	Tags         []string `json:"tags"`
}

// Detail is a campaign with its linked agents and tags.
type Detail struct {
	store.Campaign
	Agents []store.User `json:"agents"`
	Tags   []string     `json:"tags"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Detail, error) {
	c := store.Campaign{
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		Demographics: strings.TrimSpace(in.Demographics),
		Status:       in.Status,
	}
	if c.Name == "" {
		return Detail{}, apperr.Validation("campaign_name is required")
	}
	if c.Status == "" {
		c.Status = store.CampaignDraft
	}
	if !store.ValidCampaignStatus(c.Status) {
		return Detail{}, apperr.Validation("Invalid campaign status")
	}
	var err error
	if c.StartDate, err = parseDate("start_date", in.StartDate); err != nil {
		return Detail{}, err
	}
	if c.EndDate, err = parseDate("end_date", in.EndDate); err != nil {
		return Detail{}, err
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return Detail{}, apperr.Validation("end_date must not be before start_date")
	}
	tags := normalizeTags(in.Tags)

	var out Detail
	err = s.Store.WithTransaction(ctx, func(ctx context.Context, q store.Queries) error {
		created, err := q.CreateCampaign(ctx, c)
		if err != nil {
			return err
		}
		if err := linkAgents(ctx, q, created.ID, in.AgentIDs); err != nil {
			return err
		}
		if err := q.AddCampaignTags(ctx, created.ID, tags); err != nil {
			return err
		}
		out, err = loadDetail(ctx, q, created.ID)
		return err
	})
	if err != nil {
		return Detail{}, apperr.Wrap("create campaign", err)
	}

	s.Audit.Record(ctx, audit.Event{
		Type:       audit.EventCampaignCreated,
		CampaignID: &out.ID,
		Message:    "campaign created",
	}, map[string]any{"name": out.Name, "agents": len(out.Agents)})
	return out, nil
}

// List returns campaigns newest first with their agent counts. Agents are
// restricted to the campaigns they are linked to.
func (s *Service) List(ctx context.Context, agentID int64) ([]store.Campaign, error) {
	if id, err := auth.IdentityFrom(ctx); err == nil && !rbac.IsAdmin(id.Role) {
		agentID = id.UserID
	}
	out, err := s.Store.ListCampaigns(ctx, store.CampaignFilter{AgentID: agentID})
	if err != nil {
		return nil, apperr.Persistence("list campaigns", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	d, err := loadDetail(ctx, s.Store, id)
	if err != nil {
		return Detail{}, apperr.Wrap("get campaign", err)
	}
	return d, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (store.Campaign, error) {
	if !store.ValidCampaignStatus(status) {
		return store.Campaign{}, apperr.Validation("Invalid campaign status")
	}
	prev, err := s.Store.GetCampaign(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Campaign{}, apperr.NotFound("Campaign not found")
	}
	if err != nil {
		return store.Campaign{}, apperr.Persistence("get campaign", err)
	}
	if err := s.Store.UpdateCampaignStatus(ctx, id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, apperr.NotFound("Campaign not found")
		}
		return store.Campaign{}, apperr.Persistence("update campaign status", err)
	}

	s.Audit.Record(ctx, audit.Event{
		Type:       audit.EventCampaignStatusChanged,
		CampaignID: &id,
		Message:    fmt.Sprintf("status %s -> %s", prev.Status, status),
	}, map[string]any{"from": prev.Status, "to": status})

	prev.Status = status
	return prev, nil
}

// AssignAgents links agents to a campaign. Existing links are kept.
func (s *Service) AssignAgents(ctx context.Context, id int64, agentIDs []int64) (Detail, error) {
	if len(agentIDs) == 0 {
		return Detail{}, apperr.Validation("agent_ids is required")
	}
	var out Detail
	err := s.Store.WithTransaction(ctx, func(ctx context.Context, q store.Queries) error {
		if _, err := q.GetCampaign(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Campaign not found")
			}
			return err
		}
		if err := linkAgents(ctx, q, id, agentIDs); err != nil {
			return err
		}
		var err error
		out, err = loadDetail(ctx, q, id)
		return err
	})
	if err != nil {
		return Detail{}, apperr.Wrap("assign campaign agents", err)
	}

	s.Audit.Record(ctx, audit.Event{
		Type:       audit.EventCampaignAgentsAdded,
		CampaignID: &id,
		Message:    "agents assigned",
	}, map[string]any{"agent_ids": agentIDs})
	return out, nil
}

func linkAgents(ctx context.Context, q store.Queries, campaignID int64, agentIDs []int64) error {
	if len(agentIDs) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(agentIDs))
	ids := make([]int64, 0, len(agentIDs))
	for _, id := range agentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		u, err := q.GetUser(ctx, id)
		if errors.Is(err, store.ErrNotFound) || (err == nil && u.Role != store.RoleAgent) {
			return apperr.Validation(fmt.Sprintf("Agent %d not found", id))
		}
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return q.AddCampaignAgents(ctx, campaignID, ids)
}

func loadDetail(ctx context.Context, q store.Queries, id int64) (Detail, error) {
	c, err := q.GetCampaign(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Detail{}, apperr.NotFound("Campaign not found")
	}
	if err != nil {
		return Detail{}, err
	}
	agents, err := q.ListCampaignAgents(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	tags, err := q.ListCampaignTags(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Campaign: c, Agents: agents, Tags: tags}, nil
}

func parseDate(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, apperr.Validation(field + " must be YYYY-MM-DD")
	}
	return &t, nil
}

func normalizeTags(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}
