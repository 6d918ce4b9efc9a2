package campaigns

import (
	"context"
	"errors"
	"time"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/metrics"
	"callcenter-api/internal/rbac"
	"callcenter-api/internal/store"
	"callcenter-api/pkg/logger"
)

// Progress keeps campaigns.called in line with the call activities logged
// on the campaign's leads. Every write is a full recount, never an
// increment, so it is idempotent and repairs any earlier drift.
type Progress struct {
	Store   store.Store
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func NewProgress(st store.Store) *Progress {
	return &Progress{Store: st, Now: time.Now}
}

type CallLogged struct {
	CampaignID int64 `json:"campaign_id"`
	Called     int   `json:"called"`
}

const (
	callActivityTitle = "Call made"
	callActivityDesc  = "Lead called by agent"
)

// LogLeadCall records that agentID called leadID and recomputes the
// campaign's called counter in the same transaction.
func (p *Progress) LogLeadCall(ctx context.Context, leadID, agentID int64) (CallLogged, error) {
	if agentID == 0 {
		return CallLogged{}, apperr.Validation("agent_id is required")
	}
	if leadID <= 0 {
		return CallLogged{}, apperr.Validation("lead id is required")
	}

	now := p.Now()
	var out CallLogged
	err := p.Store.WithTransaction(ctx, func(ctx context.Context, q store.Queries) error {
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

		if _, err := q.InsertActivity(ctx, store.Activity{
			LeadID:      leadID,
			Type:        store.ActivityCall,
			Title:       callActivityTitle,
			Description: callActivityDesc,
			UserID:      agentID,
			CreatedAt:   now,
		}); err != nil {
			if errors.Is(err, store.ErrReference) {
				return apperr.Validation("Unknown agent")
			}
			return err
		}
		if err := q.TouchLead(ctx, leadID, callActivityTitle, now); err != nil {
			return err
		}

		called, err := Recount(ctx, q, lead.CampaignID)
		if err != nil {
			return err
		}
		out = CallLogged{CampaignID: lead.CampaignID, Called: called}
		return nil
	})
	if err != nil {
		return CallLogged{}, apperr.Wrap("log lead call", err)
	}

	p.Metrics.RecordLeadCall()
	logger.From(ctx).Info("lead call logged", "lead_id", leadID, "agent_id", agentID, "campaign_id", out.CampaignID, "called", out.Called)
	return out, nil
}

// Recompute recounts one campaign outside of any call logging.
func (p *Progress) Recompute(ctx context.Context, campaignID int64) (int, error) {
	var called int
	err := p.Store.WithTransaction(ctx, func(ctx context.Context, q store.Queries) error {
		var err error
		called, err = Recount(ctx, q, campaignID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return 0, apperr.NotFound("Campaign not found")
	}
	if err != nil {
		return 0, apperr.Wrap("recompute campaign progress", err)
	}
	p.Metrics.RecordRecompute(1)
	return called, nil
}

// RecomputeAll recounts every campaign. A failure on one campaign is logged
// and does not stop the others; the number of campaigns updated is returned.
func (p *Progress) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := p.Store.ListCampaignIDs(ctx)
	if err != nil {
		return 0, apperr.Persistence("list campaigns", err)
	}
	updated := 0
	var firstErr error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if _, err := p.Recompute(ctx, id); err != nil {
			logger.From(ctx).Error("campaign recompute failed", "campaign_id", id, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		updated++
	}
	return updated, firstErr
}

// Recount overwrites campaigns.called with a fresh count. It must run inside
// the caller's transaction.
func Recount(ctx context.Context, q store.Queries, campaignID int64) (int, error) {
	n, err := q.CountCampaignCalls(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if err := q.SetCampaignCalled(ctx, campaignID, n); err != nil {
		return 0, err
	}
	return n, nil
}
