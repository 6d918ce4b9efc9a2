package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/store"
	"callcenter-api/pkg/logger"
	"callcenter-api/pkg/phone"
)

// RawLead is one record of an uploaded batch.
type RawLead struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type BatchResult struct {
	Count    int           `json:"count"`
	PerAgent map[int64]int `json:"per_agent"`
	Message  string        `json:"message"`
}

// AssignBatch inserts raw leads into a campaign and spreads them over the
// campaign's agents that are accepting calls.
//
// The batch is shuffled uniformly and dealt round-robin over the agents in
// id order, so every agent gets floor(n/k) or ceil(n/k) leads. Nothing is
// written unless every lead is written. Duplicate phones are kept.
func (s *Service) AssignBatch(ctx context.Context, campaignID int64, raw []RawLead) (BatchResult, error) {
	if campaignID <= 0 || len(raw) == 0 {
		return BatchResult{}, apperr.Validation("campaign_id and leads array are required")
	}
	batch := make([]store.Lead, len(raw))
	now := s.Now()
	for i, r := range raw {
		p := phone.Normalize(r.Phone, s.Region)
		if p == "" {
			return BatchResult{}, apperr.Validation(fmt.Sprintf("leads[%d].phone is required", i))
		}
		batch[i] = store.Lead{
			CampaignID:   campaignID,
			Name:         strings.TrimSpace(r.Name),
			Company:      strings.TrimSpace(r.Company),
			Phone:        p,
			Email:        strings.TrimSpace(r.Email),
			Status:       store.LeadStatusNew,
			LastActivity: lastActivityCreated,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	res := BatchResult{PerAgent: map[int64]int{}}
	err := s.Store.WithTransaction(ctx, func(ctx context.Context, q store.Queries) error {
		if _, err := q.GetCampaign(ctx, campaignID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Campaign not found")
			}
			return err
		}
		agents, err := q.EligibleAgentIDs(ctx, campaignID)
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			return apperr.NoEligibleAgents("No active agents found for this campaign")
		}

		order := s.permutation(len(batch))
		shuffled := make([]store.Lead, len(batch))
		for i, j := range order {
			agent := agents[i%len(agents)]
			l := batch[j]
			l.AssignedAgentID = &agent
			shuffled[i] = l
			res.PerAgent[agent]++
		}

		n, err := q.InsertLeads(ctx, shuffled)
		if err != nil {
			return err
		}
		if n != len(shuffled) {
			return fmt.Errorf("inserted %d of %d leads", n, len(shuffled))
		}
		res.Count = n
		return nil
	})
	if err != nil {
		return BatchResult{}, apperr.Wrap("assign leads batch", err)
	}

	res.Message = fmt.Sprintf("%d leads uploaded and randomly assigned successfully", res.Count)
	s.Metrics.RecordLeadsAssigned(res.Count)
	logger.From(ctx).Info("leads assigned", "campaign_id", campaignID, "count", res.Count, "agents", len(res.PerAgent))
	return res, nil
}

// permutation returns a uniformly random ordering of [0, n).
func (s *Service) permutation(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	s.rngMu.Lock()
	s.RNG.Shuffle(n, func(i, j int) { out[i], out[j] = out[j], out[i] })
	s.rngMu.Unlock()
	return out
}
