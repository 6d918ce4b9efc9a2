package calls

import (
	"context"
	"errors"
	"time"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/livestats"
	"callcenter-api/internal/metrics"
	"callcenter-api/internal/store"
	"callcenter-api/pkg/logger"
)

// LiveFeed receives every logged call. Record must not block on delivery.
type LiveFeed interface {
	Record(ctx context.Context, e livestats.Event) livestats.Snapshot
}

// Service logs call outcomes reported by agents.
type Service struct {
	Store   store.Store
	Live    LiveFeed
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func NewService(st store.Store, live LiveFeed) *Service {
	return &Service{Store: st, Live: live, Now: time.Now}
}

type LogInput struct {
	Type       string     `json:"type" binding:"required,oneof=in out missed"`
	Connected  bool       `json:"connected"`
	Duration   int        `json:"duration"`
	CampaignID *int64     `json:"campaign_id"`
	Timestamp  *time.Time `json:"timestamp"`
}

// LogCall stores one call outcome for the authenticated caller.
func (s *Service) LogCall(ctx context.Context, in LogInput) (store.CallStat, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return store.CallStat{}, apperr.Unauthorized("Unauthorized")
	}
	if !store.ValidCallType(in.Type) {
		return store.CallStat{}, apperr.Validation("type must be one of in, out, missed")
	}
	if in.Duration < 0 {
		return store.CallStat{}, apperr.Validation("duration must not be negative")
	}
	if in.CampaignID != nil && *in.CampaignID <= 0 {
		in.CampaignID = nil
	}

	at := s.Now().UTC()
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		at = in.Timestamp.UTC()
	}

	if in.CampaignID != nil {
		if _, err := s.Store.GetCampaign(ctx, *in.CampaignID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.CallStat{}, apperr.NotFound("Campaign not found")
			}
			return store.CallStat{}, apperr.Persistence("get campaign", err)
		}
	}

	out, err := s.Store.InsertCallStat(ctx, store.CallStat{
		UserID:     userID,
		CampaignID: in.CampaignID,
		Type:       in.Type,
		Connected:  in.Connected,
		Duration:   in.Duration,
		CalledAt:   at,
	})
	if errors.Is(err, store.ErrReference) {
		return store.CallStat{}, apperr.Validation("Unknown user or campaign")
	}
	if err != nil {
		return store.CallStat{}, apperr.Persistence("insert call stat", err)
	}

	s.Metrics.RecordCallStat(out.Type)
	if s.Live != nil {
		s.Live.Record(ctx, livestats.Event{Type: out.Type, Connected: out.Connected, At: out.CalledAt})
	}
	logger.From(ctx).Info("call logged", "call_id", out.ID, "type", out.Type, "connected", out.Connected, "duration", out.Duration)
	return out, nil
}
