package reporting

import (
	"context"
	"errors"
	"math"
	"time"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/store"
)

const (
	dateLayout       = "2006-01-02"
	recentLeadsLimit = 5
)

type LeadLog = store.LeadLog

// Service answers dashboard and reporting reads. Nothing is cached; every
// call re-queries.
type Service struct {
	Store    store.Queries
	Location *time.Location
	Now      func() time.Time
}

func NewService(q store.Queries, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Store: q, Location: loc, Now: time.Now}
}

// Today is the local calendar day containing now, in the configured
// timezone.
func (s *Service) Today() TimeRange {
	y, m, d := s.Now().In(s.Location).Date()
	return dayRange(y, m, d, s.Location)
}

// Day parses a YYYY-MM-DD date as a local calendar day.
func (s *Service) Day(date string) (TimeRange, error) {
	t, err := time.ParseInLocation(dateLayout, date, s.Location)
	if err != nil {
		return TimeRange{}, apperr.Validation("date must be YYYY-MM-DD")
	}
	y, m, d := t.Date()
	return dayRange(y, m, d, s.Location), nil
}

func dayRange(y int, m time.Month, d int, loc *time.Location) TimeRange {
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return TimeRange{From: from, To: from.AddDate(0, 0, 1)}
}

func (s *Service) filter(scope Scope) store.CallFilter {
	if scope == ScopeToday {
		r := s.Today()
		return store.CallFilter{From: r.From, To: r.To}
	}
	return store.CallFilter{}
}

func (s *Service) Summary(ctx context.Context, scope Scope) (Summary, error) {
	t, err := s.Store.CallTotals(ctx, s.filter(scope))
	if err != nil {
		return Summary{}, apperr.Persistence("call totals", err)
	}
	return summaryOf(t), nil
}

func (s *Service) AgentRollup(ctx context.Context, scope Scope) ([]AgentSummary, error) {
	rows, err := s.Store.AgentCallTotals(ctx, s.filter(scope))
	if err != nil {
		return nil, apperr.Persistence("agent call totals", err)
	}
	out := make([]AgentSummary, 0, len(rows))
	for _, r := range rows {
		status := AgentInactive
		if r.AcceptingCalls {
			status = AgentActive
		}
		out = append(out, AgentSummary{ID: r.AgentID, Name: r.Name, Status: status, Summary: summaryOf(r.CallTotals)})
	}
	return out, nil
}

// CallSummary is the global summary plus the per-agent rollup.
func (s *Service) CallSummary(ctx context.Context, scope Scope) (CallSummary, error) {
	sum, err := s.Summary(ctx, scope)
	if err != nil {
		return CallSummary{}, err
	}
	agents, err := s.AgentRollup(ctx, scope)
	if err != nil {
		return CallSummary{}, err
	}
	return CallSummary{Summary: sum, Agents: agents}, nil
}

// ConversionRate is answered over total across per-campaign buckets, as a
// percentage with two decimals. Calls without a campaign form their own
// bucket. No calls yields 0.
func (s *Service) ConversionRate(ctx context.Context, scope Scope) (float64, error) {
	buckets, err := s.Store.CampaignCallBuckets(ctx, s.filter(scope))
	if err != nil {
		return 0, apperr.Persistence("campaign call buckets", err)
	}
	var total, answered int
	for _, b := range buckets {
		total += b.Total
		answered += b.Answered
	}
	return percent(answered, total), nil
}

func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	active, err := s.Store.CountCampaigns(ctx, store.CampaignActive)
	if err != nil {
		return DashboardStats{}, apperr.Persistence("count campaigns", err)
	}
	today, err := s.Store.CallTotals(ctx, s.filter(ScopeToday))
	if err != nil {
		return DashboardStats{}, apperr.Persistence("call totals", err)
	}
	rate, err := s.ConversionRate(ctx, ScopeAll)
	if err != nil {
		return DashboardStats{}, err
	}
	available, err := s.Store.CountAvailableAgents(ctx)
	if err != nil {
		return DashboardStats{}, apperr.Persistence("count agents", err)
	}
	return DashboardStats{
		ActiveCampaigns: active,
		CallsToday:      today.Total,
		ConversionRate:  rate,
		AvailableAgents: available,
	}, nil
}

func (s *Service) CampaignStats(ctx context.Context, campaignID int64) (CampaignStats, error) {
	if _, err := s.Store.GetCampaign(ctx, campaignID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return CampaignStats{}, apperr.NotFound("Campaign not found")
		}
		return CampaignStats{}, apperr.Persistence("get campaign", err)
	}
	t, err := s.Store.CallTotals(ctx, store.CallFilter{CampaignID: campaignID})
	if err != nil {
		return CampaignStats{}, apperr.Persistence("call totals", err)
	}
	return CampaignStats{
		TotalCalls:    t.Total,
		AnsweredCalls: t.Connected,
		MissedCalls:   t.Missed,
		AvgDuration:   avg(t.TotalDuration, t.Total),
	}, nil
}

func (s *Service) AgentLeadCounters(ctx context.Context) ([]store.AgentLeadCounts, error) {
	r := s.Today()
	out, err := s.Store.AgentLeadCounts(ctx, r.From, r.To)
	if err != nil {
		return nil, apperr.Persistence("agent lead counts", err)
	}
	return out, nil
}

// AgentPerformance reports one agent's calls and activity for a local
// calendar day, optionally narrowed to a campaign.
func (s *Service) AgentPerformance(ctx context.Context, agentID int64, date string, campaignID int64) (AgentPerformance, error) {
	if agentID <= 0 || date == "" {
		return AgentPerformance{}, apperr.Validation("agentId and date are required")
	}
	day, err := s.Day(date)
	if err != nil {
		return AgentPerformance{}, err
	}
	u, err := s.Store.GetUser(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && u.Role != store.RoleAgent) {
		return AgentPerformance{}, apperr.NotFound("Agent not found")
	}
	if err != nil {
		return AgentPerformance{}, apperr.Persistence("get agent", err)
	}

	t, err := s.Store.CallTotals(ctx, store.CallFilter{From: day.From, To: day.To, UserID: agentID, CampaignID: campaignID})
	if err != nil {
		return AgentPerformance{}, apperr.Persistence("call totals", err)
	}
	logs, err := s.Store.RecentLeadLogs(ctx, agentID, recentLeadsLimit)
	if err != nil {
		return AgentPerformance{}, apperr.Persistence("recent lead logs", err)
	}
	acts, err := s.Store.CountActivities(ctx, agentID, day.From, day.To)
	if err != nil {
		return AgentPerformance{}, apperr.Persistence("count activities", err)
	}

	return AgentPerformance{
		Agent: AgentRef{ID: u.ID, Name: u.Name, Team: u.Team},
		Date:  date,
		Summary: DaySummary{
			Total:         t.Total,
			Connected:     t.Connected,
			Missed:        t.Missed,
			FirstCall:     t.FirstCall,
			LastCall:      t.LastCall,
			TotalDuration: t.TotalDuration,
			AvgDuration:   avg(t.TotalDuration, t.Total),
		},
		Activities: acts,
		Logs:       logs,
	}, nil
}

func summaryOf(t store.CallTotals) Summary {
	return Summary{
		TotalCalls:     t.Total,
		ConnectedCalls: t.Connected,
		MissedCalls:    t.Missed,
		AvgDuration:    avg(t.TotalDuration, t.Total),
	}
}

func avg(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return round2(float64(sum) / float64(n))
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
