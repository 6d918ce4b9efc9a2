package reporting

import (
	"context"
	"testing"
	"time"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/store"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type world struct {
	st        *store.Memory
	svc       *Service
	asha      store.User
	bilal     store.User
	chen      store.User
	campaign  store.Campaign
	ashaLeads []store.Lead
}

func at(day, hour int) time.Time {
	return time.Date(2024, 5, day, hour, 0, 0, 0, ist)
}

// newWorld seeds three agents and three calls. "Today" is 2024-05-01 in IST.
func newWorld(t *testing.T) world {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	w := world{st: st}

	mustUser := func(name string, accepting bool, role string) store.User {
		u, err := st.CreateUser(ctx, store.User{Name: name, Email: name + "@example.com", Role: role, AcceptingCalls: accepting})
		if err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		return u
	}
	w.asha = mustUser("Asha", true, store.RoleAgent)
	w.bilal = mustUser("Bilal", false, store.RoleAgent)
	w.chen = mustUser("Chen", true, store.RoleAgent)
	mustUser("Root", true, store.RoleAdmin)

	var err error
	w.campaign, err = st.CreateCampaign(ctx, store.Campaign{Name: "Spring", Status: store.CampaignActive})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	if _, err := st.CreateCampaign(ctx, store.Campaign{Name: "Draft"}); err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	cid := w.campaign.ID
	calls := []store.CallStat{
		{UserID: w.asha.ID, CampaignID: &cid, Type: store.CallOut, Connected: true, Duration: 60, CalledAt: at(1, 9)},
		{UserID: w.asha.ID, CampaignID: &cid, Type: store.CallMissed, Duration: 0, CalledAt: at(0, 23)},
		{UserID: w.bilal.ID, Type: store.CallIn, Connected: true, Duration: 30, CalledAt: at(1, 8)},
	}
	for _, c := range calls {
		if _, err := st.InsertCallStat(ctx, c); err != nil {
			t.Fatalf("insert call: %v", err)
		}
	}

	for _, l := range []store.Lead{
		{CampaignID: cid, Name: "Fresh", Phone: "1", Status: store.LeadStatusNew, AssignedAgentID: &w.asha.ID, CreatedAt: at(1, 7)},
		{CampaignID: cid, Name: "Warm", Phone: "2", Status: store.LeadStatusInterested, AssignedAgentID: &w.asha.ID, CreatedAt: at(0, 12)},
	} {
		created, err := st.CreateLead(ctx, l)
		if err != nil {
			t.Fatalf("create lead: %v", err)
		}
		w.ashaLeads = append(w.ashaLeads, created)
	}
	if _, err := st.InsertActivity(ctx, store.Activity{LeadID: w.ashaLeads[1].ID, Type: store.ActivityCall, Title: "Call made", UserID: w.asha.ID, CreatedAt: at(1, 9)}); err != nil {
		t.Fatalf("insert activity: %v", err)
	}

	w.svc = NewService(st, ist)
	w.svc.Now = func() time.Time { return at(1, 10) }
	return w
}

func TestToday_UsesConfiguredZone(t *testing.T) {
	w := newWorld(t)
	r := w.svc.Today()
	if !r.From.Equal(time.Date(2024, 4, 30, 18, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", r.From.UTC())
	}
	if r.To.Sub(r.From) != 24*time.Hour {
		t.Fatalf("expected a 24h window, got %v", r.To.Sub(r.From))
	}
}

func TestSummary(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	all, err := w.svc.Summary(ctx, ScopeAll)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if all != (Summary{TotalCalls: 3, ConnectedCalls: 2, MissedCalls: 1, AvgDuration: 30}) {
		t.Fatalf("unexpected summary: %+v", all)
	}

	today, err := w.svc.Summary(ctx, ScopeToday)
	if err != nil {
		t.Fatalf("Summary today: %v", err)
	}
	if today != (Summary{TotalCalls: 2, ConnectedCalls: 2, MissedCalls: 0, AvgDuration: 45}) {
		t.Fatalf("unexpected today summary: %+v", today)
	}

	empty, err := NewService(store.NewMemory(), nil).Summary(ctx, ScopeAll)
	if err != nil {
		t.Fatalf("Summary empty: %v", err)
	}
	if empty != (Summary{}) {
		t.Fatalf("empty store should yield zeros, got %+v", empty)
	}
}

func TestAgentRollup_IncludesIdleAgents(t *testing.T) {
	w := newWorld(t)
	rows, err := w.svc.AgentRollup(context.Background(), ScopeAll)
	if err != nil {
		t.Fatalf("AgentRollup: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(rows))
	}
	want := []AgentSummary{
		{ID: w.asha.ID, Name: "Asha", Status: AgentActive, Summary: Summary{TotalCalls: 2, ConnectedCalls: 1, MissedCalls: 1, AvgDuration: 30}},
		{ID: w.bilal.ID, Name: "Bilal", Status: AgentInactive, Summary: Summary{TotalCalls: 1, ConnectedCalls: 1, AvgDuration: 30}},
		{ID: w.chen.ID, Name: "Chen", Status: AgentActive},
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d: want %+v, got %+v", i, want[i], rows[i])
		}
	}
}

func TestConversionRate(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	rate, err := w.svc.ConversionRate(ctx, ScopeAll)
	if err != nil {
		t.Fatalf("ConversionRate: %v", err)
	}
	if rate != 66.67 {
		t.Fatalf("expected 66.67, got %v", rate)
	}

	rate, err = w.svc.ConversionRate(ctx, ScopeToday)
	if err != nil {
		t.Fatalf("ConversionRate today: %v", err)
	}
	if rate != 100 {
		t.Fatalf("expected 100, got %v", rate)
	}

	rate, err = NewService(store.NewMemory(), nil).ConversionRate(ctx, ScopeAll)
	if err != nil || rate != 0 {
		t.Fatalf("expected 0 with no calls, got %v (%v)", rate, err)
	}
}

func TestDashboardStats(t *testing.T) {
	w := newWorld(t)
	got, err := w.svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	want := DashboardStats{ActiveCampaigns: 1, CallsToday: 2, ConversionRate: 66.67, AvailableAgents: 2}
	if got != want {
		t.Fatalf("want %+v, got %+v", want, got)
	}
}

func TestCampaignStats(t *testing.T) {
	w := newWorld(t)
	got, err := w.svc.CampaignStats(context.Background(), w.campaign.ID)
	if err != nil {
		t.Fatalf("CampaignStats: %v", err)
	}
	if got != (CampaignStats{TotalCalls: 2, AnsweredCalls: 1, MissedCalls: 1, AvgDuration: 30}) {
		t.Fatalf("unexpected stats: %+v", got)
	}
	if _, err := w.svc.CampaignStats(context.Background(), 404); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAgentLeadCounters(t *testing.T) {
	w := newWorld(t)
	rows, err := w.svc.AgentLeadCounters(context.Background())
	if err != nil {
		t.Fatalf("AgentLeadCounters: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(rows))
	}
	a := rows[0]
	if a.AgentID != w.asha.ID || a.Total != 2 || a.Fresh != 1 || a.Interested != 1 || a.Contacted != 1 || a.Today != 1 {
		t.Fatalf("unexpected counters: %+v", a)
	}
}

func TestAgentPerformance(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	got, err := w.svc.AgentPerformance(ctx, w.asha.ID, "2024-05-01", 0)
	if err != nil {
		t.Fatalf("AgentPerformance: %v", err)
	}
	if got.Summary.Total != 1 || got.Summary.Connected != 1 || got.Summary.AvgDuration != 60 {
		t.Fatalf("unexpected summary: %+v", got.Summary)
	}
	if got.Summary.FirstCall == nil || !got.Summary.FirstCall.Equal(at(1, 9)) {
		t.Fatalf("unexpected first call: %v", got.Summary.FirstCall)
	}
	if got.Activities != 1 {
		t.Fatalf("expected 1 activity, got %d", got.Activities)
	}
	if len(got.Logs) != 2 || got.Logs[0].Status != "Call made" || got.Logs[1].Status != "No Activity" {
		t.Fatalf("unexpected logs: %+v", got.Logs)
	}

	prev, err := w.svc.AgentPerformance(ctx, w.asha.ID, "2024-04-30", w.campaign.ID)
	if err != nil {
		t.Fatalf("AgentPerformance previous day: %v", err)
	}
	if prev.Summary.Total != 1 || prev.Summary.Missed != 1 {
		t.Fatalf("unexpected previous day: %+v", prev.Summary)
	}
}

func TestAgentPerformance_Errors(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.svc.AgentPerformance(ctx, 4, "2024-05-01", 0); apperr.MessageOf(err) != "Agent not found" {
		t.Fatalf("admin id should not be an agent, got %v", err)
	}
	if _, err := w.svc.AgentPerformance(ctx, w.asha.ID, "01/05/2024", 0); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := w.svc.AgentPerformance(ctx, w.asha.ID, "", 0); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
