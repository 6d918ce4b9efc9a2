package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedCampaign(t *testing.T, m *Memory) (Campaign, []User) {
	t.Helper()
	ctx := context.Background()

	c, err := m.CreateCampaign(ctx, Campaign{Name: "Spring", Status: CampaignActive})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	var agents []User
	for _, name := range []string{"Asha", "Bilal"} {
		u, err := m.CreateUser(ctx, User{Name: name, Email: name + "@example.com", Role: RoleAgent, AcceptingCalls: true})
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		agents = append(agents, u)
	}
	if err := m.AddCampaignAgents(ctx, c.ID, []int64{agents[0].ID, agents[1].ID}); err != nil {
		t.Fatalf("link agents: %v", err)
	}
	return c, agents
}

func TestMemory_WithTransactionRollsBackOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, agents := seedCampaign(t, m)

	boom := errors.New("boom")
	err := m.WithTransaction(ctx, func(ctx context.Context, q Queries) error {
		if _, err := q.InsertLeads(ctx, []Lead{{CampaignID: c.ID, Phone: "1", AssignedAgentID: &agents[0].ID}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	leads, err := m.ListLeads(ctx, LeadFilter{CampaignID: c.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != 0 {
		t.Fatalf("expected no leads after rollback, got %d", len(leads))
	}
}

func TestMemory_WithTransactionRollsBackOnPanic(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, _ := seedCampaign(t, m)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = m.WithTransaction(ctx, func(ctx context.Context, q Queries) error {
			_ = q.SetCampaignCalled(ctx, c.ID, 42)
			panic("bad")
		})
	}()

	got, err := m.GetCampaign(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Called != 0 {
		t.Fatalf("expected called=0 after panic, got %d", got.Called)
	}
}

func TestMemory_WithTransactionCommits(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, agents := seedCampaign(t, m)

	err := m.WithTransaction(ctx, func(ctx context.Context, q Queries) error {
		n, err := q.InsertLeads(ctx, []Lead{
			{CampaignID: c.ID, Phone: "1", AssignedAgentID: &agents[0].ID},
			{CampaignID: c.ID, Phone: "2", AssignedAgentID: &agents[1].ID},
		})
		if err != nil {
			return err
		}
		if n != 2 {
			t.Fatalf("expected 2 inserted, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	leads, _ := m.ListLeads(ctx, LeadFilter{CampaignID: c.ID})
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}
	for _, l := range leads {
		if l.Status != LeadStatusNew {
			t.Fatalf("expected default status, got %q", l.Status)
		}
		if l.AgentName == "" {
			t.Fatalf("expected agent name on lead %d", l.ID)
		}
	}
}

func TestMemory_InsertLeadsRejectsUnknownCampaign(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, _ := seedCampaign(t, m)

	_, err := m.InsertLeads(ctx, []Lead{{CampaignID: c.ID, Phone: "1"}, {CampaignID: 999, Phone: "2"}})
	if !errors.Is(err, ErrReference) {
		t.Fatalf("expected ErrReference, got %v", err)
	}
	leads, _ := m.ListLeads(ctx, LeadFilter{})
	if len(leads) != 0 {
		t.Fatalf("expected no partial insert, got %d", len(leads))
	}
}

func TestMemory_DuplicateEmail(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.CreateUser(ctx, User{Name: "A", Email: "a@example.com", Role: RoleAgent}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := m.CreateUser(ctx, User{Name: "B", Email: "A@example.com", Role: RoleAgent})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestMemory_EligibleAgentsSkipsUnavailable(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, agents := seedCampaign(t, m)

	if err := m.SetAcceptingCalls(ctx, agents[1].ID, false); err != nil {
		t.Fatalf("set accepting: %v", err)
	}
	ids, err := m.EligibleAgentIDs(ctx, c.ID)
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if len(ids) != 1 || ids[0] != agents[0].ID {
		t.Fatalf("expected only %d, got %v", agents[0].ID, ids)
	}
}

func TestMemory_EligibleAgentsSkipsAdmins(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, agents := seedCampaign(t, m)

	u := agents[0]
	u.Role = RoleAdmin
	if _, err := m.UpdateUser(ctx, u); err != nil {
		t.Fatalf("promote: %v", err)
	}
	ids, err := m.EligibleAgentIDs(ctx, c.ID)
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if len(ids) != 1 || ids[0] != agents[1].ID {
		t.Fatalf("expected only %d, got %v", agents[1].ID, ids)
	}
}

func TestMemory_CountCampaignCallsOnlyCountsCallActivities(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, agents := seedCampaign(t, m)
	other, _ := m.CreateCampaign(ctx, Campaign{Name: "Other"})

	lead, err := m.CreateLead(ctx, Lead{CampaignID: c.ID, Phone: "1", AssignedAgentID: &agents[0].ID})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	otherLead, _ := m.CreateLead(ctx, Lead{CampaignID: other.ID, Phone: "2"})

	for _, a := range []Activity{
		{LeadID: lead.ID, Type: ActivityCall, Title: "Call made"},
		{LeadID: lead.ID, Type: ActivityCall, Title: "Call made"},
		{LeadID: lead.ID, Type: ActivityNote, Title: "Note"},
		{LeadID: otherLead.ID, Type: ActivityCall, Title: "Call made"},
	} {
		if _, err := m.InsertActivity(ctx, a); err != nil {
			t.Fatalf("insert activity: %v", err)
		}
	}

	n, err := m.CountCampaignCalls(ctx, c.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
}

func TestMemory_CallAggregates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, agents := seedCampaign(t, m)
	admin, _ := m.CreateUser(ctx, User{Name: "Root", Email: "root@example.com", Role: RoleAdmin})

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	stats := []CallStat{
		{UserID: agents[0].ID, CampaignID: &c.ID, Type: CallOut, Connected: true, Duration: 60, CalledAt: base},
		{UserID: agents[0].ID, CampaignID: &c.ID, Type: CallMissed, CalledAt: base.Add(time.Hour)},
		{UserID: admin.ID, Type: CallIn, Connected: true, Duration: 30, CalledAt: base.Add(2 * time.Hour)},
		{UserID: agents[0].ID, Type: CallOut, Connected: true, Duration: 10, CalledAt: base.Add(48 * time.Hour)},
	}
	for _, s := range stats {
		if _, err := m.InsertCallStat(ctx, s); err != nil {
			t.Fatalf("insert call: %v", err)
		}
	}

	day := CallFilter{From: base.Truncate(24 * time.Hour), To: base.Truncate(24 * time.Hour).Add(24 * time.Hour)}
	tot, err := m.CallTotals(ctx, day)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if tot.Total != 3 || tot.Connected != 2 || tot.Missed != 1 || tot.TotalDuration != 90 {
		t.Fatalf("unexpected totals: %+v", tot)
	}
	if tot.FirstCall == nil || !tot.FirstCall.Equal(base) {
		t.Fatalf("unexpected first call: %v", tot.FirstCall)
	}

	rows, err := m.AgentCallTotals(ctx, day)
	if err != nil {
		t.Fatalf("agent totals: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both agents including idle one, got %d", len(rows))
	}
	if rows[0].AgentID != agents[0].ID || rows[0].Total != 2 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Total != 0 || rows[1].FirstCall != nil {
		t.Fatalf("expected idle agent with zero calls, got %+v", rows[1])
	}

	buckets, err := m.CampaignCallBuckets(ctx, CallFilter{})
	if err != nil {
		t.Fatalf("buckets: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected campaign bucket and no-campaign bucket, got %d", len(buckets))
	}
	for _, b := range buckets {
		switch {
		case b.CampaignID == nil:
			if b.Total != 2 || b.Answered != 2 {
				t.Fatalf("unexpected nil bucket: %+v", b)
			}
		case *b.CampaignID == c.ID:
			if b.Total != 2 || b.Answered != 1 {
				t.Fatalf("unexpected campaign bucket: %+v", b)
			}
		default:
			t.Fatalf("unexpected bucket: %+v", b)
		}
	}
}

func TestMemory_RecentLeadLogs(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c, agents := seedCampaign(t, m)
	a := agents[0].ID

	l1, _ := m.CreateLead(ctx, Lead{CampaignID: c.ID, Name: "One", Phone: "1", AssignedAgentID: &a})
	l2, _ := m.CreateLead(ctx, Lead{CampaignID: c.ID, Name: "Two", Phone: "2", AssignedAgentID: &a})

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	_, _ = m.InsertActivity(ctx, Activity{LeadID: l1.ID, Type: ActivityCall, Title: "Call made", UserID: a, CreatedAt: at})
	_, _ = m.InsertActivity(ctx, Activity{LeadID: l1.ID, Type: ActivityNote, Title: "Left voicemail", UserID: a, CreatedAt: at.Add(time.Minute)})

	logs, err := m.RecentLeadLogs(ctx, a, 5)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].LeadID != l1.ID || logs[0].Status != "Left voicemail" {
		t.Fatalf("unexpected first log: %+v", logs[0])
	}
	if logs[1].LeadID != l2.ID || logs[1].Status != "No Activity" || logs[1].LastAt != nil {
		t.Fatalf("unexpected second log: %+v", logs[1])
	}
}
