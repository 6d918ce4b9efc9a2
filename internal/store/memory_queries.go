package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"
)

// users

func (s *memState) userIndex(id int64) int {
	return slices.IndexFunc(s.users, func(u User) bool { return u.ID == id })
}

func (s *memState) emailTaken(email string, except int64) bool {
	return slices.ContainsFunc(s.users, func(u User) bool {
		return u.ID != except && strings.EqualFold(u.Email, email)
	})
}

func (s *memState) CreateUser(_ context.Context, u User) (User, error) {
	defer s.lock()()
	if s.emailTaken(u.Email, 0) {
		return User{}, ErrDuplicate
	}
	s.seq.user++
	u.ID = s.seq.user
	u.CreatedAt = s.stamp(u.CreatedAt)
	s.users = append(s.users, u)
	return u, nil
}

func (s *memState) GetUser(_ context.Context, id int64) (User, error) {
	defer s.lock()()
	i := s.userIndex(id)
	if i < 0 {
		return User{}, ErrNotFound
	}
	return s.users[i], nil
}

func (s *memState) GetUserByEmail(_ context.Context, email string) (User, error) {
	defer s.lock()()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *memState) ListUsers(_ context.Context, f UserFilter) ([]User, error) {
	defer s.lock()()
	out := make([]User, 0)
	for _, u := range s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Accepting != nil && u.AcceptingCalls != *f.Accepting {
			continue
		}
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b User) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *memState) UpdateUser(_ context.Context, u User) (User, error) {
	defer s.lock()()
	i := s.userIndex(u.ID)
	if i < 0 {
		return User{}, ErrNotFound
	}
	if s.emailTaken(u.Email, u.ID) {
		return User{}, ErrDuplicate
	}
	u.CreatedAt = s.users[i].CreatedAt
	s.users[i] = u
	return u, nil
}

func (s *memState) SetAcceptingCalls(_ context.Context, id int64, accepting bool) error {
	defer s.lock()()
	i := s.userIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	s.users[i].AcceptingCalls = accepting
	return nil
}

func (s *memState) CountAvailableAgents(_ context.Context) (int, error) {
	defer s.lock()()
	n := 0
	for _, u := range s.users {
		if u.Role == RoleAgent && u.AcceptingCalls {
			n++
		}
	}
	return n, nil
}

// campaigns

func (s *memState) campaignIndex(id int64) int {
	return slices.IndexFunc(s.campaigns, func(c Campaign) bool { return c.ID == id })
}

func (s *memState) agentCount(campaignID int64) int {
	n := 0
	for _, l := range s.agents {
		if l.campaignID == campaignID {
			n++
		}
	}
	return n
}

func (s *memState) linked(campaignID, agentID int64) bool {
	return slices.Contains(s.agents, campaignAgent{campaignID: campaignID, agentID: agentID})
}

func (s *memState) CreateCampaign(_ context.Context, c Campaign) (Campaign, error) {
	defer s.lock()()
	s.seq.campaign++
	c.ID = s.seq.campaign
	if c.Status == "" {
		c.Status = CampaignDraft
	}
	c.Called = 0
	c.AgentCount = 0
	c.CreatedAt = s.stamp(c.CreatedAt)
	s.campaigns = append(s.campaigns, c)
	return c, nil
}

func (s *memState) GetCampaign(_ context.Context, id int64) (Campaign, error) {
	defer s.lock()()
	i := s.campaignIndex(id)
	if i < 0 {
		return Campaign{}, ErrNotFound
	}
	c := s.campaigns[i]
	c.AgentCount = s.agentCount(id)
	return c, nil
}

func (s *memState) ListCampaigns(_ context.Context, f CampaignFilter) ([]Campaign, error) {
	defer s.lock()()
	out := make([]Campaign, 0)
	for _, c := range s.campaigns {
		if f.AgentID != 0 && !s.linked(c.ID, f.AgentID) {
			continue
		}
		c.AgentCount = s.agentCount(c.ID)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Campaign) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (s *memState) UpdateCampaignStatus(_ context.Context, id int64, status string) error {
	defer s.lock()()
	i := s.campaignIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	s.campaigns[i].Status = status
	return nil
}

func (s *memState) AddCampaignAgents(_ context.Context, campaignID int64, agentIDs []int64) error {
	defer s.lock()()
	if len(agentIDs) > 0 && s.campaignIndex(campaignID) < 0 {
		return ErrReference
	}
	for _, id := range agentIDs {
		if s.userIndex(id) < 0 {
			return ErrReference
		}
	}
	for _, id := range agentIDs {
		if !s.linked(campaignID, id) {
			s.agents = append(s.agents, campaignAgent{campaignID: campaignID, agentID: id})
		}
	}
	return nil
}

func (s *memState) AddCampaignTags(_ context.Context, campaignID int64, tags []string) error {
	defer s.lock()()
	if len(tags) > 0 && s.campaignIndex(campaignID) < 0 {
		return ErrReference
	}
	for _, t := range tags {
		ct := campaignTag{campaignID: campaignID, tag: t}
		if !slices.Contains(s.tags, ct) {
			s.tags = append(s.tags, ct)
		}
	}
	return nil
}

func (s *memState) ListCampaignAgents(_ context.Context, campaignID int64) ([]User, error) {
	defer s.lock()()
	out := make([]User, 0)
	for _, u := range s.users {
		if s.linked(campaignID, u.ID) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *memState) ListCampaignTags(_ context.Context, campaignID int64) ([]string, error) {
	defer s.lock()()
	out := make([]string, 0)
	for _, t := range s.tags {
		if t.campaignID == campaignID {
			out = append(out, t.tag)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *memState) EligibleAgentIDs(_ context.Context, campaignID int64) ([]int64, error) {
	defer s.lock()()
	out := make([]int64, 0)
	for _, u := range s.users {
		if u.Role == RoleAgent && u.AcceptingCalls && s.linked(campaignID, u.ID) {
			out = append(out, u.ID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *memState) IsCampaignAgent(_ context.Context, campaignID, agentID int64) (bool, error) {
	defer s.lock()()
	return s.linked(campaignID, agentID), nil
}

func (s *memState) CountCampaigns(_ context.Context, status string) (int, error) {
	defer s.lock()()
	n := 0
	for _, c := range s.campaigns {
		if status == "" || c.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *memState) ListCampaignIDs(_ context.Context) ([]int64, error) {
	defer s.lock()()
	out := make([]int64, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, c.ID)
	}
	slices.Sort(out)
	return out, nil
}

func (s *memState) CountCampaignCalls(_ context.Context, campaignID int64) (int, error) {
	defer s.lock()()
	n := 0
	for _, a := range s.activities {
		if a.Type != ActivityCall {
			continue
		}
		if i := s.leadIndex(a.LeadID); i >= 0 && s.leads[i].CampaignID == campaignID {
			n++
		}
	}
	return n, nil
}

func (s *memState) SetCampaignCalled(_ context.Context, campaignID int64, called int) error {
	defer s.lock()()
	i := s.campaignIndex(campaignID)
	if i < 0 {
		return ErrNotFound
	}
	s.campaigns[i].Called = called
	return nil
}

// leads

func (s *memState) leadIndex(id int64) int {
	return slices.IndexFunc(s.leads, func(l Lead) bool { return l.ID == id })
}

func (s *memState) checkLeadRefs(l Lead) error {
	if s.campaignIndex(l.CampaignID) < 0 {
		return ErrReference
	}
	if l.AssignedAgentID != nil && s.userIndex(*l.AssignedAgentID) < 0 {
		return ErrReference
	}
	return nil
}

func (s *memState) insertLead(l Lead) Lead {
	s.seq.lead++
	l.ID = s.seq.lead
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	l.CreatedAt = s.stamp(l.CreatedAt)
	l.UpdatedAt = s.stamp(l.UpdatedAt)
	l.AgentName = ""
	s.leads = append(s.leads, l)
	return l
}

func (s *memState) withAgentName(l Lead) Lead {
	if l.AssignedAgentID != nil {
		if i := s.userIndex(*l.AssignedAgentID); i >= 0 {
			l.AgentName = s.users[i].Name
		}
	}
	return l
}

// InsertLeads validates every row before writing any, like a single
// multi-row INSERT would.
func (s *memState) InsertLeads(_ context.Context, leads []Lead) (int, error) {
	defer s.lock()()
	for _, l := range leads {
		if err := s.checkLeadRefs(l); err != nil {
			return 0, err
		}
	}
	for _, l := range leads {
		s.insertLead(l)
	}
	return len(leads), nil
}

func (s *memState) CreateLead(_ context.Context, l Lead) (Lead, error) {
	defer s.lock()()
	if err := s.checkLeadRefs(l); err != nil {
		return Lead{}, err
	}
	return s.withAgentName(s.insertLead(l)), nil
}

func (s *memState) GetLead(_ context.Context, id int64) (Lead, error) {
	defer s.lock()()
	i := s.leadIndex(id)
	if i < 0 {
		return Lead{}, ErrNotFound
	}
	return s.withAgentName(s.leads[i]), nil
}

func (s *memState) ListLeads(_ context.Context, f LeadFilter) ([]Lead, error) {
	defer s.lock()()
	out := make([]Lead, 0)
	for _, l := range s.leads {
		if f.CampaignID != 0 && l.CampaignID != f.CampaignID {
			continue
		}
		if f.AgentID != 0 && (l.AssignedAgentID == nil || *l.AssignedAgentID != f.AgentID) {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		out = append(out, s.withAgentName(l))
	}
	slices.SortFunc(out, func(a, b Lead) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (s *memState) UpdateLeadStatus(_ context.Context, id int64, status, lastActivity string, at time.Time) error {
	defer s.lock()()
	i := s.leadIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	s.leads[i].Status = status
	s.leads[i].LastActivity = lastActivity
	s.leads[i].UpdatedAt = at
	return nil
}

func (s *memState) TouchLead(_ context.Context, id int64, lastActivity string, at time.Time) error {
	defer s.lock()()
	i := s.leadIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	s.leads[i].LastActivity = lastActivity
	s.leads[i].UpdatedAt = at
	return nil
}

func (s *memState) AgentLeadCounts(_ context.Context, todayFrom, todayTo time.Time) ([]AgentLeadCounts, error) {
	defer s.lock()()
	out := make([]AgentLeadCounts, 0)
	for _, u := range s.users {
		if u.Role != RoleAgent {
			continue
		}
		c := AgentLeadCounts{AgentID: u.ID, Name: u.Name}
		for _, l := range s.leads {
			if l.AssignedAgentID == nil || *l.AssignedAgentID != u.ID {
				continue
			}
			c.Total++
			switch l.Status {
			case LeadStatusInterested:
				c.Interested++
			case LeadStatusNew:
				c.Fresh++
			case LeadStatusCallBack:
				c.CallBack++
			case LeadStatusConverted:
				c.Converted++
			}
			if l.Status != LeadStatusNew {
				c.Contacted++
			}
			if !l.CreatedAt.Before(todayFrom) && l.CreatedAt.Before(todayTo) {
				c.Today++
			}
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b AgentLeadCounts) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.AgentID, b.AgentID))
	})
	return out, nil
}

func (s *memState) RecentLeadLogs(_ context.Context, agentID int64, limit int) ([]LeadLog, error) {
	defer s.lock()()
	out := make([]LeadLog, 0)
	for _, l := range s.leads {
		if l.AssignedAgentID == nil || *l.AssignedAgentID != agentID {
			continue
		}
		lg := LeadLog{LeadID: l.ID, Name: l.Name, Company: l.Company, Phone: l.Phone, Status: "No Activity"}
		var latest *Activity
		for i := range s.activities {
			a := &s.activities[i]
			if a.LeadID != l.ID || a.UserID != agentID {
				continue
			}
			if latest == nil || a.CreatedAt.After(latest.CreatedAt) ||
				(a.CreatedAt.Equal(latest.CreatedAt) && a.ID > latest.ID) {
				latest = a
			}
		}
		if latest != nil {
			at := latest.CreatedAt
			lg.LastAt = &at
			lg.Status = latest.Title
		}
		out = append(out, lg)
	}
	// Most recent activity first; leads never touched go last.
	slices.SortFunc(out, func(a, b LeadLog) int {
		switch {
		case a.LastAt == nil && b.LastAt == nil:
			return cmp.Compare(b.LeadID, a.LeadID)
		case a.LastAt == nil:
			return 1
		case b.LastAt == nil:
			return -1
		}
		return cmp.Or(b.LastAt.Compare(*a.LastAt), cmp.Compare(b.LeadID, a.LeadID))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// lead activities

func (s *memState) InsertActivity(_ context.Context, a Activity) (Activity, error) {
	defer s.lock()()
	if s.leadIndex(a.LeadID) < 0 {
		return Activity{}, ErrReference
	}
	if a.UserID != 0 && s.userIndex(a.UserID) < 0 {
		return Activity{}, ErrReference
	}
	s.seq.activity++
	a.ID = s.seq.activity
	a.CreatedAt = s.stamp(a.CreatedAt)
	a.UserName = ""
	s.activities = append(s.activities, a)
	return a, nil
}

func (s *memState) ListActivities(_ context.Context, leadID int64) ([]Activity, error) {
	defer s.lock()()
	out := make([]Activity, 0)
	for _, a := range s.activities {
		if a.LeadID != leadID {
			continue
		}
		if i := s.userIndex(a.UserID); i >= 0 {
			a.UserName = s.users[i].Name
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Activity) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (s *memState) CountActivities(_ context.Context, userID int64, from, to time.Time) (int, error) {
	defer s.lock()()
	n := 0
	for _, a := range s.activities {
		if a.UserID == userID && !a.CreatedAt.Before(from) && a.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

// call stats

func (s *memState) InsertCallStat(_ context.Context, c CallStat) (CallStat, error) {
	defer s.lock()()
	if s.userIndex(c.UserID) < 0 {
		return CallStat{}, ErrReference
	}
	if c.CampaignID != nil && s.campaignIndex(*c.CampaignID) < 0 {
		return CallStat{}, ErrReference
	}
	s.seq.call++
	c.ID = s.seq.call
	c.CalledAt = s.stamp(c.CalledAt)
	s.calls = append(s.calls, c)
	return c, nil
}

func (t *CallTotals) add(c CallStat) {
	t.Total++
	if c.Connected {
		t.Connected++
	}
	if c.Type == CallMissed {
		t.Missed++
	}
	t.TotalDuration += c.Duration
	at := c.CalledAt
	if t.FirstCall == nil || at.Before(*t.FirstCall) {
		t.FirstCall = &at
	}
	if t.LastCall == nil || at.After(*t.LastCall) {
		t.LastCall = &at
	}
}

func (s *memState) CallTotals(_ context.Context, f CallFilter) (CallTotals, error) {
	defer s.lock()()
	var t CallTotals
	for _, c := range s.calls {
		if f.match(c) {
			t.add(c)
		}
	}
	return t, nil
}

func (s *memState) AgentCallTotals(_ context.Context, f CallFilter) ([]AgentCallTotals, error) {
	defer s.lock()()
	userID := f.UserID
	f.UserID = 0

	out := make([]AgentCallTotals, 0)
	for _, u := range s.users {
		if u.Role != RoleAgent || (userID != 0 && u.ID != userID) {
			continue
		}
		r := AgentCallTotals{AgentID: u.ID, Name: u.Name, AcceptingCalls: u.AcceptingCalls}
		for _, c := range s.calls {
			if c.UserID == u.ID && f.match(c) {
				r.add(c)
			}
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b AgentCallTotals) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.AgentID, b.AgentID))
	})
	return out, nil
}

func (s *memState) CampaignCallBuckets(_ context.Context, f CallFilter) ([]CampaignBucket, error) {
	defer s.lock()()
	out := make([]CampaignBucket, 0)
	index := map[int64]int{}
	none := -1
	for _, c := range s.calls {
		if !f.match(c) {
			continue
		}
		var i int
		var ok bool
		if c.CampaignID == nil {
			i, ok = none, none >= 0
			if !ok {
				none = len(out)
				i = none
			}
		} else {
			i, ok = index[*c.CampaignID]
			if !ok {
				i = len(out)
				index[*c.CampaignID] = i
			}
		}
		if !ok {
			out = append(out, CampaignBucket{CampaignID: c.CampaignID})
		}
		out[i].Total++
		if c.Connected {
			out[i].Answered++
		}
	}
	return out, nil
}

// message templates

func (s *memState) CreateTemplate(_ context.Context, t Template) (Template, error) {
	defer s.lock()()
	s.seq.template++
	t.ID = s.seq.template
	if t.Variables == nil {
		t.Variables = []string{}
	}
	t.CreatedAt = s.stamp(t.CreatedAt)
	s.templates = append(s.templates, t)
	return t, nil
}

func (s *memState) GetTemplate(_ context.Context, id int64) (Template, error) {
	defer s.lock()()
	for _, t := range s.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, ErrNotFound
}

func (s *memState) ListTemplates(_ context.Context) ([]Template, error) {
	defer s.lock()()
	out := slices.Clone(s.templates)
	if out == nil {
		out = []Template{}
	}
	slices.SortFunc(out, func(a, b Template) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)
