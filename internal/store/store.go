package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrReference is returned when a write points at a row that does not exist.
	ErrReference = errors.New("store: invalid reference")
)

// TxFunc is the unit of work run by Store.WithTransaction.
type TxFunc func(ctx context.Context, q Queries) error

// Store is the persistence gateway.
//
// Plain reads go through the embedded Queries and run on the pool.
// Multi-statement writes go through WithTransaction: the transaction commits
// when fn returns nil and rolls back on error or panic. The connection is
// released on every exit path.
type Store interface {
	Queries
	WithTransaction(ctx context.Context, fn TxFunc) error
}

// Queries is the full query surface, usable both on the pool and inside a
// transaction.
type Queries interface {
	// users
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]User, error)
	UpdateUser(ctx context.Context, u User) (User, error)
	SetAcceptingCalls(ctx context.Context, id int64, accepting bool) error
	CountAvailableAgents(ctx context.Context) (int, error)

	// campaigns
	CreateCampaign(ctx context.Context, c Campaign) (Campaign, error)
	GetCampaign(ctx context.Context, id int64) (Campaign, error)
	ListCampaigns(ctx context.Context, f CampaignFilter) ([]Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id int64, status string) error
	AddCampaignAgents(ctx context.Context, campaignID int64, agentIDs []int64) error
	AddCampaignTags(ctx context.Context, campaignID int64, tags []string) error
	ListCampaignAgents(ctx context.Context, campaignID int64) ([]User, error)
	ListCampaignTags(ctx context.Context, campaignID int64) ([]string, error)
	EligibleAgentIDs(ctx context.Context, campaignID int64) ([]int64, error)
	IsCampaignAgent(ctx context.Context, campaignID, agentID int64) (bool, error)
	CountCampaigns(ctx context.Context, status string) (int, error)
	ListCampaignIDs(ctx context.Context) ([]int64, error)
	CountCampaignCalls(ctx context.Context, campaignID int64) (int, error)
	SetCampaignCalled(ctx context.Context, campaignID int64, called int) error

	// leads
	InsertLeads(ctx context.Context, leads []Lead) (int, error)
	CreateLead(ctx context.Context, l Lead) (Lead, error)
	GetLead(ctx context.Context, id int64) (Lead, error)
	ListLeads(ctx context.Context, f LeadFilter) ([]Lead, error)
	UpdateLeadStatus(ctx context.Context, id int64, status, lastActivity string, at time.Time) error
	TouchLead(ctx context.Context, id int64, lastActivity string, at time.Time) error
	AgentLeadCounts(ctx context.Context, todayFrom, todayTo time.Time) ([]AgentLeadCounts, error)
	RecentLeadLogs(ctx context.Context, agentID int64, limit int) ([]LeadLog, error)

	// lead activities
	InsertActivity(ctx context.Context, a Activity) (Activity, error)
	ListActivities(ctx context.Context, leadID int64) ([]Activity, error)
	CountActivities(ctx context.Context, userID int64, from, to time.Time) (int, error)

	// call stats
	InsertCallStat(ctx context.Context, c CallStat) (CallStat, error)
	CallTotals(ctx context.Context, f CallFilter) (CallTotals, error)
	AgentCallTotals(ctx context.Context, f CallFilter) ([]AgentCallTotals, error)
	CampaignCallBuckets(ctx context.Context, f CallFilter) ([]CampaignBucket, error)

	// message templates
	CreateTemplate(ctx context.Context, t Template) (Template, error)
	GetTemplate(ctx context.Context, id int64) (Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
}

type UserFilter struct {
	Role string
	// Accepting filters on accepting_calls when non-nil.
	Accepting *bool
}

type CampaignFilter struct {
	// AgentID restricts the list to campaigns the agent is linked to.
	AgentID int64
}

type LeadFilter struct {
	CampaignID int64
	AgentID    int64
	Status     string
}

// CallFilter narrows call stat aggregates. Zero values mean "no bound".
// The time window is half-open: From <= called_at < To.
type CallFilter struct {
	From       time.Time
	To         time.Time
	UserID     int64
	CampaignID int64
}

func (f CallFilter) match(c CallStat) bool {
	if !f.From.IsZero() && c.CalledAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !c.CalledAt.Before(f.To) {
		return false
	}
	if f.UserID != 0 && c.UserID != f.UserID {
		return false
	}
	if f.CampaignID != 0 && (c.CampaignID == nil || *c.CampaignID != f.CampaignID) {
		return false
	}
	return true
}
