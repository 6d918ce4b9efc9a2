package store

import "time"

// Roles stored on users.role.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// Campaign statuses. Transitions are free-form writes.
const (
	CampaignDraft     = "draft"
	CampaignActive    = "active"
	CampaignCompleted = "completed"
)

// Lead statuses.
const (
	LeadStatusNew        = "New Lead"
	LeadStatusInterested = "Interested"
	LeadStatusCallBack   = "Call Back"
	LeadStatusConverted  = "Converted"
)

// Lead activity types.
const (
	ActivityCall   = "call"
	ActivityEmail  = "email"
	ActivityNote   = "note"
	ActivityStatus = "status"
)

// Call stat types.
const (
	CallIn     = "in"
	CallOut    = "out"
	CallMissed = "missed"
)

func ValidCampaignStatus(s string) bool {
	return s == CampaignDraft || s == CampaignActive || s == CampaignCompleted
}

func ValidLeadStatus(s string) bool {
	switch s {
	case LeadStatusNew, LeadStatusInterested, LeadStatusCallBack, LeadStatusConverted:
		return true
	}
	return false
}

func ValidActivityType(s string) bool {
	switch s {
	case ActivityCall, ActivityEmail, ActivityNote, ActivityStatus:
		return true
	}
	return false
}

func ValidCallType(s string) bool {
	return s == CallIn || s == CallOut || s == CallMissed
}

type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Phone          string    `json:"phone"`
	Team           string    `json:"team"`
	Role           string    `json:"role"`
	AcceptingCalls bool      `json:"accepting_calls"`
	CreatedAt      time.Time `json:"created_at"`
}

// Campaign.Called is a cache of the campaign's call-type lead activities.
// It is only ever overwritten with a full recount.
type Campaign struct {
	ID           int64      `json:"id"`
	Name         string     `json:"campaign_name"`
	Description  string     `json:"description"`
	Demographics string     `json:"demographics"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Status       string     `json:"status"`
	Called       int        `json:"called"`
	AgentCount   int        `json:"agent_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Lead struct {
	ID              int64     `json:"id"`
	CampaignID      int64     `json:"campaign_id"`
	Name            string    `json:"name"`
	Company         string    `json:"company"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Status          string    `json:"status"`
	AssignedAgentID *int64    `json:"assigned_agent_id"`
	AgentName       string    `json:"telecaller,omitempty"`
	LastActivity    string    `json:"last_activity"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Activity is an append-only lead activity log entry.
type Activity struct {
	ID          int64     `json:"id"`
	LeadID      int64     `json:"lead_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CallStat is an append-only record of one phone call outcome.
type CallStat struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	CampaignID *int64    `json:"campaign_id"`
	Type       string    `json:"type"`
	Connected  bool      `json:"connected"`
	Duration   int       `json:"duration"`
	CalledAt   time.Time `json:"timestamp"`
}

type Template struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Variables []string  `json:"variables"`
	CreatedAt time.Time `json:"created_at"`
}

// CallTotals is the raw aggregate over a set of call stats. Averages and
// rates are derived by the reporting layer.
type CallTotals struct {
	Total         int        `json:"total"`
	Connected     int        `json:"connected"`
	Missed        int        `json:"missed"`
	TotalDuration int        `json:"total_duration"`
	FirstCall     *time.Time `json:"first_call,omitempty"`
	LastCall      *time.Time `json:"last_call,omitempty"`
}

type AgentCallTotals struct {
	AgentID        int64  `json:"id"`
	Name           string `json:"name"`
	AcceptingCalls bool   `json:"accepting_calls"`
	CallTotals
}

// CampaignBucket holds per-campaign call counts. A nil CampaignID is the
// bucket of calls not attached to any campaign.
type CampaignBucket struct {
	CampaignID *int64
	Total      int
	Answered   int
}

type AgentLeadCounts struct {
	AgentID    int64  `json:"agent_id"`
	Name       string `json:"name"`
	Total      int    `json:"total"`
	Interested int    `json:"interested"`
	Fresh      int    `json:"fresh"`
	CallBack   int    `json:"call_back"`
	Converted  int    `json:"converted"`
	Contacted  int    `json:"contacted"`
	Today      int    `json:"today"`
}

// LeadLog is a lead with the latest activity an agent recorded on it.
type LeadLog struct {
	LeadID  int64      `json:"lead_id"`
	Name    string     `json:"name"`
	Company string     `json:"company"`
	Phone   string     `json:"phone"`
	LastAt  *time.Time `json:"time,omitempty"`
	Status  string     `json:"status"`
}
