package reporting

import "time"

// Scope narrows call aggregates in time.
type Scope string

const (
	ScopeAll   Scope = ""
	ScopeToday Scope = "today"
)

func ParseScope(s string) (Scope, bool) {
	switch Scope(s) {
	case ScopeAll, "all":
		return ScopeAll, true
	case ScopeToday:
		return ScopeToday, true
	}
	return ScopeAll, false
}

// TimeRange is half-open: From <= t < To.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type Summary struct {
	TotalCalls     int     `json:"totalCalls"`
	ConnectedCalls int     `json:"connectedCalls"`
	MissedCalls    int     `json:"missedCalls"`
	AvgDuration    float64 `json:"avgDuration"`
}

// AgentSummary is one row of the per-agent rollup. Agents without calls
// are included with zeros.
type AgentSummary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Summary
}

const (
	AgentActive   = "Active"
	AgentInactive = "Inactive"
)

type CallSummary struct {
	Summary
	Agents []AgentSummary `json:"agents"`
}

type DashboardStats struct {
	ActiveCampaigns int     `json:"active_campaigns"`
	CallsToday      int     `json:"calls_today"`
	ConversionRate  float64 `json:"conversion_rate"`
	AvailableAgents int     `json:"available_agents"`
}

type CampaignStats struct {
	TotalCalls    int     `json:"total_calls"`
	AnsweredCalls int     `json:"answered_calls"`
	MissedCalls   int     `json:"missed_calls"`
	AvgDuration   float64 `json:"avg_duration"`
}

type AgentRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
}

type DaySummary struct {
	Total         int        `json:"total"`
	Connected     int        `json:"connected"`
	Missed        int        `json:"missed"`
	FirstCall     *time.Time `json:"firstCall"`
	LastCall      *time.Time `json:"lastCall"`
	TotalDuration int        `json:"totalDuration"`
	AvgDuration   float64    `json:"avgDuration"`
}

type AgentPerformance struct {
	Agent      AgentRef   `json:"agent"`
	Date       string     `json:"date"`
	Summary    DaySummary `json:"summary"`
	Activities int        `json:"activities"`
	Logs       []LeadLog  `json:"logs"`
}
