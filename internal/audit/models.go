package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block critical flows on audit failures.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`

	// ActorUserID is the authenticated user causing the event (0 for system jobs).
	ActorUserID int64  `json:"actor_user_id,omitempty"`
	ActorRole   string `json:"actor_role,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`

	CampaignID   *int64 `json:"campaign_id,omitempty"`
	TargetUserID *int64 `json:"target_user_id,omitempty"`

	Message string `json:"message,omitempty"`
	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventUserCreated           EventType = "user_created"
	EventUserUpdated           EventType = "user_updated"
	EventCampaignCreated       EventType = "campaign_created"
	EventCampaignStatusChanged EventType = "campaign_status_changed"
	EventCampaignAgentsAdded   EventType = "campaign_agents_added"
	EventLeadsImported         EventType = "leads_imported"
	EventLiveStatsReset        EventType = "livestats_reset"
)
