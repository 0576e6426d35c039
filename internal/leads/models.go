package leads

import "time"

// Lead represents a workspace-scoped dialing prospect.
//
// Multi-tenant invariant: WorkspaceID is required on every row.
//
// Lifecycle invariants:
// - CallAttempts advances exactly once per reservation; the only
//   decrement is a scheduling pass rolling back its own reservation.
// - Status == calling means the lead occupies one concurrency slot.
// - Status is only mutated through the transition table in transitions.go.
type Lead struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// Phone is required and doubles as a secondary lookup key for
	// provider callbacks that only carry the dialed number.
	Phone   string `json:"phone" db:"phone"`
	Name    string `json:"name,omitempty" db:"name"`
	Company string `json:"company,omitempty" db:"company"`
	Email   string `json:"email,omitempty" db:"email"`

	// AgentType partitions analytics (outbound vs inbound agents).
	AgentType string `json:"agent_type" db:"agent_type"`

	Status       Status     `json:"status" db:"status"`
	CallAttempts int        `json:"call_attempts" db:"call_attempts"`
	LastCalledAt *time.Time `json:"last_called_at,omitempty" db:"last_called_at"`

	FollowUpEmailSent bool `json:"follow_up_email_sent" db:"follow_up_email_sent"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending       Status = "pending"
	StatusCalling       Status = "calling"
	StatusNoAnswer      Status = "no_answer"
	StatusScheduled     Status = "scheduled"
	StatusNotInterested Status = "not_interested"
	StatusError         Status = "error"
)

// AgentTypeOutbound is the default partition for scheduler-dialed leads.
const AgentTypeOutbound = "outbound"

// ValidStatus reports whether s belongs to the closed status set.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCalling, StatusNoAnswer, StatusScheduled, StatusNotInterested, StatusError:
		return true
	default:
		return false
	}
}
