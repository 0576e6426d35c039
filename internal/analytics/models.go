package analytics

import "time"

// Stats summarizes a workspace's dialing history for one agent-type
// partition. Minutes and credits come from the per-attempt cost model,
// not measured call durations.
type Stats struct {
	WorkspaceID string `json:"workspace_id"`
	AgentType   string `json:"agent_type,omitempty"`

	// TotalCalls counts leads with at least one attempt.
	TotalCalls   int     `json:"total_calls"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalCredits float64 `json:"total_credits"`

	// StatusHistogram counts terminal statuses (no_answer, scheduled,
	// not_interested, error). Never nil.
	StatusHistogram map[string]int `json:"status_histogram"`
}

// CostModel converts attempt counts into billed minutes and credits.
// These are policy constants, deliberately configurable so the billing
// rule can change without touching the aggregation.
type CostModel struct {
	MinutesPerAttempt float64
	CreditsPerAttempt float64
}

// DefaultCostModel mirrors the dashboard's billing policy.
func DefaultCostModel() CostModel {
	return CostModel{MinutesPerAttempt: 2, CreditsPerAttempt: 0.5}
}

// Appointment is a booked meeting surfaced on the dashboard. Bookings
// originate from the external calendar collaborator; this module only
// lists them.
type Appointment struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Title       string    `json:"title" db:"title"`
	ContactName string    `json:"contact_name,omitempty" db:"contact_name"`
	AgentType   string    `json:"agent_type" db:"agent_type"`
	Date        time.Time `json:"date" db:"date"`
}
