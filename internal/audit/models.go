package audit

import "time"

// Event is an immutable, append-only dial log record. The scheduler and
// tracker append one event per reservation and per recorded outcome, so
// every dispatch attempt stays reconstructable even when the
// soft-failure requeue policy rewrites the lead back to pending.
//
// Invariants:
// - Events are never updated or deleted.
// - workspace_id is required for tenancy isolation.
// - Appends are best-effort; do not block dialing flows on log failures.
//
// Storage recommendation (Postgres):
// - Table dial_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Event struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// Type indicates the business category of the log record.
	Type EventType `json:"type" db:"type"`

	// LeadID is the lead this event concerns.
	LeadID string `json:"lead_id" db:"lead_id"`
	// BatchID groups reservation events from one scheduling pass.
	BatchID string `json:"batch_id,omitempty" db:"batch_id"`
	// Attempt is the lead's attempt counter after the event.
	Attempt int `json:"attempt,omitempty" db:"attempt"`
	// Outcome carries the recorded call outcome for outcome events.
	Outcome string `json:"outcome,omitempty" db:"outcome"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeReservation EventType = "reservation"
	EventTypeOutcome     EventType = "outcome"
	EventTypeRequeue     EventType = "requeue"
)
