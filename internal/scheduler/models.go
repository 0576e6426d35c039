package scheduler

import (
	"time"

	"dialer-platform/internal/leads"
)

// CallBatch is the set of leads reserved by one scheduling pass. It is
// ephemeral: it exists only to hand the reserved leads to the dispatch
// collaborator and is never persisted.
type CallBatch struct {
	ID          string       `json:"id"`
	WorkspaceID string       `json:"workspace_id"`
	Leads       []leads.Lead `json:"leads"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Empty reports whether the pass reserved nothing.
func (b CallBatch) Empty() bool { return len(b.Leads) == 0 }
