package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists dial events in the dial_events table.
//
// Assumed schema:
//
//	CREATE TABLE dial_events (
//	    id           UUID PRIMARY KEY,
//	    workspace_id TEXT NOT NULL,
//	    type         TEXT NOT NULL,
//	    lead_id      TEXT NOT NULL DEFAULT '',
//	    batch_id     TEXT NOT NULL DEFAULT '',
//	    attempt      INT NOT NULL DEFAULT 0,
//	    outcome      TEXT NOT NULL DEFAULT '',
//	    message      TEXT NOT NULL DEFAULT '',
//	    metadata     JSONB,
//	    created_at   TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX dial_events_ws_lead_idx ON dial_events (workspace_id, lead_id, created_at);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	var metadata any
	if e.Metadata != "" {
		metadata = e.Metadata
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO dial_events (id, workspace_id, type, lead_id, batch_id, attempt, outcome, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, e.ID, e.WorkspaceID, string(e.Type), e.LeadID, e.BatchID, e.Attempt, e.Outcome, e.Message, metadata, e.CreatedAt)
	return err
}
