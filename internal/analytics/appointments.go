package analytics

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryAppointments is an in-memory AppointmentsRepo for tests.
type MemoryAppointments struct {
	mu   sync.Mutex
	rows []Appointment
}

func NewMemoryAppointments() *MemoryAppointments { return &MemoryAppointments{} }

func (r *MemoryAppointments) Add(a Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, a)
}

func (r *MemoryAppointments) ListUpcoming(ctx context.Context, workspaceID, agentType string, after time.Time) ([]Appointment, error) {
	if workspaceID == "" {
		return nil, errors.New("workspace_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Appointment, 0)
	for _, a := range r.rows {
		if a.WorkspaceID != workspaceID {
			continue
		}
		if agentType != "" && a.AgentType != agentType {
			continue
		}
		if !a.Date.After(after) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// PostgresAppointments reads the appointments table written by the
// external booking collaborator.
//
// Assumed schema:
//
//	CREATE TABLE appointments (
//	    id           UUID PRIMARY KEY,
//	    workspace_id TEXT NOT NULL,
//	    title        TEXT NOT NULL DEFAULT '',
//	    contact_name TEXT NOT NULL DEFAULT '',
//	    agent_type   TEXT NOT NULL DEFAULT 'outbound',
//	    date         TIMESTAMPTZ NOT NULL
//	);
type PostgresAppointments struct {
	db *sql.DB
}

func NewPostgresAppointments(db *sql.DB) *PostgresAppointments {
	return &PostgresAppointments{db: db}
}

func (r *PostgresAppointments) ListUpcoming(ctx context.Context, workspaceID, agentType string, after time.Time) ([]Appointment, error) {
	if workspaceID == "" {
		return nil, errors.New("workspace_id required")
	}
	q := `
SELECT id, workspace_id, title, contact_name, agent_type, date
FROM appointments
WHERE workspace_id = $1 AND date > $2
`
	args := []any{workspaceID, after}
	if agentType != "" {
		q += ` AND agent_type = $3`
		args = append(args, agentType)
	}
	q += ` ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &a.Title, &a.ContactName, &a.AgentType, &a.Date); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
