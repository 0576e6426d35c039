package leads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PostgresStore implements Store on top of a single `leads` table.
//
// Assumed schema:
//
//	CREATE TABLE leads (
//	    id                   UUID PRIMARY KEY,
//	    workspace_id         TEXT NOT NULL,
//	    phone                TEXT NOT NULL,
//	    name                 TEXT NOT NULL DEFAULT '',
//	    company              TEXT NOT NULL DEFAULT '',
//	    email                TEXT NOT NULL DEFAULT '',
//	    agent_type           TEXT NOT NULL DEFAULT 'outbound',
//	    status               TEXT NOT NULL,
//	    call_attempts        INT  NOT NULL DEFAULT 0,
//	    last_called_at       TIMESTAMPTZ,
//	    follow_up_email_sent BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at           TIMESTAMPTZ NOT NULL,
//	    updated_at           TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX leads_ws_status_idx ON leads (workspace_id, status);
//	CREATE INDEX leads_ws_phone_idx  ON leads (workspace_id, phone);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const leadColumns = `id, workspace_id, phone, name, company, email, agent_type,
status, call_attempts, last_called_at, follow_up_email_sent, created_at, updated_at`

func (s *PostgresStore) Insert(ctx context.Context, l Lead) error {
	if l.ID == "" || l.WorkspaceID == "" {
		return ErrInvalidArgument
	}
	const q = `
INSERT INTO leads (` + leadColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`
	_, err := s.db.ExecContext(ctx, q,
		l.ID, l.WorkspaceID, l.Phone, l.Name, l.Company, l.Email, l.AgentType,
		l.Status, l.CallAttempts, l.LastCalledAt, l.FollowUpEmailSent, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, workspaceID, id string) (Lead, error) {
	if workspaceID == "" || id == "" {
		return Lead{}, ErrInvalidArgument
	}
	const q = `
SELECT ` + leadColumns + `
FROM leads
WHERE workspace_id = $1 AND id = $2
`
	return scanLead(s.db.QueryRowContext(ctx, q, workspaceID, id))
}

func (s *PostgresStore) GetByPhone(ctx context.Context, workspaceID, phone string) (Lead, error) {
	if workspaceID == "" || phone == "" {
		return Lead{}, ErrInvalidArgument
	}
	// Phone is a secondary lookup key; if duplicates exist the oldest wins.
	const q = `
SELECT ` + leadColumns + `
FROM leads
WHERE workspace_id = $1 AND phone = $2
ORDER BY created_at ASC
LIMIT 1
`
	return scanLead(s.db.QueryRowContext(ctx, q, workspaceID, phone))
}

func (s *PostgresStore) Update(ctx context.Context, l Lead) error {
	if l.ID == "" || l.WorkspaceID == "" {
		return ErrInvalidArgument
	}
	const q = `
UPDATE leads
SET phone = $3, name = $4, company = $5, email = $6, agent_type = $7,
    status = $8, call_attempts = $9, last_called_at = $10,
    follow_up_email_sent = $11, updated_at = $12
WHERE workspace_id = $1 AND id = $2
`
	res, err := s.db.ExecContext(ctx, q,
		l.WorkspaceID, l.ID, l.Phone, l.Name, l.Company, l.Email, l.AgentType,
		l.Status, l.CallAttempts, l.LastCalledAt, l.FollowUpEmailSent, l.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return mustAffectOne(res)
}

func (s *PostgresStore) Delete(ctx context.Context, workspaceID, id string) error {
	if workspaceID == "" || id == "" {
		return ErrInvalidArgument
	}
	const q = `DELETE FROM leads WHERE workspace_id = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, q, workspaceID, id)
	if err != nil {
		return err
	}
	return mustAffectOne(res)
}

func (s *PostgresStore) Query(ctx context.Context, f Filter, order Order, limit int) ([]Lead, error) {
	if f.WorkspaceID == "" {
		return nil, ErrInvalidArgument
	}

	where, args := buildWhere(f)
	q := `SELECT ` + leadColumns + ` FROM leads WHERE ` + where
	switch order {
	case OrderLastCalledAsc:
		q += ` ORDER BY last_called_at ASC NULLS FIRST, created_at ASC`
	case OrderCreatedDesc:
		q += ` ORDER BY created_at DESC`
	}
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	if f.WorkspaceID == "" {
		return 0, ErrInvalidArgument
	}
	where, args := buildWhere(f)
	q := `SELECT COUNT(*) FROM leads WHERE ` + where
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ConditionalUpdate applies the patch only when the row's status still
// equals expected. The WHERE clause makes the compare-and-swap a single
// indivisible statement; RowsAffected distinguishes a lost race (false)
// from an applied update (true).
func (s *PostgresStore) ConditionalUpdate(ctx context.Context, workspaceID, id string, expected Status, p Patch) (bool, error) {
	if workspaceID == "" || id == "" {
		return false, ErrInvalidArgument
	}

	sets := make([]string, 0, 4)
	args := []any{workspaceID, id, expected}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.CallAttempts != nil {
		add("call_attempts", *p.CallAttempts)
	}
	if p.LastCalledAt != nil {
		add("last_called_at", *p.LastCalledAt)
	}
	if !p.UpdatedAt.IsZero() {
		add("updated_at", p.UpdatedAt)
	}
	if len(sets) == 0 {
		return false, ErrInvalidArgument
	}

	q := `UPDATE leads SET ` + strings.Join(sets, ", ") + `
WHERE workspace_id = $1 AND id = $2 AND status = $3`
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func buildWhere(f Filter) (string, []any) {
	conds := []string{"workspace_id = $1"}
	args := []any{f.WorkspaceID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Phone != "" {
		add("phone = $%d", f.Phone)
	}
	if f.AgentType != "" {
		add("agent_type = $%d", f.AgentType)
	}
	if f.EligibleBefore != nil {
		add("(last_called_at IS NULL OR last_called_at <= $%d)", *f.EligibleBefore)
	}
	if f.AttemptsBelow > 0 {
		add("call_attempts < $%d", f.AttemptsBelow)
	}
	return strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(r rowScanner) (Lead, error) {
	var l Lead
	var last sql.NullTime
	if err := r.Scan(
		&l.ID, &l.WorkspaceID, &l.Phone, &l.Name, &l.Company, &l.Email, &l.AgentType,
		&l.Status, &l.CallAttempts, &last, &l.FollowUpEmailSent, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	if last.Valid {
		t := last.Time
		l.LastCalledAt = &t
	}
	return l, nil
}

func mustAffectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
