package settings

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// PostgresRepo stores one settings row per workspace.
//
// Assumed schema:
//
//	CREATE TABLE agent_settings (
//	    workspace_id       TEXT PRIMARY KEY,
//	    automation_enabled BOOLEAN NOT NULL DEFAULT FALSE,
//	    max_calls_batch    INT NOT NULL,
//	    retry_interval     INT NOT NULL,
//	    max_attempts       INT NOT NULL,
//	    agent_name         TEXT NOT NULL DEFAULT '',
//	    gender             TEXT NOT NULL DEFAULT '',
//	    position           TEXT NOT NULL DEFAULT '',
//	    first_message      TEXT NOT NULL DEFAULT '',
//	    last_message       TEXT NOT NULL DEFAULT '',
//	    languages          TEXT NOT NULL DEFAULT '',
//	    voice              TEXT NOT NULL DEFAULT '',
//	    emotion_detection  BOOLEAN NOT NULL DEFAULT FALSE,
//	    hipaa_protection   BOOLEAN NOT NULL DEFAULT FALSE,
//	    updated_at         TIMESTAMPTZ NOT NULL
//	);
//
// Languages are stored comma-joined; none of the persona fields carry
// policy so lossless round-tripping of simple strings is enough.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context, workspaceID string) (AgentSettings, bool, error) {
	if workspaceID == "" {
		return AgentSettings{}, false, ErrInvalidArgument
	}
	const q = `
SELECT workspace_id, automation_enabled, max_calls_batch, retry_interval, max_attempts,
       agent_name, gender, position, first_message, last_message, languages, voice,
       emotion_detection, hipaa_protection, updated_at
FROM agent_settings
WHERE workspace_id = $1
`
	var s AgentSettings
	var langs string
	err := r.db.QueryRowContext(ctx, q, workspaceID).Scan(
		&s.WorkspaceID, &s.AutomationEnabled, &s.MaxCallsBatch, &s.RetryInterval, &s.MaxAttempts,
		&s.AgentName, &s.Gender, &s.Position, &s.FirstMessage, &s.LastMessage, &langs, &s.Voice,
		&s.EmotionDetection, &s.HIPAAProtection, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AgentSettings{}, false, nil
		}
		return AgentSettings{}, false, err
	}
	if langs != "" {
		s.Languages = strings.Split(langs, ",")
	}
	return s, true, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, s AgentSettings) error {
	if s.WorkspaceID == "" {
		return ErrInvalidArgument
	}
	const q = `
INSERT INTO agent_settings (
    workspace_id, automation_enabled, max_calls_batch, retry_interval, max_attempts,
    agent_name, gender, position, first_message, last_message, languages, voice,
    emotion_detection, hipaa_protection, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (workspace_id) DO UPDATE SET
    automation_enabled = EXCLUDED.automation_enabled,
    max_calls_batch    = EXCLUDED.max_calls_batch,
    retry_interval     = EXCLUDED.retry_interval,
    max_attempts       = EXCLUDED.max_attempts,
    agent_name         = EXCLUDED.agent_name,
    gender             = EXCLUDED.gender,
    position           = EXCLUDED.position,
    first_message      = EXCLUDED.first_message,
    last_message       = EXCLUDED.last_message,
    languages          = EXCLUDED.languages,
    voice              = EXCLUDED.voice,
    emotion_detection  = EXCLUDED.emotion_detection,
    hipaa_protection   = EXCLUDED.hipaa_protection,
    updated_at         = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q,
		s.WorkspaceID, s.AutomationEnabled, s.MaxCallsBatch, s.RetryInterval, s.MaxAttempts,
		s.AgentName, s.Gender, s.Position, s.FirstMessage, s.LastMessage,
		strings.Join(s.Languages, ","), s.Voice,
		s.EmotionDetection, s.HIPAAProtection, s.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) ListAutomationEnabled(ctx context.Context) ([]string, error) {
	const q = `
SELECT workspace_id
FROM agent_settings
WHERE automation_enabled = TRUE
ORDER BY workspace_id
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var ws string
		if err := rows.Scan(&ws); err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}
