package settings

import "time"

// AgentSettings is the per-workspace dialing policy plus the agent
// persona fields the dashboard edits. Only the four policy fields are
// interpreted by the scheduler; the rest are stored and served as-is.
type AgentSettings struct {
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	AutomationEnabled bool `json:"automation_enabled" db:"automation_enabled"`
	// MaxCallsBatch is the ceiling on concurrently-calling leads.
	MaxCallsBatch int `json:"max_calls_batch" db:"max_calls_batch"`
	// RetryInterval is the cooldown in minutes since last_called_at
	// before a pending lead becomes eligible again.
	RetryInterval int `json:"retry_interval" db:"retry_interval"`
	// MaxAttempts is the per-lead attempt budget.
	MaxAttempts int `json:"max_attempts" db:"max_attempts"`

	AgentName        string   `json:"agent_name,omitempty" db:"agent_name"`
	Gender           string   `json:"gender,omitempty" db:"gender"`
	Position         string   `json:"position,omitempty" db:"position"`
	FirstMessage     string   `json:"first_message,omitempty" db:"first_message"`
	LastMessage      string   `json:"last_message,omitempty" db:"last_message"`
	Languages        []string `json:"languages,omitempty" db:"languages"`
	Voice            string   `json:"voice,omitempty" db:"voice"`
	EmotionDetection bool     `json:"emotion_detection" db:"emotion_detection"`
	HIPAAProtection  bool     `json:"hipaa_protection" db:"hipaa_protection"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Cooldown converts the minute-based retry interval to a duration.
func (a AgentSettings) Cooldown() time.Duration {
	return time.Duration(a.RetryInterval) * time.Minute
}

// Defaults returns the settings applied to a workspace with no stored
// row. Automation starts disabled so a fresh workspace never dials.
func Defaults(workspaceID string) AgentSettings {
	return AgentSettings{
		WorkspaceID:       workspaceID,
		AutomationEnabled: false,
		MaxCallsBatch:     10,
		RetryInterval:     15,
		MaxAttempts:       3,
		Gender:            "male",
		Position:          "Sales Representative",
		Languages:         []string{"English"},
	}
}
