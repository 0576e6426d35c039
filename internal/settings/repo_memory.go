package settings

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory settings repository for tests and early
// development.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]AgentSettings
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: map[string]AgentSettings{}}
}

func (r *MemoryRepo) Get(ctx context.Context, workspaceID string) (AgentSettings, bool, error) {
	if workspaceID == "" {
		return AgentSettings{}, false, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[workspaceID]
	return s, ok, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, s AgentSettings) error {
	if s.WorkspaceID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.WorkspaceID] = s
	return nil
}

func (r *MemoryRepo) ListAutomationEnabled(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0)
	for ws, s := range r.rows {
		if s.AutomationEnabled {
			out = append(out, ws)
		}
	}
	sort.Strings(out)
	return out, nil
}
