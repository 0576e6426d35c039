package leads

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and early development.
// It enforces workspace isolation and the same conditional-update
// atomicity (via a mutex) as the Postgres store.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]Lead
	order []string // insertion order, keeps sorts stable
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]Lead{}}
}

func (s *MemoryStore) Insert(ctx context.Context, l Lead) error {
	if l.ID == "" || l.WorkspaceID == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	s.byID[l.ID] = l
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, workspaceID, id string) (Lead, error) {
	if workspaceID == "" || id == "" {
		return Lead{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok || l.WorkspaceID != workspaceID {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (s *MemoryStore) GetByPhone(ctx context.Context, workspaceID, phone string) (Lead, error) {
	if workspaceID == "" || phone == "" {
		return Lead{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		l := s.byID[id]
		if l.WorkspaceID == workspaceID && l.Phone == phone {
			return l, nil
		}
	}
	return Lead{}, ErrNotFound
}

func (s *MemoryStore) Update(ctx context.Context, l Lead) error {
	if l.ID == "" || l.WorkspaceID == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[l.ID]
	if !ok || cur.WorkspaceID != l.WorkspaceID {
		return ErrNotFound
	}
	s.byID[l.ID] = l
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, workspaceID, id string) error {
	if workspaceID == "" || id == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok || l.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, f Filter, order Order, limit int) ([]Lead, error) {
	if f.WorkspaceID == "" {
		return nil, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Lead, 0)
	for _, id := range s.order {
		l := s.byID[id]
		if matches(l, f) {
			out = append(out, l)
		}
	}

	switch order {
	case OrderLastCalledAsc:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].LastCalledAt, out[j].LastCalledAt
			if a == nil {
				return b != nil // nulls first, null vs null keeps order
			}
			if b == nil {
				return false
			}
			return a.Before(*b)
		})
	case OrderCreatedDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context, f Filter) (int, error) {
	if f.WorkspaceID == "" {
		return 0, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.byID {
		if matches(l, f) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ConditionalUpdate(ctx context.Context, workspaceID, id string, expected Status, p Patch) (bool, error) {
	if workspaceID == "" || id == "" {
		return false, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok || l.WorkspaceID != workspaceID {
		return false, ErrNotFound
	}
	if l.Status != expected {
		return false, nil
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.CallAttempts != nil {
		l.CallAttempts = *p.CallAttempts
	}
	if p.LastCalledAt != nil {
		l.LastCalledAt = p.LastCalledAt
	}
	if !p.UpdatedAt.IsZero() {
		l.UpdatedAt = p.UpdatedAt
	}
	s.byID[id] = l
	return true, nil
}

func matches(l Lead, f Filter) bool {
	if l.WorkspaceID != f.WorkspaceID {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Phone != "" && l.Phone != f.Phone {
		return false
	}
	if f.AgentType != "" && l.AgentType != f.AgentType {
		return false
	}
	if f.EligibleBefore != nil {
		if l.LastCalledAt != nil && l.LastCalledAt.After(*f.EligibleBefore) {
			return false
		}
	}
	if f.AttemptsBelow > 0 && l.CallAttempts >= f.AttemptsBelow {
		return false
	}
	return true
}
