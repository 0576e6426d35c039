package leads

import (
	"context"
	"errors"
	"testing"
	"time"
)

func memLead(id, ws string, status Status, attempts int, lastCalled *time.Time) Lead {
	now := time.Unix(1700000000, 0).UTC()
	return Lead{
		ID:           id,
		WorkspaceID:  ws,
		Phone:        "+1555" + id,
		AgentType:    AgentTypeOutbound,
		Status:       status,
		CallAttempts: attempts,
		LastCalledAt: lastCalled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMemoryStore_WorkspaceIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Insert(ctx, memLead("L1", "w1", StatusPending, 0, nil)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := s.Get(ctx, "w2", "L1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-workspace get must miss, got %v", err)
	}
	if err := s.Delete(ctx, "w2", "L1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-workspace delete must miss, got %v", err)
	}
	got, err := s.Query(ctx, Filter{WorkspaceID: "w2"}, OrderNone, 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("cross-workspace query must be empty, got %d %v", len(got), err)
	}
}

func TestMemoryStore_QueryEligibilityFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	recent := now.Add(-5 * time.Minute)
	old := now.Add(-time.Hour)

	cutoff := now.Add(-15 * time.Minute)
	boundary := cutoff

	_ = s.Insert(ctx, memLead("never", "w1", StatusPending, 0, nil))
	_ = s.Insert(ctx, memLead("recent", "w1", StatusPending, 1, &recent))
	_ = s.Insert(ctx, memLead("old", "w1", StatusPending, 1, &old))
	_ = s.Insert(ctx, memLead("exact", "w1", StatusPending, 1, &boundary))
	_ = s.Insert(ctx, memLead("spent", "w1", StatusPending, 3, &old))
	_ = s.Insert(ctx, memLead("busy", "w1", StatusCalling, 1, &recent))

	got, err := s.Query(ctx, Filter{
		WorkspaceID:    "w1",
		Status:         StatusPending,
		EligibleBefore: &cutoff,
		AttemptsBelow:  3,
	}, OrderLastCalledAsc, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	// The lead last called exactly one cooldown ago is eligible again.
	if len(got) != 3 || got[0].ID != "never" || got[1].ID != "old" || got[2].ID != "exact" {
		ids := make([]string, len(got))
		for i, l := range got {
			ids[i] = l.ID
		}
		t.Fatalf("expected [never old exact], got %v", ids)
	}
}

func TestMemoryStore_NullsFirstIsStable(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = s.Insert(ctx, memLead(id, "w1", StatusPending, 0, nil))
	}

	got, err := s.Query(ctx, Filter{WorkspaceID: "w1"}, OrderLastCalledAsc, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Fatalf("equal nulls must keep insertion order, got %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestMemoryStore_ConditionalUpdate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Insert(ctx, memLead("L1", "w1", StatusPending, 0, nil))

	calling := StatusCalling
	one := 1
	now := time.Unix(1700000000, 0).UTC()

	ok, err := s.ConditionalUpdate(ctx, "w1", "L1", StatusPending, Patch{
		Status:       &calling,
		CallAttempts: &one,
		LastCalledAt: &now,
		UpdatedAt:    now,
	})
	if err != nil || !ok {
		t.Fatalf("swap from matching status: ok=%v err=%v", ok, err)
	}

	// Second swap with the stale expectation must lose without error.
	ok, err = s.ConditionalUpdate(ctx, "w1", "L1", StatusPending, Patch{Status: &calling})
	if err != nil {
		t.Fatalf("lost swap is not an error: %v", err)
	}
	if ok {
		t.Fatal("swap must fail once the status moved")
	}

	l, _ := s.Get(ctx, "w1", "L1")
	if l.Status != StatusCalling || l.CallAttempts != 1 || l.LastCalledAt == nil {
		t.Fatalf("patch not applied: %+v", l)
	}
}

func TestMemoryStore_GetByPhone(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Insert(ctx, memLead("L1", "w1", StatusPending, 0, nil))

	l, err := s.GetByPhone(ctx, "w1", "+1555L1")
	if err != nil || l.ID != "L1" {
		t.Fatalf("lookup by phone: %+v %v", l, err)
	}
	if _, err := s.GetByPhone(ctx, "w1", "+10000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown phone: %v", err)
	}
}
