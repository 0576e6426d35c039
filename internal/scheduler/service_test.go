package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"dialer-platform/internal/leads"
	"dialer-platform/internal/settings"
)

type stubSettings struct {
	cfg settings.AgentSettings
	err error
}

func (s stubSettings) Get(ctx context.Context, workspaceID string) (settings.AgentSettings, error) {
	return s.cfg, s.err
}

type recordingDispatcher struct {
	batches []CallBatch
	err     error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, b CallBatch) error {
	if d.err != nil {
		return d.err
	}
	d.batches = append(d.batches, b)
	return nil
}

// countingStore tracks how many store calls a pass issues.
type countingStore struct {
	leads.Store
	calls int
}

func (s *countingStore) Query(ctx context.Context, f leads.Filter, o leads.Order, limit int) ([]leads.Lead, error) {
	s.calls++
	return s.Store.Query(ctx, f, o, limit)
}

func (s *countingStore) Count(ctx context.Context, f leads.Filter) (int, error) {
	s.calls++
	return s.Store.Count(ctx, f)
}

func (s *countingStore) ConditionalUpdate(ctx context.Context, ws, id string, exp leads.Status, p leads.Patch) (bool, error) {
	s.calls++
	return s.Store.ConditionalUpdate(ctx, ws, id, exp, p)
}

func enabledSettings(batch, retry, attempts int) stubSettings {
	return stubSettings{cfg: settings.AgentSettings{
		WorkspaceID:       "w1",
		AutomationEnabled: true,
		MaxCallsBatch:     batch,
		RetryInterval:     retry,
		MaxAttempts:       attempts,
	}}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedLead(t *testing.T, store leads.Store, id string, status leads.Status, attempts int, lastCalled *time.Time) {
	t.Helper()
	err := store.Insert(context.Background(), leads.Lead{
		ID:           id,
		WorkspaceID:  "w1",
		Phone:        "+1555" + id,
		AgentType:    leads.AgentTypeOutbound,
		Status:       status,
		CallAttempts: attempts,
		LastCalledAt: lastCalled,
		CreatedAt:    time.Unix(1700000000, 0).UTC(),
		UpdatedAt:    time.Unix(1700000000, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("seed lead %s: %v", id, err)
	}
}

func TestSelectBatch_NullTimestampsFirstThenCapped(t *testing.T) {
	store := leads.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()
	fiveMinAgo := now.Add(-5 * time.Minute)

	seedLead(t, store, "L1", leads.StatusPending, 0, nil)
	seedLead(t, store, "L2", leads.StatusPending, 1, &fiveMinAgo)
	seedLead(t, store, "L3", leads.StatusPending, 0, nil)

	svc := NewService(store, enabledSettings(2, 15, 3), &recordingDispatcher{}, nil)
	svc.clock = fixedClock(now)

	batch, err := svc.SelectBatch(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(batch.Leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(batch.Leads))
	}
	// Never-called leads win; equal-priority nulls keep insertion order.
	if batch.Leads[0].ID != "L1" || batch.Leads[1].ID != "L3" {
		t.Fatalf("expected [L1 L3], got [%s %s]", batch.Leads[0].ID, batch.Leads[1].ID)
	}
	for _, l := range batch.Leads {
		if l.Status != leads.StatusCalling {
			t.Fatalf("lead %s not reserved, status %s", l.ID, l.Status)
		}
		if l.CallAttempts != 1 {
			t.Fatalf("lead %s attempts = %d, want 1", l.ID, l.CallAttempts)
		}
		if l.LastCalledAt == nil || !l.LastCalledAt.Equal(now) {
			t.Fatalf("lead %s last_called_at not set to now", l.ID)
		}
	}
}

func TestSelectBatch_CooldownExcludesRecentlyCalled(t *testing.T) {
	store := leads.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()
	fiveMinAgo := now.Add(-5 * time.Minute)
	hourAgo := now.Add(-time.Hour)
	exactlyCooldownAgo := now.Add(-15 * time.Minute)

	seedLead(t, store, "L1", leads.StatusPending, 1, &fiveMinAgo)
	seedLead(t, store, "L2", leads.StatusPending, 1, &hourAgo)
	seedLead(t, store, "L3", leads.StatusPending, 1, &exactlyCooldownAgo)

	svc := NewService(store, enabledSettings(5, 15, 3), &recordingDispatcher{}, nil)
	svc.clock = fixedClock(now)

	batch, err := svc.SelectBatch(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// The full cooldown has elapsed for L2 and, exactly, for L3.
	if len(batch.Leads) != 2 || batch.Leads[0].ID != "L2" || batch.Leads[1].ID != "L3" {
		t.Fatalf("expected [L2 L3], got %+v", batch.Leads)
	}
}

func TestSelectBatch_AttemptBudgetExhausted(t *testing.T) {
	store := leads.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()
	dayAgo := now.Add(-24 * time.Hour)

	seedLead(t, store, "L1", leads.StatusPending, 3, &dayAgo)
	seedLead(t, store, "L2", leads.StatusPending, 3, nil)

	svc := NewService(store, enabledSettings(5, 0, 3), &recordingDispatcher{}, nil)
	svc.clock = fixedClock(now)

	batch, err := svc.SelectBatch(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !batch.Empty() {
		t.Fatalf("expected empty batch regardless of timestamps, got %+v", batch.Leads)
	}
}

func TestSelectBatch_AutomationDisabledTouchesNothing(t *testing.T) {
	mem := leads.NewMemoryStore()
	seedLead(t, mem, "L1", leads.StatusPending, 0, nil)
	store := &countingStore{Store: mem}

	cfg := enabledSettings(2, 15, 3)
	cfg.cfg.AutomationEnabled = false

	svc := NewService(store, cfg, &recordingDispatcher{}, nil)

	batch, err := svc.SelectBatch(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !batch.Empty() {
		t.Fatalf("expected empty batch")
	}
	if store.calls != 0 {
		t.Fatalf("expected zero store calls beyond settings read, got %d", store.calls)
	}
}

func TestSelectBatch_NoSlotsWhenCeilingReached(t *testing.T) {
	store := leads.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()

	seedLead(t, store, "A1", leads.StatusCalling, 1, &now)
	seedLead(t, store, "A2", leads.StatusCalling, 1, &now)
	seedLead(t, store, "L1", leads.StatusPending, 0, nil)

	svc := NewService(store, enabledSettings(2, 15, 3), &recordingDispatcher{}, nil)
	svc.clock = fixedClock(now)

	batch, err := svc.SelectBatch(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !batch.Empty() {
		t.Fatalf("expected empty batch at ceiling, got %d leads", len(batch.Leads))
	}
}

func TestSelectBatch_BackToBackPassesNeverDoubleSelect(t *testing.T) {
	store := leads.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()

	seedLead(t, store, "L1", leads.StatusPending, 0, nil)
	seedLead(t, store, "L2", leads.StatusPending, 0, nil)
	seedLead(t, store, "L3", leads.StatusPending, 0, nil)

	svc := NewService(store, enabledSettings(2, 15, 3), &recordingDispatcher{}, nil)
	svc.clock = fixedClock(now)

	first, err := svc.SelectBatch(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, err := svc.SelectBatch(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	seen := map[string]bool{}
	for _, l := range first.Leads {
		seen[l.ID] = true
	}
	for _, l := range second.Leads {
		if seen[l.ID] {
			t.Fatalf("lead %s selected by both passes", l.ID)
		}
	}
	// First pass reserved both slots; second pass finds the ceiling full.
	if len(first.Leads) != 2 || len(second.Leads) != 0 {
		t.Fatalf("expected 2 then 0, got %d then %d", len(first.Leads), len(second.Leads))
	}
}

// raceStore makes one lead lose the compare-and-swap, simulating a
// concurrent pass winning the reservation.
type raceStore struct {
	leads.Store
	stealID string
	stolen  bool
}

func (s *raceStore) ConditionalUpdate(ctx context.Context, ws, id string, exp leads.Status, p leads.Patch) (bool, error) {
	if id == s.stealID && !s.stolen {
		s.stolen = true
		return false, nil
	}
	return s.Store.ConditionalUpdate(ctx, ws, id, exp, p)
}

func TestSelectBatch_LostSwapIsSkippedNotRetried(t *testing.T) {
	mem := leads.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()

	seedLead(t, mem, "L1", leads.StatusPending, 0, nil)
	seedLead(t, mem, "L2", leads.StatusPending, 0, nil)
	store := &raceStore{Store: mem, stealID: "L1"}

	svc := NewService(store, enabledSettings(2, 15, 3), &recordingDispatcher{}, nil)
	svc.clock = fixedClock(now)

	batch, err := svc.SelectBatch(context.Background(), "w1")
	if err != nil {
		t.Fatalf("a lost race is not an error: %v", err)
	}
	if len(batch.Leads) != 1 || batch.Leads[0].ID != "L2" {
		t.Fatalf("expected only L2, got %+v", batch.Leads)
	}
}

// failingStore errors on the nth conditional update.
type failingStore struct {
	leads.Store
	failOn int
	n      int
}

func (s *failingStore) ConditionalUpdate(ctx context.Context, ws, id string, exp leads.Status, p leads.Patch) (bool, error) {
	s.n++
	if s.n == s.failOn {
		return false, errors.New("connection reset")
	}
	return s.Store.ConditionalUpdate(ctx, ws, id, exp, p)
}

func TestSelectBatch_MidPassFailureRollsBackReservations(t *testing.T) {
	mem := leads.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()

	seedLead(t, mem, "L1", leads.StatusPending, 0, nil)
	seedLead(t, mem, "L2", leads.StatusPending, 0, nil)
	store := &failingStore{Store: mem, failOn: 2}

	svc := NewService(store, enabledSettings(2, 15, 3), &recordingDispatcher{}, nil)
	svc.clock = fixedClock(now)

	_, err := svc.SelectBatch(context.Background(), "w1")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	// L1 was reserved before the failure; the rollback must have
	// returned it to pending with its attempt count restored.
	l1, getErr := mem.Get(context.Background(), "w1", "L1")
	if getErr != nil {
		t.Fatalf("unexpected err: %v", getErr)
	}
	if l1.Status != leads.StatusPending || l1.CallAttempts != 0 {
		t.Fatalf("expected L1 rolled back to pending/0, got %s/%d", l1.Status, l1.CallAttempts)
	}
}

func TestSelectBatch_InvalidPolicyPropagates(t *testing.T) {
	store := leads.NewMemoryStore()
	svc := NewService(store, stubSettings{err: settings.ErrInvalidPolicy}, &recordingDispatcher{}, nil)

	_, err := svc.SelectBatch(context.Background(), "w1")
	if !errors.Is(err, settings.ErrInvalidPolicy) {
		t.Fatalf("expected policy error to propagate, got %v", err)
	}
}

func TestRunPass_DispatchesReservedBatch(t *testing.T) {
	store := leads.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()
	seedLead(t, store, "L1", leads.StatusPending, 0, nil)

	d := &recordingDispatcher{}
	svc := NewService(store, enabledSettings(2, 15, 3), d, nil)
	svc.clock = fixedClock(now)

	batch, err := svc.RunPass(context.Background(), "w1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(d.batches) != 1 || d.batches[0].ID != batch.ID {
		t.Fatalf("expected batch dispatched once")
	}
}

func TestRunPass_DispatchFailureKeepsReservation(t *testing.T) {
	store := leads.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()
	seedLead(t, store, "L1", leads.StatusPending, 0, nil)

	d := &recordingDispatcher{err: errors.New("provider down")}
	svc := NewService(store, enabledSettings(2, 15, 3), d, nil)
	svc.clock = fixedClock(now)

	_, err := svc.RunPass(context.Background(), "w1")
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
	l1, _ := store.Get(context.Background(), "w1", "L1")
	if l1.Status != leads.StatusCalling {
		t.Fatalf("reserved lead must stay visible as calling, got %s", l1.Status)
	}
}
