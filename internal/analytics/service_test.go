package analytics

import (
	"context"
	"testing"
	"time"

	"dialer-platform/internal/leads"
)

func seed(t *testing.T, store leads.Store, id, agentType string, status leads.Status, attempts int) {
	t.Helper()
	now := time.Unix(1700000000, 0).UTC()
	err := store.Insert(context.Background(), leads.Lead{
		ID:           id,
		WorkspaceID:  "w1",
		Phone:        "+1555" + id,
		AgentType:    agentType,
		Status:       status,
		CallAttempts: attempts,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestGetStats_EmptyWorkspace(t *testing.T) {
	svc := NewService(leads.NewMemoryStore(), CostModel{})

	got, err := svc.GetStats(context.Background(), "w1", "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.TotalCalls != 0 || got.TotalMinutes != 0 || got.TotalCredits != 0 {
		t.Fatalf("expected zeroed stats, got %+v", got)
	}
	if got.StatusHistogram == nil || len(got.StatusHistogram) != 0 {
		t.Fatalf("histogram must be empty but non-nil, got %v", got.StatusHistogram)
	}
}

func TestGetStats_CostModelArithmetic(t *testing.T) {
	store := leads.NewMemoryStore()
	seed(t, store, "L1", leads.AgentTypeOutbound, leads.StatusScheduled, 2)
	seed(t, store, "L2", leads.AgentTypeOutbound, leads.StatusNoAnswer, 3)
	seed(t, store, "L3", leads.AgentTypeOutbound, leads.StatusPending, 0)

	svc := NewService(store, CostModel{MinutesPerAttempt: 2, CreditsPerAttempt: 0.5})
	got, err := svc.GetStats(context.Background(), "w1", "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// L3 has never been dialed: it contributes nothing.
	if got.TotalCalls != 2 {
		t.Fatalf("total calls = %d, want 2", got.TotalCalls)
	}
	if got.TotalMinutes != 10 {
		t.Fatalf("total minutes = %v, want 10", got.TotalMinutes)
	}
	if got.TotalCredits != 2.5 {
		t.Fatalf("total credits = %v, want 2.5", got.TotalCredits)
	}
}

func TestGetStats_HistogramCountsTerminalOnly(t *testing.T) {
	store := leads.NewMemoryStore()
	seed(t, store, "L1", leads.AgentTypeOutbound, leads.StatusScheduled, 1)
	seed(t, store, "L2", leads.AgentTypeOutbound, leads.StatusNoAnswer, 1)
	seed(t, store, "L3", leads.AgentTypeOutbound, leads.StatusNoAnswer, 2)
	seed(t, store, "L4", leads.AgentTypeOutbound, leads.StatusPending, 1)
	seed(t, store, "L5", leads.AgentTypeOutbound, leads.StatusCalling, 1)

	svc := NewService(store, CostModel{})
	got, err := svc.GetStats(context.Background(), "w1", "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.StatusHistogram["scheduled"] != 1 || got.StatusHistogram["no_answer"] != 2 {
		t.Fatalf("histogram = %v", got.StatusHistogram)
	}
	if _, ok := got.StatusHistogram["pending"]; ok {
		t.Fatal("pending must not appear in the terminal histogram")
	}
	if _, ok := got.StatusHistogram["calling"]; ok {
		t.Fatal("calling must not appear in the terminal histogram")
	}
}

func TestGetStats_AgentTypePartition(t *testing.T) {
	store := leads.NewMemoryStore()
	seed(t, store, "L1", leads.AgentTypeOutbound, leads.StatusScheduled, 1)
	seed(t, store, "L2", "inbound", leads.StatusScheduled, 4)

	svc := NewService(store, CostModel{MinutesPerAttempt: 2, CreditsPerAttempt: 0.5})
	got, err := svc.GetStats(context.Background(), "w1", leads.AgentTypeOutbound)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.TotalCalls != 1 || got.TotalMinutes != 2 {
		t.Fatalf("partition leaked across agent types: %+v", got)
	}
}

func TestUpcomingAppointments_NoRepoConfigured(t *testing.T) {
	svc := NewService(leads.NewMemoryStore(), CostModel{})
	got, err := svc.UpcomingAppointments(context.Background(), "w1", "")
	if err != nil {
		t.Fatalf("appointments: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestUpcomingAppointments_FutureOnlySoonestFirst(t *testing.T) {
	repo := NewMemoryAppointments()
	now := time.Unix(1700000000, 0).UTC()
	ctx := context.Background()

	for _, a := range []Appointment{
		{ID: "past", WorkspaceID: "w1", AgentType: leads.AgentTypeOutbound, Date: now.Add(-time.Hour)},
		{ID: "later", WorkspaceID: "w1", AgentType: leads.AgentTypeOutbound, Date: now.Add(48 * time.Hour)},
		{ID: "soon", WorkspaceID: "w1", AgentType: leads.AgentTypeOutbound, Date: now.Add(time.Hour)},
	} {
		repo.Add(a)
	}

	svc := NewService(leads.NewMemoryStore(), CostModel{}).WithAppointments(repo)
	svc.clock = func() time.Time { return now }

	got, err := svc.UpcomingAppointments(ctx, "w1", leads.AgentTypeOutbound)
	if err != nil {
		t.Fatalf("appointments: %v", err)
	}
	if len(got) != 2 || got[0].ID != "soon" || got[1].ID != "later" {
		ids := make([]string, len(got))
		for i, a := range got {
			ids[i] = a.ID
		}
		t.Fatalf("expected [soon later], got %v", ids)
	}
}
