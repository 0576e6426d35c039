package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresWorkspaceAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeReservation}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{WorkspaceID: "w"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogReservation(context.Background(), "w", "lead1", "batch1", 2); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].LeadID != "lead1" || evs[0].BatchID != "batch1" || evs[0].Attempt != 2 {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
	if evs[0].Type != EventTypeReservation {
		t.Fatalf("expected reservation")
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp filled")
	}
}

func TestService_LogOutcomeMarksRequeue(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogOutcome(context.Background(), "w", "lead1", "no_answer", 1, true); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.Events()
	if len(evs) != 1 || evs[0].Outcome != "no_answer" {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if evs[0].Message != "call outcome recorded, lead requeued" {
		t.Fatalf("expected requeue message, got %q", evs[0].Message)
	}
}
