package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for dial events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records dial lifecycle events.
//
// IMPORTANT:
// - The log is internal-only. Do not expose these records to tenant
//   users by default.
// - Callers should treat event logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.WorkspaceID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogReservation records one lead entering the calling state.
func (s *Service) LogReservation(ctx context.Context, workspaceID, leadID, batchID string, attempt int) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeReservation,
		LeadID:      leadID,
		BatchID:     batchID,
		Attempt:     attempt,
		Message:     "lead reserved for dialing",
	})
}

// LogOutcome records the classified result of one dispatched call.
func (s *Service) LogOutcome(ctx context.Context, workspaceID, leadID, outcome string, attempt int, requeued bool) error {
	msg := "call outcome recorded"
	typ := EventTypeOutcome
	if requeued {
		msg = "call outcome recorded, lead requeued"
	}
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        typ,
		LeadID:      leadID,
		Attempt:     attempt,
		Outcome:     outcome,
		Message:     msg,
	})
}

// LogRequeue records an operator moving a soft-failed lead back to pending.
func (s *Service) LogRequeue(ctx context.Context, workspaceID, leadID, actor string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeRequeue,
		LeadID:      leadID,
		Message:     "lead requeued by " + actor,
	})
}
