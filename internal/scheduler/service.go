package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/settings"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgument = errors.New("scheduler: invalid argument")
	// ErrStoreUnavailable wraps transient store failures. The pass that
	// returns it applied no reservation it could not also dispatch, so
	// retrying on the next cycle is safe.
	ErrStoreUnavailable = errors.New("scheduler: store unavailable")
	// ErrDispatchFailed wraps dispatcher errors. The batch's leads are
	// already reserved; the tracker (or operator re-queue) resolves them.
	ErrDispatchFailed = errors.New("scheduler: dispatch failed")
)

// SettingsProvider yields the current dialing policy for a workspace.
// Implementations must read fresh on every call (no caching) so
// operator changes take effect on the next pass.
type SettingsProvider interface {
	Get(ctx context.Context, workspaceID string) (settings.AgentSettings, error)
}

// Dispatcher hands a reserved batch to the external dialing collaborator.
// Dispatch must not block on call completion; outcomes arrive later via
// the tracker.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch CallBatch) error
}

// SlotGuard enforces the concurrency ceiling exactly across concurrent
// passes and processes. Optional: without it the ceiling is advisory
// (count-then-reserve), which tolerates a small overshoot in rare races.
type SlotGuard interface {
	Acquire(ctx context.Context, workspaceID string, limit int) (bool, error)
	Release(ctx context.Context, workspaceID string) error
}

// Service decides which leads to dial right now.
//
// The reservation step is the system's single correctness-critical
// invariant: two concurrent passes must never both reserve the same
// lead. It relies entirely on the store's conditional update
// (compare-and-swap on status == pending).
type Service struct {
	store      leads.Store
	settings   SettingsProvider
	dispatcher Dispatcher
	slots      SlotGuard      // nil = advisory admission only
	events     *audit.Service // nil = no dial log
	log        *slog.Logger
	clock      func() time.Time
}

func NewService(store leads.Store, sp SettingsProvider, d Dispatcher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:      store,
		settings:   sp,
		dispatcher: d,
		log:        log,
		clock:      time.Now,
	}
}

// WithSlotGuard enables strict concurrency-ceiling enforcement.
func (s *Service) WithSlotGuard(g SlotGuard) *Service {
	s.slots = g
	return s
}

// WithEvents enables the append-only dial log.
func (s *Service) WithEvents(ev *audit.Service) *Service {
	s.events = ev
	return s
}

// SelectBatch computes and reserves the leads to dial for one workspace.
//
// Steps:
//  1. Read settings fresh; automation off means an empty batch with zero
//     store calls.
//  2. Admission: availableSlots = max_calls_batch - count(calling).
//  3. Eligibility: pending, cooldown elapsed (null last_called_at counts
//     as elapsed), attempts under budget; ordered null-first, oldest
//     first; capped at availableSlots.
//  4. Reservation: per-lead CAS pending -> calling, attempts+1,
//     last_called_at = now. A lead that loses the race is skipped, not
//     retried within the pass.
func (s *Service) SelectBatch(ctx context.Context, workspaceID string) (CallBatch, error) {
	if workspaceID == "" {
		return CallBatch{}, ErrInvalidArgument
	}

	cfg, err := s.settings.Get(ctx, workspaceID)
	if err != nil {
		// Includes settings.ErrInvalidPolicy: zero/negative limits
		// disable scheduling rather than dial with guessed values.
		return CallBatch{}, fmt.Errorf("scheduler: settings read: %w", err)
	}

	now := s.clock().UTC()
	batch := CallBatch{ID: uuid.NewString(), WorkspaceID: workspaceID, CreatedAt: now}

	if !cfg.AutomationEnabled {
		return batch, nil
	}

	active, err := s.store.Count(ctx, leads.Filter{
		WorkspaceID: workspaceID,
		Status:      leads.StatusCalling,
	})
	if err != nil {
		return CallBatch{}, fmt.Errorf("%w: counting active calls: %w", ErrStoreUnavailable, err)
	}

	available := cfg.MaxCallsBatch - active
	if available <= 0 {
		return batch, nil
	}

	cutoff := now.Add(-cfg.Cooldown())
	candidates, err := s.store.Query(ctx, leads.Filter{
		WorkspaceID:    workspaceID,
		Status:         leads.StatusPending,
		EligibleBefore: &cutoff,
		AttemptsBelow:  cfg.MaxAttempts,
	}, leads.OrderLastCalledAsc, available)
	if err != nil {
		return CallBatch{}, fmt.Errorf("%w: querying eligible leads: %w", ErrStoreUnavailable, err)
	}

	reserved, err := s.reserve(ctx, workspaceID, cfg.MaxCallsBatch, candidates, now)
	if err != nil {
		return CallBatch{}, err
	}
	batch.Leads = reserved

	for _, l := range reserved {
		if s.events != nil {
			if logErr := s.events.LogReservation(ctx, workspaceID, l.ID, batch.ID, l.CallAttempts); logErr != nil {
				s.log.Warn("dial log append failed", "workspace_id", workspaceID, "lead_id", l.ID, "err", logErr)
			}
		}
	}
	return batch, nil
}

// reserve applies the pending -> calling swap for each candidate. On a
// store failure midway it rolls back the leads it had already reserved
// so the pass leaves no reservation it cannot dispatch.
func (s *Service) reserve(ctx context.Context, workspaceID string, limit int, candidates []leads.Lead, now time.Time) ([]leads.Lead, error) {
	calling := leads.StatusCalling
	reserved := make([]leads.Lead, 0, len(candidates))

	for _, c := range candidates {
		if s.slots != nil {
			ok, err := s.slots.Acquire(ctx, workspaceID, limit)
			if err != nil {
				s.rollback(ctx, workspaceID, reserved)
				return nil, fmt.Errorf("%w: acquiring slot: %w", ErrStoreUnavailable, err)
			}
			if !ok {
				// Ceiling reached globally; the rest of the candidates
				// wait for the next pass.
				break
			}
		}

		attempts := c.CallAttempts + 1
		called := now
		ok, err := s.store.ConditionalUpdate(ctx, workspaceID, c.ID, leads.StatusPending, leads.Patch{
			Status:       &calling,
			CallAttempts: &attempts,
			LastCalledAt: &called,
			UpdatedAt:    now,
		})
		if err != nil {
			if s.slots != nil {
				_ = s.slots.Release(ctx, workspaceID)
			}
			s.rollback(ctx, workspaceID, reserved)
			return nil, fmt.Errorf("%w: reserving lead %s: %w", ErrStoreUnavailable, c.ID, err)
		}
		if !ok {
			// Lost the compare-and-swap to a concurrent pass. Not an
			// error; the lead is simply excluded from this batch.
			s.log.Debug("reservation conflict", "workspace_id", workspaceID, "lead_id", c.ID)
			if s.slots != nil {
				_ = s.slots.Release(ctx, workspaceID)
			}
			continue
		}

		c.Status = leads.StatusCalling
		c.CallAttempts = attempts
		c.LastCalledAt = &called
		c.UpdatedAt = now
		reserved = append(reserved, c)
	}
	return reserved, nil
}

// rollback undoes this pass's reservations after a mid-pass store
// failure. Best-effort: if the store is fully down these leads stay in
// calling until the operator re-queues them, and the slot guard's TTL
// reclaims their slots.
//
// This is the one place call_attempts decrements. The counter otherwise
// only advances, but an undone reservation never dialed anyone, so the
// decrement restores the count to what was actually attempted.
func (s *Service) rollback(ctx context.Context, workspaceID string, reserved []leads.Lead) {
	pending := leads.StatusPending
	for _, l := range reserved {
		attempts := l.CallAttempts - 1
		ok, err := s.store.ConditionalUpdate(ctx, workspaceID, l.ID, leads.StatusCalling, leads.Patch{
			Status:       &pending,
			CallAttempts: &attempts,
			UpdatedAt:    s.clock().UTC(),
		})
		if err != nil || !ok {
			s.log.Error("reservation rollback failed", "workspace_id", workspaceID, "lead_id", l.ID, "err", err)
		}
		if s.slots != nil {
			_ = s.slots.Release(ctx, workspaceID)
		}
	}
}

// RunPass executes one full scheduling cycle: select, reserve, dispatch.
// Dispatch is fire-and-forget from the scheduler's perspective; outcomes
// come back through the tracker.
func (s *Service) RunPass(ctx context.Context, workspaceID string) (CallBatch, error) {
	batch, err := s.SelectBatch(ctx, workspaceID)
	if err != nil {
		return CallBatch{}, err
	}
	if batch.Empty() {
		return batch, nil
	}
	if s.dispatcher == nil {
		return batch, fmt.Errorf("%w: no dispatcher configured", ErrDispatchFailed)
	}
	if err := s.dispatcher.Dispatch(ctx, batch); err != nil {
		// Leads stay reserved; they surface in the dashboard as calling
		// and can be re-queued. Swallowing the error would hide that.
		return batch, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	s.log.Info("batch dispatched",
		"workspace_id", workspaceID,
		"batch_id", batch.ID,
		"leads", len(batch.Leads),
	)
	return batch, nil
}
