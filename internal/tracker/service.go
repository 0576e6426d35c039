package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/settings"
)

var (
	ErrInvalidArgument = errors.New("tracker: invalid argument")
	// ErrNotCalling rejects an outcome for a lead that does not occupy a
	// concurrency slot. The only legal transition out of calling is the
	// recorded outcome; everything else proves a protocol violation at
	// the dispatch boundary.
	ErrNotCalling = errors.New("tracker: lead is not in calling state")
	// ErrStoreUnavailable wraps transient store failures; the dispatch
	// collaborator should redeliver the outcome.
	ErrStoreUnavailable = errors.New("tracker: store unavailable")
)

// Outcome is the closed set of classified call results.
type Outcome string

const (
	OutcomeNoAnswer      Outcome = "no_answer"
	OutcomeScheduled     Outcome = "scheduled"
	OutcomeNotInterested Outcome = "not_interested"
	OutcomeError         Outcome = "error"
)

// Valid reports whether o belongs to the closed outcome set.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeNoAnswer, OutcomeScheduled, OutcomeNotInterested, OutcomeError:
		return true
	default:
		return false
	}
}

// soft reports whether the outcome is a soft failure (retryable under
// the requeue policy, unlike scheduled/not_interested which are
// permanently terminal for automation).
func (o Outcome) soft() bool {
	return o == OutcomeNoAnswer || o == OutcomeError
}

func (o Outcome) status() leads.Status {
	return leads.Status(o)
}

// SettingsProvider supplies the attempt budget for the requeue policy.
type SettingsProvider interface {
	Get(ctx context.Context, workspaceID string) (settings.AgentSettings, error)
}

// SlotReleaser frees one concurrency slot when an outcome lands.
// Satisfied by scheduler.RedisSlotGuard.
type SlotReleaser interface {
	Release(ctx context.Context, workspaceID string) error
}

// IdempotencyGuard deduplicates redelivered outcomes. Register returns
// true the first time a key is seen within the guard's window;
// Unregister returns a key so a redelivery can retry after a transient
// failure.
type IdempotencyGuard interface {
	Register(ctx context.Context, key string) (bool, error)
	Unregister(ctx context.Context, key string) error
}

// Service finalizes the state of dispatched calls.
type Service struct {
	store  leads.Store
	guard  IdempotencyGuard // nil = trust exactly-once delivery
	slots  SlotReleaser     // nil = no strict slot guard in play
	events *audit.Service   // nil = no dial log

	// requeue, when non-nil, enables the soft-failure requeue policy:
	// no_answer/error outcomes with remaining attempt budget go back to
	// pending so cooldown and budget drive the retry. When nil the
	// observed behavior stands: soft failures keep their terminal label
	// until an operator re-queues them.
	requeue SettingsProvider

	log   *slog.Logger
	clock func() time.Time
}

func NewService(store leads.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log, clock: time.Now}
}

func (s *Service) WithIdempotencyGuard(g IdempotencyGuard) *Service {
	s.guard = g
	return s
}

func (s *Service) WithSlotReleaser(r SlotReleaser) *Service {
	s.slots = r
	return s
}

func (s *Service) WithEvents(ev *audit.Service) *Service {
	s.events = ev
	return s
}

func (s *Service) WithRequeuePolicy(sp SettingsProvider) *Service {
	s.requeue = sp
	return s
}

// RecordOutcome advances one lead out of the calling state.
//
// idempotencyKey identifies the dispatch attempt; a redelivered outcome
// with a key the guard has already seen is a silent no-op, so attempts
// are never double-counted. An empty key skips the guard (the transport
// promises exactly-once).
//
// Only a fully applied outcome consumes the key: when the store fails
// after registration the key is returned to the guard, so the 5xx the
// webhook sends really does invite a redelivery that can still land.
func (s *Service) RecordOutcome(ctx context.Context, workspaceID, leadID string, outcome Outcome, idempotencyKey string) error {
	if workspaceID == "" || leadID == "" {
		return ErrInvalidArgument
	}
	if !outcome.Valid() {
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidArgument, outcome)
	}

	key := ""
	if s.guard != nil && idempotencyKey != "" {
		key = workspaceID + ":" + leadID + ":" + idempotencyKey
		first, err := s.guard.Register(ctx, key)
		if err != nil {
			return fmt.Errorf("%w: idempotency check: %w", ErrStoreUnavailable, err)
		}
		if !first {
			s.log.Debug("duplicate outcome ignored",
				"workspace_id", workspaceID, "lead_id", leadID, "key", idempotencyKey)
			return nil
		}
	}

	if err := s.applyOutcome(ctx, workspaceID, leadID, outcome); err != nil {
		if key != "" {
			if unErr := s.guard.Unregister(ctx, key); unErr != nil {
				s.log.Warn("idempotency key release failed",
					"workspace_id", workspaceID, "lead_id", leadID, "err", unErr)
			}
		}
		return err
	}
	return nil
}

func (s *Service) applyOutcome(ctx context.Context, workspaceID, leadID string, outcome Outcome) error {
	l, err := s.store.Get(ctx, workspaceID, leadID)
	if err != nil {
		if leads.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("%w: loading lead: %w", ErrStoreUnavailable, err)
	}
	if l.Status != leads.StatusCalling {
		return fmt.Errorf("%w: lead %s is %q", ErrNotCalling, leadID, l.Status)
	}

	target := outcome.status()
	requeued := false
	if s.requeue != nil && outcome.soft() {
		cfg, err := s.requeue.Get(ctx, workspaceID)
		if err != nil {
			return fmt.Errorf("tracker: settings read: %w", err)
		}
		if l.CallAttempts < cfg.MaxAttempts {
			target = leads.StatusPending
			requeued = true
		}
	}
	if err := leads.Transition(l.Status, target); err != nil {
		return err
	}

	now := s.clock().UTC()
	ok, err := s.store.ConditionalUpdate(ctx, workspaceID, leadID, leads.StatusCalling, leads.Patch{
		Status:    &target,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("%w: recording outcome: %w", ErrStoreUnavailable, err)
	}
	if !ok {
		// Something else moved the lead between the read and the swap.
		return fmt.Errorf("%w: lead %s changed state concurrently", ErrNotCalling, leadID)
	}

	if s.slots != nil {
		if relErr := s.slots.Release(ctx, workspaceID); relErr != nil {
			s.log.Warn("slot release failed", "workspace_id", workspaceID, "err", relErr)
		}
	}
	if s.events != nil {
		if logErr := s.events.LogOutcome(ctx, workspaceID, leadID, string(outcome), l.CallAttempts, requeued); logErr != nil {
			s.log.Warn("dial log append failed", "workspace_id", workspaceID, "lead_id", leadID, "err", logErr)
		}
	}
	return nil
}
