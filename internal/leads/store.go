package leads

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("leads: not found")
	ErrInvalidArgument = errors.New("leads: invalid argument")
)

// Filter narrows Query/Count to a subset of a workspace's leads.
// WorkspaceID is mandatory; everything else is optional.
type Filter struct {
	WorkspaceID string

	// Status restricts to a single lifecycle state when non-empty.
	Status Status

	// Phone restricts to an exact phone match when non-empty.
	Phone string

	// AgentType restricts to one analytics partition when non-empty.
	AgentType string

	// EligibleBefore, when set, keeps leads whose LastCalledAt is null
	// or at/earlier than the given instant (the cooldown cutoff). A lead
	// last called exactly one retry interval ago is eligible.
	EligibleBefore *time.Time

	// AttemptsBelow, when > 0, keeps leads with CallAttempts < AttemptsBelow.
	AttemptsBelow int
}

// Order is the closed set of sort orders the store supports.
type Order int

const (
	// OrderNone leaves store order unspecified.
	OrderNone Order = iota
	// OrderLastCalledAsc sorts by LastCalledAt ascending with nulls
	// first, so never-called leads outrank recently retried ones.
	// Ties keep their original relative order (stable).
	OrderLastCalledAsc
	// OrderCreatedDesc sorts newest leads first (list views).
	OrderCreatedDesc
)

// Patch is a partial update applied by ConditionalUpdate. Nil fields
// are left untouched.
type Patch struct {
	Status       *Status
	CallAttempts *int
	LastCalledAt *time.Time
	UpdatedAt    time.Time
}

// Store is the persistence contract for leads.
//
// ConditionalUpdate is the correctness-critical operation: it must apply
// the patch if and only if the lead's current status equals expected, as
// one indivisible step, so two concurrent scheduling passes can never
// both reserve the same lead.
type Store interface {
	Insert(ctx context.Context, l Lead) error
	Get(ctx context.Context, workspaceID, id string) (Lead, error)
	GetByPhone(ctx context.Context, workspaceID, phone string) (Lead, error)
	Update(ctx context.Context, l Lead) error
	Delete(ctx context.Context, workspaceID, id string) error

	Query(ctx context.Context, f Filter, order Order, limit int) ([]Lead, error)
	Count(ctx context.Context, f Filter) (int, error)

	ConditionalUpdate(ctx context.Context, workspaceID, id string, expected Status, p Patch) (bool, error)
}
