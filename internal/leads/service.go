package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Service provides operator-facing lead CRUD.
//
// Tenancy invariant: workspaceID is required and enforced on every call.
//
// The scheduler and tracker do NOT go through this service; they use the
// Store's conditional update directly so the lifecycle table stays the
// only arbiter of status changes.
type Service struct {
	store Store
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

// CreateLeadRequest carries the operator-supplied contact fields.
// Lifecycle fields are owned by the service: new leads always start
// pending with zero attempts and no last-called timestamp.
type CreateLeadRequest struct {
	Phone     string `json:"phone"`
	Name      string `json:"name,omitempty"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email,omitempty"`
	AgentType string `json:"agent_type,omitempty"`
}

func (s *Service) Create(ctx context.Context, workspaceID string, req CreateLeadRequest) (Lead, error) {
	if workspaceID == "" || req.Phone == "" {
		return Lead{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	agentType := req.AgentType
	if agentType == "" {
		agentType = AgentTypeOutbound
	}
	l := Lead{
		ID:           uuid.NewString(),
		WorkspaceID:  workspaceID,
		Phone:        req.Phone,
		Name:         req.Name,
		Company:      req.Company,
		Email:        req.Email,
		AgentType:    agentType,
		Status:       StatusPending,
		CallAttempts: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, l); err != nil {
		return Lead{}, err
	}
	return l, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Lead, error) {
	return s.store.Get(ctx, workspaceID, id)
}

// ListRequest pages through a workspace's leads, newest first.
type ListRequest struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// List returns one page of leads plus the workspace total.
// Paging slices an ordered prefix; dashboards page shallow so fetching
// page*pageSize rows keeps the Store contract down to query/count.
func (s *Service) List(ctx context.Context, workspaceID string, req ListRequest) ([]Lead, int, error) {
	if workspaceID == "" {
		return nil, 0, ErrInvalidArgument
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	total, err := s.store.Count(ctx, Filter{WorkspaceID: workspaceID})
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.store.Query(ctx, Filter{WorkspaceID: workspaceID}, OrderCreatedDesc, page*pageSize)
	if err != nil {
		return nil, 0, err
	}
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return []Lead{}, total, nil
	}
	return rows[start:], total, nil
}

// UpdateContactRequest mutates descriptive fields only. Lifecycle fields
// (status, attempts, timestamps) are never writable through here.
type UpdateContactRequest struct {
	Phone   *string `json:"phone,omitempty"`
	Name    *string `json:"name,omitempty"`
	Company *string `json:"company,omitempty"`
	Email   *string `json:"email,omitempty"`
}

func (s *Service) UpdateContact(ctx context.Context, workspaceID, id string, req UpdateContactRequest) (Lead, error) {
	if workspaceID == "" || id == "" {
		return Lead{}, ErrInvalidArgument
	}
	l, err := s.store.Get(ctx, workspaceID, id)
	if err != nil {
		return Lead{}, err
	}
	if req.Phone != nil {
		if *req.Phone == "" {
			return Lead{}, ErrInvalidArgument
		}
		l.Phone = *req.Phone
	}
	if req.Name != nil {
		l.Name = *req.Name
	}
	if req.Company != nil {
		l.Company = *req.Company
	}
	if req.Email != nil {
		l.Email = *req.Email
	}
	l.UpdatedAt = s.clock().UTC()
	if err := s.store.Update(ctx, l); err != nil {
		return Lead{}, err
	}
	return l, nil
}

func (s *Service) Delete(ctx context.Context, workspaceID, id string) error {
	return s.store.Delete(ctx, workspaceID, id)
}

// UpdateStatusBulk re-labels a set of leads, validating every change
// against the lifecycle table. The primary use is operator re-queue of
// soft failures (no_answer/error -> pending). Fails fast on the first
// illegal transition; prior updates in the batch stand (each is an
// independent operator action, not a transaction).
func (s *Service) UpdateStatusBulk(ctx context.Context, workspaceID string, ids []string, target Status) (int, error) {
	if workspaceID == "" || len(ids) == 0 {
		return 0, ErrInvalidArgument
	}
	if !ValidStatus(target) {
		return 0, ErrInvalidArgument
	}

	updated := 0
	now := s.clock().UTC()
	for _, id := range ids {
		l, err := s.store.Get(ctx, workspaceID, id)
		if err != nil {
			return updated, err
		}
		if l.Status == target {
			continue
		}
		if err := Transition(l.Status, target); err != nil {
			return updated, err
		}
		ok, err := s.store.ConditionalUpdate(ctx, workspaceID, id, l.Status, Patch{
			Status:    &target,
			UpdatedAt: now,
		})
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
		// A lost race (ok == false) means something else moved the lead
		// meanwhile; skip rather than guess.
	}
	return updated, nil
}

// MarkFollowUpSent flips the follow-up flag once; repeated calls are
// harmless.
func (s *Service) MarkFollowUpSent(ctx context.Context, workspaceID, id string) error {
	l, err := s.store.Get(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	if l.FollowUpEmailSent {
		return nil
	}
	l.FollowUpEmailSent = true
	l.UpdatedAt = s.clock().UTC()
	return s.store.Update(ctx, l)
}

// IsNotFound reports whether err is the store's missing-row error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
