package analytics

import (
	"context"
	"errors"
	"time"

	"dialer-platform/internal/leads"
)

var ErrInvalidRequest = errors.New("analytics: invalid request")

// AppointmentsRepo lists booked meetings for the dashboard.
type AppointmentsRepo interface {
	ListUpcoming(ctx context.Context, workspaceID, agentType string, after time.Time) ([]Appointment, error)
}

// Service derives read-only summaries from the current lead state.
// It never mutates anything; an empty lead set yields zeroed stats.
type Service struct {
	store leads.Store
	appts AppointmentsRepo // nil = no appointments surface
	cost  CostModel
	clock func() time.Time
}

func NewService(store leads.Store, cost CostModel) *Service {
	if cost.MinutesPerAttempt == 0 && cost.CreditsPerAttempt == 0 {
		cost = DefaultCostModel()
	}
	return &Service{store: store, cost: cost, clock: time.Now}
}

func (s *Service) WithAppointments(repo AppointmentsRepo) *Service {
	s.appts = repo
	return s
}

// GetStats aggregates attempts and terminal statuses for one workspace
// and agent-type partition. agentType may be empty to cover all leads.
func (s *Service) GetStats(ctx context.Context, workspaceID, agentType string) (Stats, error) {
	if workspaceID == "" {
		return Stats{}, ErrInvalidRequest
	}

	rows, err := s.store.Query(ctx, leads.Filter{
		WorkspaceID: workspaceID,
		AgentType:   agentType,
	}, leads.OrderNone, 0)
	if err != nil {
		return Stats{}, err
	}

	out := Stats{
		WorkspaceID:     workspaceID,
		AgentType:       agentType,
		StatusHistogram: map[string]int{},
	}
	for _, l := range rows {
		if l.CallAttempts > 0 {
			out.TotalCalls++
			out.TotalMinutes += float64(l.CallAttempts) * s.cost.MinutesPerAttempt
			out.TotalCredits += float64(l.CallAttempts) * s.cost.CreditsPerAttempt
		}
		switch l.Status {
		case leads.StatusNoAnswer, leads.StatusScheduled, leads.StatusNotInterested, leads.StatusError:
			out.StatusHistogram[string(l.Status)]++
		case leads.StatusPending, leads.StatusCalling:
			// in-flight, not part of the terminal histogram
		}
	}
	return out, nil
}

// UpcomingAppointments lists future bookings for the dashboard, soonest
// first (ordering is the repository's contract).
func (s *Service) UpcomingAppointments(ctx context.Context, workspaceID, agentType string) ([]Appointment, error) {
	if workspaceID == "" {
		return nil, ErrInvalidRequest
	}
	if s.appts == nil {
		return []Appointment{}, nil
	}
	return s.appts.ListUpcoming(ctx, workspaceID, agentType, s.clock().UTC())
}
