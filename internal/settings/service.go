package settings

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidArgument = errors.New("settings: invalid argument")
	// ErrInvalidPolicy marks stored policy values the scheduler must not
	// dial with (zero/negative batch size or attempt budget). It is a
	// configuration error: propagate, never guess replacement values.
	ErrInvalidPolicy = errors.New("settings: invalid dialing policy")
)

// Repository is the persistence contract for agent settings.
type Repository interface {
	// Get returns the stored row; found == false means the workspace has
	// never saved settings.
	Get(ctx context.Context, workspaceID string) (AgentSettings, bool, error)
	Upsert(ctx context.Context, s AgentSettings) error
	// ListAutomationEnabled returns workspace ids with automation on,
	// for the cron loop.
	ListAutomationEnabled(ctx context.Context) ([]string, error)
}

// Service reads and writes per-workspace dialing settings.
//
// Freshness invariant: Get always hits the repository; there is no
// caching layer, so an operator change takes effect on the next
// scheduling pass.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Get returns the workspace's settings, falling back to Defaults when no
// row exists. Stored-but-invalid policy values are NOT repaired; they
// surface as ErrInvalidPolicy so the caller disables scheduling instead
// of dialing with a guessed limit.
func (s *Service) Get(ctx context.Context, workspaceID string) (AgentSettings, error) {
	if workspaceID == "" {
		return AgentSettings{}, ErrInvalidArgument
	}
	cur, found, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return AgentSettings{}, err
	}
	if !found {
		return Defaults(workspaceID), nil
	}
	if err := validatePolicy(cur); err != nil {
		return AgentSettings{}, err
	}
	return cur, nil
}

// Update replaces the workspace's settings wholesale.
func (s *Service) Update(ctx context.Context, in AgentSettings) (AgentSettings, error) {
	if in.WorkspaceID == "" {
		return AgentSettings{}, ErrInvalidArgument
	}
	if err := validatePolicy(in); err != nil {
		return AgentSettings{}, err
	}
	in.UpdatedAt = s.clock().UTC()
	if err := s.repo.Upsert(ctx, in); err != nil {
		return AgentSettings{}, err
	}
	return in, nil
}

// SetAutomationEnabled flips only the automation gate, preserving the
// rest of the stored settings (or defaults when none exist yet).
func (s *Service) SetAutomationEnabled(ctx context.Context, workspaceID string, enabled bool) (AgentSettings, error) {
	if workspaceID == "" {
		return AgentSettings{}, ErrInvalidArgument
	}
	cur, found, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return AgentSettings{}, err
	}
	if !found {
		cur = Defaults(workspaceID)
	}
	cur.AutomationEnabled = enabled
	cur.UpdatedAt = s.clock().UTC()
	if err := s.repo.Upsert(ctx, cur); err != nil {
		return AgentSettings{}, err
	}
	return cur, nil
}

// ListAutomationEnabled exposes the repository listing for the loop.
func (s *Service) ListAutomationEnabled(ctx context.Context) ([]string, error) {
	return s.repo.ListAutomationEnabled(ctx)
}

func validatePolicy(a AgentSettings) error {
	if a.MaxCallsBatch <= 0 {
		return fmt.Errorf("%w: max_calls_batch must be positive, got %d", ErrInvalidPolicy, a.MaxCallsBatch)
	}
	if a.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be positive, got %d", ErrInvalidPolicy, a.MaxAttempts)
	}
	if a.RetryInterval < 0 {
		return fmt.Errorf("%w: retry_interval must not be negative, got %d", ErrInvalidPolicy, a.RetryInterval)
	}
	return nil
}
