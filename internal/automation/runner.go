// Package automation drives scheduling passes on a timer. It uses the
// robfig/cron/v3 library for the trigger loop; each tick runs one pass
// per workspace with automation enabled.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dialer-platform/internal/scheduler"

	"github.com/robfig/cron/v3"
)

// PassRunner executes one scheduling cycle for a workspace.
// Satisfied by scheduler.Service.
type PassRunner interface {
	RunPass(ctx context.Context, workspaceID string) (scheduler.CallBatch, error)
}

// WorkspaceLister yields the workspaces to pass over.
// Satisfied by settings.Service.
type WorkspaceLister interface {
	ListAutomationEnabled(ctx context.Context) ([]string, error)
}

// Runner is the cron trigger loop.
//
// Passes are safe to interleave (the reservation CAS carries the
// correctness burden), so overlapping ticks or multiple process
// instances are tolerated; cron's default DelayIfStillRunning-free
// behavior is acceptable here.
type Runner struct {
	cron       *cron.Cron
	schedule   string
	passes     PassRunner
	workspaces WorkspaceLister
	timeout    time.Duration
	log        *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewRunner builds the loop. schedule is a standard 5-field cron
// expression (e.g. "* * * * *" for every minute); passTimeout bounds
// one workspace's pass, store calls included.
func NewRunner(schedule string, passes PassRunner, workspaces WorkspaceLister, passTimeout time.Duration, log *slog.Logger) (*Runner, error) {
	if schedule == "" {
		return nil, errors.New("automation: schedule is required")
	}
	if passes == nil || workspaces == nil {
		return nil, errors.New("automation: pass runner and workspace lister are required")
	}
	if passTimeout <= 0 {
		passTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("automation: invalid schedule %q: %w", schedule, err)
	}
	return &Runner{
		cron:       cron.New(),
		schedule:   schedule,
		passes:     passes,
		workspaces: workspaces,
		timeout:    passTimeout,
		log:        log,
	}, nil
}

// Start registers the tick and launches the cron loop. ctx cancellation
// is observed per tick, not by the cron goroutine itself; call Stop on
// shutdown.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("automation: already started")
	}
	if _, err := r.cron.AddFunc(r.schedule, func() { r.tick(ctx) }); err != nil {
		return err
	}
	r.cron.Start()
	r.started = true
	r.log.Info("automation loop started", "schedule", r.schedule)
	return nil
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	<-r.cron.Stop().Done()
	r.started = false
	r.log.Info("automation loop stopped")
}

// tick runs one pass per enabled workspace. Failures are per-workspace
// and transient by design: the next tick retries with no cleanup needed.
func (r *Runner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	wss, err := r.workspaces.ListAutomationEnabled(ctx)
	if err != nil {
		r.log.Error("workspace listing failed", "err", err)
		return
	}
	for _, ws := range wss {
		if ctx.Err() != nil {
			return
		}
		passCtx, cancel := context.WithTimeout(ctx, r.timeout)
		batch, err := r.passes.RunPass(passCtx, ws)
		cancel()
		if err != nil {
			r.log.Error("scheduling pass failed", "workspace_id", ws, "err", err)
			continue
		}
		if !batch.Empty() {
			r.log.Info("scheduling pass complete", "workspace_id", ws, "batch_id", batch.ID, "leads", len(batch.Leads))
		}
	}
}
