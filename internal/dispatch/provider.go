package dispatch

import (
	"context"
	"log/slog"

	"dialer-platform/internal/scheduler"
)

// Provider is the provider-agnostic dialing boundary. The platform
// hands it a reserved batch and gets call outcomes back asynchronously
// through the outcome webhook.
//
// Rules:
// - No provider SDK calls outside dispatch adapters.
// - All requests are workspace-scoped.
// - Dispatch must return quickly; it queues calls, it does not wait for
//   them to finish.
type Provider interface {
	Name() string
	Dispatch(ctx context.Context, batch scheduler.CallBatch) error
}

// LogProvider is a stand-in dispatcher for local development and tests.
// It records batches to the log and nothing else; outcomes must be
// posted to the webhook manually.
type LogProvider struct {
	log *slog.Logger
}

func NewLogProvider(log *slog.Logger) *LogProvider {
	if log == nil {
		log = slog.Default()
	}
	return &LogProvider{log: log}
}

func (p *LogProvider) Name() string { return "log" }

func (p *LogProvider) Dispatch(ctx context.Context, batch scheduler.CallBatch) error {
	for _, l := range batch.Leads {
		p.log.Info("dispatching call",
			"workspace_id", batch.WorkspaceID,
			"batch_id", batch.ID,
			"lead_id", l.ID,
			"phone", l.Phone,
			"attempt", l.CallAttempts,
		)
	}
	return nil
}
