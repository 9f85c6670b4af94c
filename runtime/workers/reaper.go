package workers

import (
	"chat-relay/contract"
	"context"
	"log/slog"
	"time"
)

// ReaperWorker periodically drops registry entries whose connection is already closed,
// so a dead connection never makes its user reachable.
type ReaperWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	interval time.Duration
}

func NewReaperWorker(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *ReaperWorker {
	return &ReaperWorker{log: log, registry: registry, interval: interval}
}

func (w *ReaperWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping reaper")
			return nil
		case <-ticker.C:
			if reaped := w.registry.Reap(); reaped > 0 {
				w.log.Info("Stale connections reaped", "count", reaped)
			}
		}
	}
}
