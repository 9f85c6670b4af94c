// Package observability reports the health of a relay node: presence counters
// from the registry and resource usage of the process itself.
package observability

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

// MonitoringManager keeps the latest NodeHealth snapshot.
// Refresh is driven by Run under the supervisor, Latest is read by /healthz.
type MonitoringManager struct {
	log       *slog.Logger
	registry  contract.IRegistry
	interval  time.Duration
	startedAt time.Time
	process   *process.Process

	mu     sync.RWMutex
	latest domain.NodeHealth
}

func NewMonitoringManager(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *MonitoringManager {
	mm := &MonitoringManager{
		log:       log,
		registry:  registry,
		interval:  interval,
		startedAt: time.Now().UTC(),
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process metrics unavailable", "error", err)
	} else {
		mm.process = p
	}
	mm.Refresh()
	return mm
}

// Run refreshes the snapshot every interval until the context is canceled.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mm.log.Debug("Context done, stopping monitoring")
			return nil
		case <-ticker.C:
			mm.Refresh()
		}
	}
}

// Refresh recomputes the snapshot. A node whose process metrics can't be read is DEGRADED.
func (mm *MonitoringManager) Refresh() domain.NodeHealth {
	health := domain.NodeHealth{
		Status:    domain.ALIVE,
		PID:       int32(os.Getpid()),
		Presence:  mm.registry.Stats(),
		StartedAt: mm.startedAt,
		CheckedAt: time.Now().UTC(),
	}
	rss, cpu, err := mm.selfStats()
	if err != nil {
		mm.log.Debug("Failed to collect self stats", "error", err)
		health.Status = domain.DEGRADED
	} else {
		health.RAM = rss
		health.CPU = cpu
	}

	mm.mu.Lock()
	mm.latest = health
	mm.mu.Unlock()

	mm.log.Debug("Health refreshed",
		"status", health.Status,
		"connections", health.Presence.Connections,
		"users", health.Presence.Users,
		"rss", health.RAM)
	return health
}

func (mm *MonitoringManager) Latest() domain.NodeHealth {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latest
}

func (mm *MonitoringManager) selfStats() (uint64, float64, error) {
	if mm.process == nil {
		return 0, 0, fmt.Errorf("no process handle")
	}
	memory, err := mm.process.MemoryInfo()
	if err != nil {
		return 0, 0, fmt.Errorf("memory info: %w", err)
	}
	cpu, err := mm.process.CPUPercent()
	if err != nil {
		return 0, 0, fmt.Errorf("cpu percent: %w", err)
	}
	return memory.RSS, cpu, nil
}
