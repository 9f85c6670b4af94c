package workers

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultRestartInterval = 200 * time.Millisecond
	maxBackoffShift        = 5
	stableRun              = time.Minute
)

// Supervisor keeps the relay's long running workers (servers, reaper,
// monitoring) alive until its context is canceled.
type Supervisor struct {
	Cancel          context.CancelFunc
	wg              *sync.WaitGroup
	log             *slog.Logger
	restartInterval time.Duration
	workers         []contract.Worker
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = defaultRestartInterval
	}
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, restartInterval: restartInterval}
}

// Run starts every worker and blocks until all of them are done.
// Canceling ctx or calling Stop ends them all.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker in its own goroutine and restarts it when Run
// panics or returns an error. A nil return ends the worker for good.
// The restart delay doubles on consecutive crashes, up to maxBackoffShift
// doublings, and resets once a run outlived stableRun.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		crashes := 0
		for ctx.Err() == nil {
			startedAt := time.Now()
			err := runProtected(ctx, worker)
			switch {
			case err == nil:
				s.log.Info("Worker finished", "name", name)
				return
			case ctx.Err() != nil:
				s.log.Info("Worker stopped (context canceled)", "name", name)
				return
			}

			if time.Since(startedAt) > stableRun {
				crashes = 0
			}
			delay := s.restartInterval << min(crashes, maxBackoffShift)
			crashes++
			s.log.Warn("Worker crashed, restarting",
				"name", name,
				"crashes", crashes,
				"delay", delay,
				"error", err)

			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
		s.log.Info("Stopping worker", "name", name)
	}()
}

// runProtected turns a panic into ErrWorkerPanic.
func runProtected(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
