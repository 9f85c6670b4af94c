package workers

import (
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSupervisor_Restarts_Panicking_Worker(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)

	var calls atomic.Int32
	worker.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			calls.Add(1)
			panic("boom")
		}).
		AnyTimes()

	sup := NewSupervisor(logs.GetLoggerFromLevel(slog.LevelDebug), 50*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// When the worker keeps panicking
	go sup.Add(worker).Run(ctx)
	<-ctx.Done()

	// Then it was restarted, with a growing delay (50, 100, 200ms...)
	req.GreaterOrEqual(int(calls.Load()), 2)
	req.LessOrEqual(int(calls.Load()), 5)
}

func TestSupervisor_Does_Not_Restart_Finished_Worker(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)

	// Given a worker that ends cleanly once
	worker.EXPECT().Run(gomock.Any()).Return(nil).Times(1)

	sup := NewSupervisor(slog.Default(), 50*time.Millisecond)
	done := make(chan struct{})
	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	// Then Run returns without any restart
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}
}

func TestSupervisor_Stop_Interrupts_Restart_Delay(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)

	failed := make(chan struct{}, 1)
	worker.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			failed <- struct{}{}
			return fmt.Errorf("listener lost")
		}).
		Times(1)

	// Given a restart delay far longer than the test
	sup := NewSupervisor(slog.Default(), time.Hour)
	done := make(chan struct{})
	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	// When the supervisor is stopped while waiting to restart
	<-failed
	sup.Stop()

	// Then it returns right away
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Stop should cancel the pending restart")
	}
}

func TestRunProtected_Turns_Panic_Into_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(context.Context) error { panic("boom") })

	err := runProtected(context.Background(), worker)

	req.ErrorIs(err, errors.ErrWorkerPanic)
	req.ErrorContains(err, "boom")
}
