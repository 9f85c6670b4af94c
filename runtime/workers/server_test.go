package workers

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func TestGRPCServerWorker_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener := bufconn.Listen(1 << 16)
	worker := NewGRPCServerWorker(log, grpc.NewServer(),
		func() (net.Listener, error) { return listener, nil }, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// When the supervisor cancels
	time.Sleep(50 * time.Millisecond)
	cancel()

	// Then the worker finishes without error
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("gRPC worker did not stop")
	}
}

func TestHTTPServerWorker_Serves_And_Stops(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}
	worker := NewHTTPServerWorker(log, server, func() (net.Listener, error) { return listener, nil }, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Given the server answers
	req.Eventually(func() bool {
		res, err := http.Get("http://" + listener.Addr().String())
		if err != nil {
			return false
		}
		_ = res.Body.Close()
		return res.StatusCode == http.StatusNoContent
	}, time.Second, 20*time.Millisecond)

	// When the supervisor cancels, then it shuts down cleanly
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("HTTP worker did not stop")
	}
}

func TestServerWorker_Reports_Listen_Failure(t *testing.T) {
	req := require.New(t)
	worker := NewGRPCServerWorker(slog.Default(), grpc.NewServer(),
		func() (net.Listener, error) { return nil, net.ErrClosed }, time.Second)

	err := worker.Run(context.Background())

	req.ErrorIs(err, net.ErrClosed)
}
