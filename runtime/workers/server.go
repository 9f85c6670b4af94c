package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
)

// Listen opens the listener a server worker serves on. It is called on every
// (re)start, a restarted worker never reuses a closed listener.
type Listen func() (net.Listener, error)

func TCPListen(address string) Listen {
	return func() (net.Listener, error) {
		return net.Listen("tcp", address)
	}
}

// GRPCServerWorker serves a gRPC server until the context is canceled.
type GRPCServerWorker struct {
	log             *slog.Logger
	server          *grpc.Server
	listen          Listen
	shutdownTimeout time.Duration
}

func NewGRPCServerWorker(log *slog.Logger, server *grpc.Server, listen Listen, shutdownTimeout time.Duration) *GRPCServerWorker {
	return &GRPCServerWorker{log: log, server: server, listen: listen, shutdownTimeout: shutdownTimeout}
}

func (w *GRPCServerWorker) Run(ctx context.Context) error {
	listener, err := w.listen()
	if err != nil {
		return fmt.Errorf("gRPC listen failed: %w", err)
	}

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC server", "address", listener.Addr().String(), "at", time.Now().UTC())
		errChan <- w.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		w.stop()
		return nil
	case err := <-errChan:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("gRPC server error: %w", err)
	}
}

// stop waits for in-flight calls, then forces the remaining streams down.
func (w *GRPCServerWorker) stop() {
	done := make(chan struct{})
	go func() {
		w.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		w.log.Info("gRPC server stopped gracefully")
	case <-time.After(w.shutdownTimeout):
		w.log.Warn("gRPC graceful stop timed out, forcing")
		w.server.Stop()
	}
}

// HTTPServerWorker serves the REST and websocket endpoints until the context is canceled.
type HTTPServerWorker struct {
	log             *slog.Logger
	server          *http.Server
	listen          Listen
	shutdownTimeout time.Duration
}

func NewHTTPServerWorker(log *slog.Logger, server *http.Server, listen Listen, shutdownTimeout time.Duration) *HTTPServerWorker {
	return &HTTPServerWorker{log: log, server: server, listen: listen, shutdownTimeout: shutdownTimeout}
}

func (w *HTTPServerWorker) Run(ctx context.Context) error {
	listener, err := w.listen()
	if err != nil {
		return fmt.Errorf("HTTP listen failed: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", listener.Addr().String(), "at", time.Now().UTC())
		errChan <- w.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()
		if err := w.server.Shutdown(shutdownCtx); err != nil {
			w.log.Warn("HTTP shutdown incomplete", "error", err)
		}
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server error: %w", err)
	}
}
