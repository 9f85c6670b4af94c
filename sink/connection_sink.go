package sink

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ConnectionSink is the ordered outbound stream of one push connection.
// Events are consumed by the registry and drained by the transport handler
// (gRPC stream or websocket) that owns the connection.
type ConnectionSink struct {
	id        string
	events    chan event.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		id:     uuid.NewString(),
		events: make(chan event.Event, bufferSize),
		done:   make(chan struct{}),
	}
}

func (s *ConnectionSink) ID() string { return s.id }

// Consume enqueues the event without blocking.
// A full buffer drops the event, history is the recovery path.
func (s *ConnectionSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
		return fmt.Errorf("%w: %s dropped %s", errors.ErrSlowConsumer, s.id, e.Type)
	}
}

// Events is drained by the transport handler.
func (s *ConnectionSink) Events() <-chan event.Event { return s.events }

// Done is closed once the connection is gone.
func (s *ConnectionSink) Done() <-chan struct{} { return s.done }

func (s *ConnectionSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *ConnectionSink) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
