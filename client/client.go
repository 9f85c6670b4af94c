// Package client is the gRPC SDK of the relay. It keeps a projection.Timeline
// up to date from the push stream and exposes the chat commands.
package client

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	pb "chat-relay/proto/chat"
	"chat-relay/projection"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type Client struct {
	log      *slog.Logger
	api      pb.ChatServiceClient
	token    string
	userID   string
	timeline *projection.Timeline
	onEvent  func(event.Event)

	mu           sync.Mutex
	connectionID string
	ready        chan struct{}
	readyOnce    sync.Once
}

type Option func(*Client)

// WithEventHandler is called after each pushed event has been merged into the timeline.
func WithEventHandler(fn func(event.Event)) Option {
	return func(c *Client) { c.onEvent = fn }
}

// Dial opens a connection with the JSON codec every call of the service uses.
func Dial(address string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		pb.WithJSONCodec(),
	)
	if err != nil {
		return nil, fmt.Errorf("could not connect to server at %s: %w", address, err)
	}
	return conn, nil
}

func New(log *slog.Logger, conn grpc.ClientConnInterface, userID, token string, opts ...Option) *Client {
	c := &Client{
		log:      log,
		api:      pb.NewChatServiceClient(conn),
		token:    token,
		userID:   userID,
		timeline: projection.NewTimeline(userID),
		onEvent:  func(event.Event) {},
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Timeline() *projection.Timeline { return c.timeline }

// Listen opens the push stream and feeds the timeline until ctx is done or the stream breaks.
func (c *Client) Listen(ctx context.Context) error {
	stream, err := c.api.Connect(c.outgoing(ctx), &pb.ConnectRequest{})
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	for {
		pbEvent, err := stream.Recv()
		if err != nil {
			// Normal exit if the user triggered a shutdown.
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		e, err := pb.ToEvent(pbEvent)
		if err != nil {
			c.log.Warn("Skipping malformed event", "type", pbEvent.GetType(), "error", err)
			continue
		}
		if connected, ok := e.Payload.(event.Connected); ok {
			c.mu.Lock()
			c.connectionID = connected.ConnectionID
			c.mu.Unlock()
			c.readyOnce.Do(func() { close(c.ready) })
		}
		if err := c.timeline.Consume(ctx, e); err != nil {
			c.log.Warn("Event not merged", "type", e.Type, "error", err)
		}
		c.onEvent(e)
	}
}

// WaitReady blocks until the server confirmed the push connection.
func (c *Client) WaitReady(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.ready:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.connectionID, nil
	}
}

// Open loads a chat, makes it active, joins its channel and marks it read.
// A failed mark-read is only logged, the next Open retries it.
func (c *Client) Open(ctx context.Context, chatID uuid.UUID) error {
	connectionID, err := c.WaitReady(ctx)
	if err != nil {
		return err
	}
	if _, err := c.api.JoinChat(c.outgoing(ctx), &pb.JoinChatRequest{
		ConnectionId: connectionID,
		ChatId:       chatID.String(),
	}); err != nil {
		return fmt.Errorf("join chat %s: %w", chatID, err)
	}
	res, err := c.api.FetchHistory(c.outgoing(ctx), &pb.FetchHistoryRequest{ChatId: chatID.String()})
	if err != nil {
		return fmt.Errorf("fetch history %s: %w", chatID, err)
	}
	history, err := pb.ToHistory(res)
	if err != nil {
		return err
	}
	c.timeline.Load(history)
	c.timeline.Open(chatID)

	if _, err := c.api.MarkRead(c.outgoing(ctx), &pb.MarkReadRequest{ChatId: chatID.String()}); err != nil {
		c.log.Debug("Mark read failed, retried on next open", "chat_id", chatID, "error", err)
	}
	return nil
}

// Acknowledge tells the senders of a chat that its messages reached this user,
// without reading them.
func (c *Client) Acknowledge(ctx context.Context, chatID uuid.UUID) (int, error) {
	res, err := c.api.MarkDelivered(c.outgoing(ctx), &pb.MarkDeliveredRequest{ChatId: chatID.String()})
	if err != nil {
		return 0, err
	}
	return len(res.MessageIds), nil
}

// Send posts a message to the active chat and records the confirmed copy.
// On failure nothing is recorded, the caller keeps its input.
func (c *Client) Send(ctx context.Context, content string) (domain.MessageView, error) {
	chatID := c.timeline.Active()
	if chatID == uuid.Nil {
		return domain.MessageView{}, fmt.Errorf("no chat is open")
	}
	res, err := c.api.SendMessage(c.outgoing(ctx), &pb.SendMessageRequest{ChatId: chatID.String(), Content: content})
	if err != nil {
		return domain.MessageView{}, err
	}
	view, err := pb.ToMessageView(res.Message)
	if err != nil {
		return domain.MessageView{}, err
	}
	c.timeline.Confirm(view)
	return view, nil
}

// Typing relays the indicator to the active chat.
func (c *Client) Typing(ctx context.Context, typing bool) error {
	chatID := c.timeline.Active()
	if chatID == uuid.Nil {
		return nil
	}
	connectionID, err := c.WaitReady(ctx)
	if err != nil {
		return err
	}
	_, err = c.api.Typing(c.outgoing(ctx), &pb.TypingRequest{
		ConnectionId: connectionID,
		ChatId:       chatID.String(),
		Typing:       typing,
	})
	return err
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}
