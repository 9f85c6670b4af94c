package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/sink"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

// IChatService is what both transports (gRPC and HTTP) talk to.
// Every method takes the authenticated user id, never one from the payload.
type IChatService interface {
	Connect(userID string) *sink.ConnectionSink
	Disconnect(conn *sink.ConnectionSink)
	Shutdown()
	JoinChat(userID, connectionID, chatID string) error
	LeaveChat(userID, connectionID, chatID string) error
	Typing(ctx context.Context, userID, connectionID, chatID string, typing bool) error
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.MessageView, error)
	MarkRead(ctx context.Context, cmd domain.MarkReadCommand) (domain.ReadReceipt, error)
	MarkDelivered(ctx context.Context, cmd domain.MarkDeliveredCommand) (domain.DeliveryReceipt, error)
	FetchHistory(ctx context.Context, cmd domain.FetchHistoryCommand) (domain.History, error)
}

type Config struct {
	ConnectionBufferSize int
	TypingRate           time.Duration // minimum spacing between typing events of one connection
	TypingBurst          int
}

type ChatService struct {
	log         *slog.Logger
	coordinator contract.ICoordinator
	registry    contract.IRegistry
	chats       contract.ChatDirectory
	config      Config

	mu          sync.Mutex
	connections map[string]openConnection
}

type openConnection struct {
	sink    *sink.ConnectionSink
	limiter *rate.Limiter // typing indicators
}

func NewChatService(
	log *slog.Logger,
	coordinator contract.ICoordinator,
	registry contract.IRegistry,
	chats contract.ChatDirectory,
	config Config,
) *ChatService {
	if config.ConnectionBufferSize < 1 {
		config.ConnectionBufferSize = 1
	}
	if config.TypingBurst < 1 {
		config.TypingBurst = 1
	}
	return &ChatService{
		log:         log,
		coordinator: coordinator,
		registry:    registry,
		chats:       chats,
		config:      config,
		connections: make(map[string]openConnection),
	}
}

// Connect opens a push connection for the user and subscribes it to the user channel.
// The "connected" event is queued first, so the transport always sends it before anything else.
func (s *ChatService) Connect(userID string) *sink.ConnectionSink {
	conn := sink.NewConnectionSink(s.config.ConnectionBufferSize)
	_ = conn.Consume(context.Background(), event.NewConnected(conn.ID(), userID))
	s.registry.Subscribe(conn, userID)

	limit := rate.Inf
	if s.config.TypingRate > 0 {
		limit = rate.Every(s.config.TypingRate)
	}
	s.mu.Lock()
	s.connections[conn.ID()] = openConnection{sink: conn, limiter: rate.NewLimiter(limit, s.config.TypingBurst)}
	s.mu.Unlock()

	s.log.Debug("Connection opened", "connection_id", conn.ID(), "user_id", userID)
	return conn
}

// Disconnect closes the connection and removes it from every channel. Idempotent.
func (s *ChatService) Disconnect(conn *sink.ConnectionSink) {
	conn.Close()
	s.registry.Disconnect(conn)

	s.mu.Lock()
	delete(s.connections, conn.ID())
	s.mu.Unlock()

	s.log.Debug("Connection closed", "connection_id", conn.ID())
}

// Shutdown closes every open connection so that transport handlers return.
func (s *ChatService) Shutdown() {
	s.mu.Lock()
	open := lo.Values(s.connections)
	s.mu.Unlock()

	for _, c := range open {
		s.Disconnect(c.sink)
	}
	s.log.Info("All push connections closed", "count", len(open))
}

// JoinChat puts an owned connection on the channel of a chat the user takes part in.
func (s *ChatService) JoinChat(userID, connectionID, chatID string) error {
	conn, err := s.ownedConnection(userID, connectionID)
	if err != nil {
		return err
	}
	chat, err := s.participantChat(userID, chatID)
	if err != nil {
		return err
	}
	s.registry.JoinChat(conn, chat.ID)
	return nil
}

func (s *ChatService) LeaveChat(userID, connectionID, chatID string) error {
	conn, err := s.ownedConnection(userID, connectionID)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(chatID)
	if err != nil {
		return fmt.Errorf("%w: chat id %q", errors.ErrInvalidArgument, chatID)
	}
	s.registry.LeaveChat(conn, id)
	return nil
}

// Typing relays a typing indicator to a chat the user takes part in.
// Indicators over the connection's rate are dropped silently.
func (s *ChatService) Typing(ctx context.Context, userID, connectionID, chatID string, typing bool) error {
	if _, err := s.ownedConnection(userID, connectionID); err != nil {
		return err
	}
	if _, err := s.participantChat(userID, chatID); err != nil {
		return err
	}
	if !s.allowTyping(connectionID) {
		s.log.Debug("Typing indicator rate limited", "connection_id", connectionID, "chat_id", chatID)
		return nil
	}
	return s.coordinator.Typing(ctx, domain.TypingCommand{
		UserID:       userID,
		ConnectionID: connectionID,
		ChatID:       chatID,
		Typing:       typing,
	})
}

func (s *ChatService) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.MessageView, error) {
	return s.coordinator.CreateMessage(ctx, cmd)
}

func (s *ChatService) MarkRead(ctx context.Context, cmd domain.MarkReadCommand) (domain.ReadReceipt, error) {
	return s.coordinator.MarkRead(ctx, cmd)
}

func (s *ChatService) MarkDelivered(ctx context.Context, cmd domain.MarkDeliveredCommand) (domain.DeliveryReceipt, error) {
	return s.coordinator.MarkDelivered(ctx, cmd)
}

func (s *ChatService) FetchHistory(ctx context.Context, cmd domain.FetchHistoryCommand) (domain.History, error) {
	return s.coordinator.FetchHistory(ctx, cmd)
}

// ownedConnection resolves a connection and checks it was opened by the caller.
// A foreign connection is reported as unknown.
func (s *ChatService) ownedConnection(userID, connectionID string) (contract.Connection, error) {
	conn, owner, ok := s.registry.Connection(connectionID)
	if !ok || owner != userID {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownConnection, connectionID)
	}
	return conn, nil
}

// participantChat hides chats the user does not take part in behind NotFound.
func (s *ChatService) participantChat(userID, chatID string) (domain.Chat, error) {
	id, err := uuid.Parse(chatID)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("%w: chat id %q", errors.ErrInvalidArgument, chatID)
	}
	chat, err := s.chats.GetChat(id)
	if err != nil {
		if stdErrors.Is(err, errors.ErrNotFound) {
			return domain.Chat{}, fmt.Errorf("%w: chat %s", errors.ErrNotFound, id)
		}
		return domain.Chat{}, err
	}
	if !chat.IsParticipant(userID) {
		return domain.Chat{}, fmt.Errorf("%w: chat %s", errors.ErrNotFound, id)
	}
	return chat, nil
}

func (s *ChatService) allowTyping(connectionID string) bool {
	s.mu.Lock()
	c, ok := s.connections[connectionID]
	s.mu.Unlock()
	return ok && c.limiter.Allow()
}
