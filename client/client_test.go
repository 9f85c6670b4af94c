package client

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	pb "chat-relay/proto/chat"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type relay struct {
	conn   *grpc.ClientConn
	tokens *auth.TokenManager
	chats  repositories.ChatRepository
	log    *slog.Logger
}

func startRelay(t *testing.T) relay {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := runtime.NewRegistry(log)
	chats := repositories.NewChatRepository(db, log)
	coordinator := runtime.NewCoordinator(log, repositories.NewMessageRepository(db, log), chats,
		repositories.NewUserRepository(db, log), registry, 500)
	chatService := services.NewChatService(log, coordinator, registry, chats, services.Config{ConnectionBufferSize: 16})
	tokens := auth.NewTokenManager("a_test_secret_long_enough_for_hs256", time.Hour)

	listener := bufconn.Listen(1 << 20)
	s := server.NewGRPCServer(log, chatService, tokens)
	go func() { _ = s.Serve(listener) }()
	t.Cleanup(func() {
		chatService.Shutdown()
		s.Stop()
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		pb.WithJSONCodec(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return relay{conn: conn, tokens: tokens, chats: chats, log: log}
}

func (r relay) connect(t *testing.T, ctx context.Context, userID string, opts ...Option) *Client {
	token, err := r.tokens.Generate(userID)
	require.NoError(t, err)
	c := New(r.log, r.conn, userID, token, opts...)
	go func() { _ = c.Listen(ctx) }()
	_, err = c.WaitReady(ctx)
	require.NoError(t, err)
	return c
}

func statusOf(c *Client, chatID, messageID uuid.UUID) domain.Status {
	for _, entry := range c.Timeline().Messages(chatID) {
		if entry.Message.ID == messageID {
			return entry.Status
		}
	}
	return domain.StatusUnknown
}

func TestClient_Ticks_Follow_Delivery_And_Read(t *testing.T) {
	req := require.New(t)
	r := startRelay(t)
	chat := domain.NewChat("team", "alice", "bob")
	req.NoError(r.chats.SaveChat(chat))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan event.Event, 8)
	alice := r.connect(t, ctx, "alice")
	bob := r.connect(t, ctx, "bob", WithEventHandler(func(e event.Event) {
		if e.Type == event.ReceivedType {
			received <- e
		}
	}))

	// Given both have the chat open
	req.NoError(alice.Open(ctx, chat.ID))
	req.NoError(bob.Open(ctx, chat.ID))

	// When alice sends
	sent, err := alice.Send(ctx, "hello bob")
	req.NoError(err)

	// Then her copy is delivered right away and bob has it once
	req.Equal(domain.StatusDelivered, statusOf(alice, chat.ID, sent.ID))
	select {
	case <-received:
	case <-ctx.Done():
		req.Fail("bob never received the message")
	}
	req.Len(bob.Timeline().Messages(chat.ID), 1)
	req.Len(alice.Timeline().Messages(chat.ID), 1)

	// When bob views the chat again
	req.NoError(bob.Open(ctx, chat.ID))

	// Then alice sees the blue ticks
	req.Eventually(func() bool {
		return statusOf(alice, chat.ID, sent.ID) == domain.StatusSeen
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_Send_Without_Open_Chat_Fails(t *testing.T) {
	req := require.New(t)
	r := startRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := r.connect(t, ctx, "alice")

	_, err := alice.Send(ctx, "hello?")
	req.Error(err)
	req.Empty(alice.Timeline().Pending())
}
