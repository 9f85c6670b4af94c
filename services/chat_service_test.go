package services

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type serviceMocks struct {
	coordinator *mocks.MockICoordinator
	registry    *mocks.MockIRegistry
	chats       *mocks.MockChatDirectory
}

func newMockedService(t *testing.T, config Config) (*ChatService, serviceMocks) {
	ctrl := gomock.NewController(t)
	m := serviceMocks{
		coordinator: mocks.NewMockICoordinator(ctrl),
		registry:    mocks.NewMockIRegistry(ctrl),
		chats:       mocks.NewMockChatDirectory(ctrl),
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewChatService(log, m.coordinator, m.registry, m.chats, config), m
}

func TestChatService_Connect_Queues_Connected_First(t *testing.T) {
	req := require.New(t)
	service, m := newMockedService(t, Config{ConnectionBufferSize: 4})

	m.registry.EXPECT().Subscribe(gomock.Any(), "alice")

	// When alice connects
	conn := service.Connect("alice")

	// Then the first queued event carries her connection id
	e := <-conn.Events()
	req.Equal(event.ConnectedType, e.Type)
	req.Equal(event.Connected{ConnectionID: conn.ID(), UserID: "alice"}, e.Payload)

	// When she disconnects
	m.registry.EXPECT().Disconnect(conn)
	service.Disconnect(conn)

	// Then the sink is closed
	req.True(conn.Closed())
}

func TestChatService_JoinChat(t *testing.T) {
	chat := domain.NewChat("team", "alice", "bob")

	t.Run("joins a chat the user takes part in", func(t *testing.T) {
		req := require.New(t)
		service, m := newMockedService(t, Config{})
		conn := mocks.NewMockConnection(gomock.NewController(t))

		m.registry.EXPECT().Connection("conn-1").Return(conn, "alice", true)
		m.chats.EXPECT().GetChat(chat.ID).Return(chat, nil)
		m.registry.EXPECT().JoinChat(conn, chat.ID)

		req.NoError(service.JoinChat("alice", "conn-1", chat.ID.String()))
	})

	t.Run("rejects a connection owned by someone else", func(t *testing.T) {
		req := require.New(t)
		service, m := newMockedService(t, Config{})
		conn := mocks.NewMockConnection(gomock.NewController(t))

		m.registry.EXPECT().Connection("conn-1").Return(conn, "bob", true)

		err := service.JoinChat("alice", "conn-1", chat.ID.String())
		req.ErrorIs(err, errors.ErrUnknownConnection)
	})

	t.Run("hides a chat the user is not part of", func(t *testing.T) {
		req := require.New(t)
		service, m := newMockedService(t, Config{})
		conn := mocks.NewMockConnection(gomock.NewController(t))

		m.registry.EXPECT().Connection("conn-1").Return(conn, "eve", true)
		m.chats.EXPECT().GetChat(chat.ID).Return(chat, nil)

		err := service.JoinChat("eve", "conn-1", chat.ID.String())
		req.ErrorIs(err, errors.ErrNotFound)
	})

	t.Run("rejects a malformed chat id", func(t *testing.T) {
		req := require.New(t)
		service, m := newMockedService(t, Config{})
		conn := mocks.NewMockConnection(gomock.NewController(t))

		m.registry.EXPECT().Connection("conn-1").Return(conn, "alice", true)

		err := service.JoinChat("alice", "conn-1", "general")
		req.ErrorIs(err, errors.ErrInvalidArgument)
	})
}

func TestChatService_LeaveChat(t *testing.T) {
	req := require.New(t)
	service, m := newMockedService(t, Config{})
	conn := mocks.NewMockConnection(gomock.NewController(t))
	chatID := uuid.New()

	m.registry.EXPECT().Connection("conn-1").Return(conn, "alice", true)
	m.registry.EXPECT().LeaveChat(conn, chatID)

	req.NoError(service.LeaveChat("alice", "conn-1", chatID.String()))

	m.registry.EXPECT().Connection("conn-2").Return(nil, "", false)
	req.ErrorIs(service.LeaveChat("alice", "conn-2", chatID.String()), errors.ErrUnknownConnection)
}

func TestChatService_Typing_Is_Rate_Limited_Per_Connection(t *testing.T) {
	req := require.New(t)
	service, m := newMockedService(t, Config{ConnectionBufferSize: 4, TypingRate: time.Hour, TypingBurst: 2})
	chat := domain.NewChat("team", "alice", "bob")
	chatID := chat.ID.String()

	m.registry.EXPECT().Subscribe(gomock.Any(), "alice")
	conn := service.Connect("alice")
	m.registry.EXPECT().Connection(conn.ID()).Return(conn, "alice", true).Times(3)
	m.chats.EXPECT().GetChat(chat.ID).Return(chat, nil).Times(3)

	// Only the burst reaches the coordinator
	m.coordinator.EXPECT().Typing(gomock.Any(), domain.TypingCommand{
		UserID: "alice", ConnectionID: conn.ID(), ChatID: chatID, Typing: true,
	}).Return(nil).Times(2)

	// When alice types three times in a row
	for i := 0; i < 3; i++ {
		// Then the dropped one is silent
		req.NoError(service.Typing(context.Background(), "alice", conn.ID(), chatID, true))
	}
}

func TestChatService_Typing_Requires_Participation(t *testing.T) {
	req := require.New(t)
	service, m := newMockedService(t, Config{ConnectionBufferSize: 4})
	chat := domain.NewChat("team", "bob", "clara")
	unknown := uuid.New()

	m.registry.EXPECT().Subscribe(gomock.Any(), "alice")
	conn := service.Connect("alice")
	m.registry.EXPECT().Connection(conn.ID()).Return(conn, "alice", true).AnyTimes()
	m.chats.EXPECT().GetChat(chat.ID).Return(chat, nil)
	m.chats.EXPECT().GetChat(unknown).Return(domain.Chat{}, errors.ErrNotFound)

	// Then nothing reaches the coordinator, the mock expects no Typing call
	req.ErrorIs(service.Typing(context.Background(), "alice", conn.ID(), chat.ID.String(), true), errors.ErrNotFound)
	req.ErrorIs(service.Typing(context.Background(), "alice", conn.ID(), unknown.String(), true), errors.ErrNotFound)
	req.ErrorIs(service.Typing(context.Background(), "alice", conn.ID(), "not-a-uuid", true), errors.ErrInvalidArgument)
}

func TestChatService_Delegates_Messaging_To_Coordinator(t *testing.T) {
	req := require.New(t)
	service, m := newMockedService(t, Config{})
	ctx := context.Background()
	chatID := uuid.New()
	send := domain.SendMessageCommand{SenderID: "alice", ChatID: chatID.String(), Content: "hi"}
	read := domain.MarkReadCommand{ReaderID: "bob", ChatID: chatID.String()}

	m.coordinator.EXPECT().CreateMessage(ctx, send).Return(domain.MessageView{}, errors.ErrStorageUnavailable)
	m.coordinator.EXPECT().MarkRead(ctx, read).Return(domain.ReadReceipt{ChatID: chatID, ReaderID: "bob"}, nil)

	_, err := service.SendMessage(ctx, send)
	req.ErrorIs(err, errors.ErrStorageUnavailable)

	receipt, err := service.MarkRead(ctx, read)
	req.NoError(err)
	req.Equal("bob", receipt.ReaderID)
}

func TestChatService_Shutdown_Closes_Every_Connection(t *testing.T) {
	req := require.New(t)
	service, m := newMockedService(t, Config{ConnectionBufferSize: 4})

	m.registry.EXPECT().Subscribe(gomock.Any(), gomock.Any()).Times(2)
	first := service.Connect("alice")
	second := service.Connect("bob")

	m.registry.EXPECT().Disconnect(gomock.Any()).Times(2)
	service.Shutdown()

	req.True(first.Closed())
	req.True(second.Closed())
	req.Empty(service.connections)
}
