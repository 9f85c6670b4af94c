//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink accepts pushed events. Consume must never block on a slow reader.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// Connection is one open push stream (a gRPC stream or a websocket).
type Connection interface {
	EventSink
	ID() string
	Closed() bool
}

// IRegistry routes push events to the connections joined on a channel.
type IRegistry interface {
	Subscribe(conn Connection, userID string)
	JoinChat(conn Connection, chatID uuid.UUID)
	LeaveChat(conn Connection, chatID uuid.UUID)
	Disconnect(conn Connection)
	Connection(connectionID string) (Connection, string, bool)
	ReachableUsers(chatID uuid.UUID) []string
	Broadcast(ctx context.Context, channel event.Channel, e event.Event) error
	BroadcastExcept(ctx context.Context, channel event.Channel, e event.Event, connectionID string) error
	Reap() int
	Stats() domain.PresenceStats
	Close()
}

// MessageStore persists messages and their status sets.
// Every method is one atomic write or read.
type MessageStore interface {
	Create(message domain.Message) error
	Get(messageID uuid.UUID) (domain.Message, error)
	ListByChat(chatID uuid.UUID) ([]domain.Message, error)
	AddDelivered(messageID uuid.UUID, userIDs []string) (domain.Message, error)
	MarkDelivered(chatID uuid.UUID, recipientID string) ([]domain.Message, error)
	MarkRead(chatID uuid.UUID, readerID string) ([]uuid.UUID, error)
}

// ChatDirectory resolves chats and their participant roster.
type ChatDirectory interface {
	GetChat(chatID uuid.UUID) (domain.Chat, error)
	SaveChat(chat domain.Chat) error
	SetLatestMessage(chatID, messageID uuid.UUID) error
	ListChats() ([]domain.Chat, error)
}

type UserDirectory interface {
	GetUser(userID string) (domain.User, error)
	SaveUser(user domain.User) error
	ListUsers() ([]domain.User, error)
}

// ICoordinator owns message creation and status transitions.
type ICoordinator interface {
	CreateMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.MessageView, error)
	MarkRead(ctx context.Context, cmd domain.MarkReadCommand) (domain.ReadReceipt, error)
	MarkDelivered(ctx context.Context, cmd domain.MarkDeliveredCommand) (domain.DeliveryReceipt, error)
	FetchHistory(ctx context.Context, cmd domain.FetchHistoryCommand) (domain.History, error)
	Typing(ctx context.Context, cmd domain.TypingCommand) error
}
