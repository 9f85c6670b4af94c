package event

import (
	"chat-relay/domain"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ConnectedType  Type = "connected"
	ReceivedType   Type = "received"
	DeliveredType  Type = "delivered"
	SeenType       Type = "seen"
	TypingType     Type = "typing"
	StopTypingType Type = "stop typing"
)

// Event is the envelope pushed to connections.
// Payload is one of the structs below, matching Type.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

// Connected is the first event of every push connection.
type Connected struct {
	ConnectionID string
	UserID       string
}

// Received carries a freshly persisted message to the chat channel.
type Received struct {
	Message domain.MessageView
}

// Delivered acknowledges to a sender that recipients got their messages.
type Delivered struct {
	ChatID       uuid.UUID
	MessageIDs   []uuid.UUID
	RecipientIDs []string
}

// Seen tells a chat that a reader has read the listed messages.
type Seen struct {
	ChatID     uuid.UUID
	ReaderID   string
	MessageIDs []uuid.UUID
}

// Typing is used for both typing and stop typing.
type Typing struct {
	ChatID uuid.UUID
	UserID string
}

func NewConnected(connectionID, userID string) Event {
	return newEvent(ConnectedType, Connected{ConnectionID: connectionID, UserID: userID})
}

func NewReceived(message domain.MessageView) Event {
	return newEvent(ReceivedType, Received{Message: message})
}

func NewDelivered(chatID uuid.UUID, messageIDs []uuid.UUID, recipientIDs []string) Event {
	return newEvent(DeliveredType, Delivered{ChatID: chatID, MessageIDs: messageIDs, RecipientIDs: recipientIDs})
}

func NewSeen(chatID uuid.UUID, readerID string, messageIDs []uuid.UUID) Event {
	return newEvent(SeenType, Seen{ChatID: chatID, ReaderID: readerID, MessageIDs: messageIDs})
}

func NewTyping(chatID uuid.UUID, userID string, typing bool) Event {
	eventType := StopTypingType
	if typing {
		eventType = TypingType
	}
	return newEvent(eventType, Typing{ChatID: chatID, UserID: userID})
}

func newEvent(eventType Type, payload any) Event {
	return Event{Type: eventType, CreatedAt: time.Now().UTC(), Payload: payload}
}
