package domain

import "github.com/google/uuid"

// SendMessageCommand asks for a new message to be persisted and pushed.
type SendMessageCommand struct {
	SenderID string `validate:"required"`
	ChatID   string `validate:"required,uuid"`
	Content  string `validate:"required"`
}

type MarkReadCommand struct {
	ReaderID string `validate:"required"`
	ChatID   string `validate:"required,uuid"`
}

type MarkDeliveredCommand struct {
	RecipientID string `validate:"required"`
	ChatID      string `validate:"required,uuid"`
}

type FetchHistoryCommand struct {
	ChatID string `validate:"required,uuid"`
}

// TypingCommand relays a typing indicator from one connection to a chat.
type TypingCommand struct {
	UserID       string `validate:"required"`
	ConnectionID string `validate:"required"`
	ChatID       string `validate:"required,uuid"`
	Typing       bool
}

// ReadReceipt lists the messages that moved to seen for a reader.
type ReadReceipt struct {
	ChatID     uuid.UUID
	ReaderID   string
	MessageIDs []uuid.UUID
}

func (r ReadReceipt) Count() int { return len(r.MessageIDs) }

// DeliveryReceipt lists the messages that moved to delivered for a recipient.
type DeliveryReceipt struct {
	ChatID      uuid.UUID
	RecipientID string
	MessageIDs  []uuid.UUID
}

func (r DeliveryReceipt) Count() int { return len(r.MessageIDs) }
