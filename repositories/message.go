package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// defaultBatchWrites caps the messages rewritten by one transaction,
// well under badger's transaction size limit.
const defaultBatchWrites = 500

type MessageRepository struct {
	db          *badger.DB
	log         *slog.Logger
	batchWrites int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log, batchWrites: defaultBatchWrites}
}

type DiskMessage struct {
	ID          uuid.UUID `json:"id"`
	ChatID      uuid.UUID `json:"chat_id"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	At          time.Time `json:"at"`
	DeliveredTo []string  `json:"delivered_to"`
	ReadBy      []string  `json:"read_by"`
}

// messageKey is formatted as "msg:{chat_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.ChatID, m.CreatedAt.UnixNano(), m.ID))
}

func chatMessagesPrefix(chatID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", chatID))
}

// indexKey points a message id to its primary key.
func indexKey(messageID uuid.UUID) []byte {
	return []byte("msgidx:" + messageID.String())
}

// Create persists the message and its id index in one transaction,
// together with its initial status sets.
func (m MessageRepository) Create(message domain.Message) error {
	key := messageKey(message)
	return update(m.db, func(txn *badger.Txn) error {
		if err := setJSON(txn, key, fromMessage(message)); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID), key)
	})
}

func (m MessageRepository) Get(messageID uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := view(m.db, func(txn *badger.Txn) error {
		var err error
		message, _, err = m.get(txn, messageID)
		return err
	})
	return message, err
}

// ListByChat returns every message of the chat, oldest first.
// The padded timestamp in the key keeps a prefix scan chronological.
func (m MessageRepository) ListByChat(chatID uuid.UUID) ([]domain.Message, error) {
	var messages []domain.Message
	err := view(m.db, func(txn *badger.Txn) error {
		stored, err := m.scanChat(txn, chatID)
		messages = lo.Map(stored, func(item storedMessage, _ int) domain.Message {
			return item.message
		})
		return err
	})
	return messages, err
}

// AddDelivered adds userIDs to the deliveredTo set of one message.
func (m MessageRepository) AddDelivered(messageID uuid.UUID, userIDs []string) (domain.Message, error) {
	var message domain.Message
	err := update(m.db, func(txn *badger.Txn) error {
		var (
			key []byte
			err error
		)
		message, key, err = m.get(txn, messageID)
		if err != nil {
			return err
		}
		if !message.MarkDelivered(userIDs...) {
			return nil
		}
		return setJSON(txn, key, fromMessage(message))
	})
	return message, err
}

// MarkDelivered adds the recipient to deliveredTo on every message of the chat
// written by someone else. Only changed messages are returned.
func (m MessageRepository) MarkDelivered(chatID uuid.UUID, recipientID string) ([]domain.Message, error) {
	return m.markChat(chatID, func(message *domain.Message) bool {
		return message.MarkDelivered(recipientID)
	})
}

// MarkRead adds the reader to readBy and deliveredTo on every message of the
// chat not yet read by them. The reader's own messages are left untouched.
// Returns the ids that changed, so a replay returns nothing.
func (m MessageRepository) MarkRead(chatID uuid.UUID, readerID string) ([]uuid.UUID, error) {
	updated, err := m.markChat(chatID, func(message *domain.Message) bool {
		return message.MarkRead(readerID)
	})
	return lo.Map(updated, func(message domain.Message, _ int) uuid.UUID { return message.ID }), err
}

// markChat applies mark to every message of the chat and rewrites the changed ones.
// Each transaction rewrites at most batchWrites messages, or fewer when badger
// reports the transaction too big, then the chat is scanned again for the rest.
// Every message transitions in exactly one committed transaction. On error the
// batches already committed are returned with it.
func (m MessageRepository) markChat(chatID uuid.UUID, mark func(message *domain.Message) bool) ([]domain.Message, error) {
	var updated []domain.Message
	for {
		var (
			batch []domain.Message
			more  bool
		)
		err := update(m.db, func(txn *badger.Txn) error {
			batch, more = nil, false
			stored, err := m.scanChat(txn, chatID)
			if err != nil {
				return err
			}
			for _, s := range stored {
				if !mark(&s.message) {
					continue
				}
				if len(batch) == m.batchWrites {
					more = true
					return nil
				}
				if err := setJSON(txn, s.key, fromMessage(s.message)); err != nil {
					if stdErrors.Is(err, badger.ErrTxnTooBig) && len(batch) > 0 {
						more = true
						return nil
					}
					return err
				}
				batch = append(batch, s.message)
			}
			return nil
		})
		if err != nil {
			return updated, err
		}
		updated = append(updated, batch...)
		if !more {
			return updated, nil
		}
		m.log.Debug("Chat update continues in a new batch", "chat_id", chatID, "written", len(updated))
	}
}

func (m MessageRepository) get(txn *badger.Txn, messageID uuid.UUID) (domain.Message, []byte, error) {
	item, err := txn.Get(indexKey(messageID))
	if err != nil {
		return domain.Message{}, nil, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return domain.Message{}, nil, err
	}
	var diskMessage DiskMessage
	if err := getJSON(txn, key, &diskMessage); err != nil {
		return domain.Message{}, nil, err
	}
	return toMessage(diskMessage), key, nil
}

type storedMessage struct {
	key     []byte
	message domain.Message
}

// scanChat reads the whole chat before any write happens in the same transaction.
func (m MessageRepository) scanChat(txn *badger.Txn, chatID uuid.UUID) ([]storedMessage, error) {
	var stored []storedMessage
	err := scanPrefix(txn, chatMessagesPrefix(chatID), func(key, val []byte) error {
		var diskMessage DiskMessage
		if err := json.Unmarshal(val, &diskMessage); err != nil {
			m.log.Warn("Skipping unreadable message", "key", string(key), "error", err)
			return nil
		}
		stored = append(stored, storedMessage{key: key, message: toMessage(diskMessage)})
		return nil
	})
	return stored, err
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:          message.ID,
		ChatID:      message.ChatID,
		SenderID:    message.SenderID,
		Content:     message.Content,
		At:          message.CreatedAt,
		DeliveredTo: lo.Ternary(message.DeliveredTo == nil, []string{}, []string(message.DeliveredTo)),
		ReadBy:      lo.Ternary(message.ReadBy == nil, []string{}, []string(message.ReadBy)),
	}
}

func toMessage(diskMessage DiskMessage) domain.Message {
	return domain.Message{
		ID:          diskMessage.ID,
		ChatID:      diskMessage.ChatID,
		SenderID:    diskMessage.SenderID,
		Content:     diskMessage.Content,
		CreatedAt:   diskMessage.At.UTC(),
		DeliveredTo: domain.NewUserSet(diskMessage.DeliveredTo...),
		ReadBy:      domain.NewUserSet(diskMessage.ReadBy...),
	}
}
