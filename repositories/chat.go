package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const chatPrefix = "chat:"

type ChatRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewChatRepository(db *badger.DB, log *slog.Logger) ChatRepository {
	return ChatRepository{db: db, log: log}
}

type DiskChat struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Participants    []string   `json:"participants"`
	LatestMessageID *uuid.UUID `json:"latest_message_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func chatKey(chatID uuid.UUID) []byte {
	return []byte(chatPrefix + chatID.String())
}

func (c ChatRepository) GetChat(chatID uuid.UUID) (domain.Chat, error) {
	var diskChat DiskChat
	err := view(c.db, func(txn *badger.Txn) error {
		return getJSON(txn, chatKey(chatID), &diskChat)
	})
	if err != nil {
		return domain.Chat{}, err
	}
	return toChat(diskChat), nil
}

func (c ChatRepository) SaveChat(chat domain.Chat) error {
	return update(c.db, func(txn *badger.Txn) error {
		return setJSON(txn, chatKey(chat.ID), fromChat(chat))
	})
}

// SetLatestMessage moves the chat's latest message reference.
func (c ChatRepository) SetLatestMessage(chatID, messageID uuid.UUID) error {
	return update(c.db, func(txn *badger.Txn) error {
		var diskChat DiskChat
		if err := getJSON(txn, chatKey(chatID), &diskChat); err != nil {
			return err
		}
		diskChat.LatestMessageID = &messageID
		return setJSON(txn, chatKey(chatID), diskChat)
	})
}

func (c ChatRepository) ListChats() ([]domain.Chat, error) {
	var chats []domain.Chat
	err := view(c.db, func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(chatPrefix), func(key, val []byte) error {
			var diskChat DiskChat
			if err := json.Unmarshal(val, &diskChat); err != nil {
				c.log.Warn("Skipping unreadable chat", "key", string(key), "error", err)
				return nil
			}
			chats = append(chats, toChat(diskChat))
			return nil
		})
	})
	return chats, err
}

func fromChat(chat domain.Chat) DiskChat {
	return DiskChat{
		ID:              chat.ID,
		Name:            chat.Name,
		Participants:    chat.Participants,
		LatestMessageID: chat.LatestMessageID,
		CreatedAt:       chat.CreatedAt,
	}
}

func toChat(diskChat DiskChat) domain.Chat {
	return domain.Chat{
		ID:              diskChat.ID,
		Name:            diskChat.Name,
		Participants:    domain.NewUserSet(diskChat.Participants...),
		LatestMessageID: diskChat.LatestMessageID,
		CreatedAt:       diskChat.CreatedAt.UTC(),
	}
}
