package event

import "github.com/google/uuid"

// Channel names a push destination: one per user and one per chat.
type Channel string

func UserChannel(userID string) Channel {
	return Channel("user:" + userID)
}

func ChatChannel(chatID uuid.UUID) Channel {
	return Channel("chat:" + chatID.String())
}
