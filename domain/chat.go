package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Chat is a conversation between a fixed roster of participants.
// Roster changes are owned by another system, only LatestMessageID moves here.
type Chat struct {
	ID              uuid.UUID
	Name            string
	Participants    []string
	LatestMessageID *uuid.UUID
	CreatedAt       time.Time
}

func NewChat(name string, participants ...string) Chat {
	return Chat{
		ID:           uuid.New(),
		Name:         name,
		Participants: NewUserSet(participants...),
		CreatedAt:    time.Now().UTC(),
	}
}

func (c Chat) IsParticipant(userID string) bool {
	return lo.Contains(c.Participants, userID)
}

// Recipients lists every participant except the sender.
func (c Chat) Recipients(senderID string) []string {
	return lo.Without(c.Participants, senderID)
}

// History is a chat roster together with its ordered messages.
type History struct {
	Chat     Chat
	Messages []MessageView
}
