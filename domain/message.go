// Package domain contains core concepts of the chat system.
// This file defines Message and its delivery / read progress.
// Immutable fields never change once created, only the two status sets grow.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Message represents a chat message and its per-recipient progress.
type Message struct {
	ID          uuid.UUID // unique identifier
	ChatID      uuid.UUID
	SenderID    string
	Content     string
	CreatedAt   time.Time
	DeliveredTo UserSet
	ReadBy      UserSet
}

// MessageView is a Message whose sender has been resolved for display.
type MessageView struct {
	Message
	Sender User
}

// MarkDelivered adds the given users to DeliveredTo.
// The sender is never recorded. Reports whether the set grew.
func (m *Message) MarkDelivered(userIDs ...string) bool {
	var changed bool
	m.DeliveredTo, changed = m.DeliveredTo.Add(m.withoutSender(userIDs)...)
	return changed
}

// MarkRead adds the reader to both ReadBy and DeliveredTo.
// A message can't be seen without being delivered.
func (m *Message) MarkRead(readerID string) bool {
	if readerID == m.SenderID {
		return false
	}
	var delivered, read bool
	m.DeliveredTo, delivered = m.DeliveredTo.Add(readerID)
	m.ReadBy, read = m.ReadBy.Add(readerID)
	return delivered || read
}

// Merge unions the status sets of other into m.
// Both sides must describe the same message.
func (m *Message) Merge(other Message) bool {
	delivered := m.MarkDelivered(other.DeliveredTo...)
	read := false
	for _, userID := range other.ReadBy {
		if m.MarkRead(userID) {
			read = true
		}
	}
	return delivered || read
}

// RecipientStatus is the status seen by a recipient of the message.
func (m Message) RecipientStatus(viewerID string) Status {
	switch {
	case m.ReadBy.Contains(viewerID):
		return StatusSeen
	case m.DeliveredTo.Contains(viewerID):
		return StatusDelivered
	default:
		return StatusSent
	}
}

// SenderStatus is the aggregated status seen by the author.
// participants is the chat roster, the sender may or may not be part of it.
func (m Message) SenderStatus(participants []string) Status {
	if len(m.DeliveredTo) == 0 {
		return StatusSent
	}
	if !m.ReadBy.ContainsAll(lo.Without(participants, m.SenderID)) {
		return StatusDelivered
	}
	return StatusSeen
}

// StatusFor derives the status of the message from the viewer's point of view.
func (m Message) StatusFor(viewerID string, participants []string) Status {
	if viewerID == m.SenderID {
		return m.SenderStatus(participants)
	}
	return m.RecipientStatus(viewerID)
}

func (m Message) withoutSender(userIDs []string) []string {
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id != m.SenderID && id != "" {
			out = append(out, id)
		}
	}
	return out
}
