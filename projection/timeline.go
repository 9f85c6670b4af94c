// Package projection builds local timelines from observed events.
// Handles ordering, deduplication and status reconciliation.
// Does not emit events or interact with UI directly.
package projection

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Entry is one message of a chat as the viewer sees it.
type Entry struct {
	Message domain.MessageView
	Status  domain.Status
}

type chatTimeline struct {
	participants []string
	messages     []domain.MessageView // ordered by CreatedAt, then ID
	typing       map[string]struct{}
}

// Timeline holds the viewer's local copy of the chats it opened.
// It merges pushed events into fetched history: an id appears at most once
// and a message status never moves backward.
type Timeline struct {
	mu       sync.Mutex
	viewerID string
	active   uuid.UUID
	chats    map[uuid.UUID]*chatTimeline
	pending  []domain.MessageView
}

func NewTimeline(viewerID string) *Timeline {
	return &Timeline{
		viewerID: viewerID,
		chats:    make(map[uuid.UUID]*chatTimeline),
	}
}

// Load merges fetched history into the local sequence of a chat.
// A snapshot older than what was already pushed never lowers a status,
// and messages missing from it are kept.
func (t *Timeline) Load(history domain.History) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.chats[history.Chat.ID]
	if !ok {
		c = &chatTimeline{typing: make(map[string]struct{})}
		t.chats[history.Chat.ID] = c
	}
	c.participants = history.Chat.Participants
	for _, view := range history.Messages {
		c.upsert(view)
	}
}

// Open makes the chat the active one. Its pending notifications move into
// its sequence, merged by id with what history already brought.
func (t *Timeline) Open(chatID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = chatID
	c, ok := t.chats[chatID]
	if !ok {
		return
	}
	opened, rest := lo.FilterReject(t.pending, func(view domain.MessageView, _ int) bool {
		return view.ChatID == chatID
	})
	for _, view := range opened {
		c.upsert(view)
	}
	t.pending = rest
}

func (t *Timeline) Active() uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Confirm records the server's answer to our own send.
// Reports false when the message was already known, the push may have won the race.
func (t *Timeline) Confirm(view domain.MessageView) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.chats[view.ChatID]
	if !ok {
		return false
	}
	return c.upsert(view)
}

// Consume merges a pushed event. Unknown chats and ids are ignored, except
// for received messages of an inactive chat which become pending notifications.
func (t *Timeline) Consume(_ context.Context, e event.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch payload := e.Payload.(type) {
	case event.Connected:
		return nil
	case event.Received:
		t.received(payload.Message)
	case event.Delivered:
		t.apply(payload.ChatID, payload.MessageIDs, func(m *domain.Message) {
			m.MarkDelivered(payload.RecipientIDs...)
		})
	case event.Seen:
		t.apply(payload.ChatID, payload.MessageIDs, func(m *domain.Message) {
			m.MarkRead(payload.ReaderID)
		})
	case event.Typing:
		t.typing(payload, e.Type == event.TypingType)
	default:
		return fmt.Errorf("unsupported event payload %T", e.Payload)
	}
	return nil
}

// Messages returns the ordered entries of a chat with the status the viewer sees.
func (t *Timeline) Messages(chatID uuid.UUID) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.chats[chatID]
	if !ok {
		return nil
	}
	return lo.Map(c.messages, func(view domain.MessageView, _ int) Entry {
		return Entry{Message: view, Status: view.StatusFor(t.viewerID, c.participants)}
	})
}

// Pending lists messages received for chats that were not active at the time.
func (t *Timeline) Pending() []domain.MessageView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.pending)
}

// Typing lists who is typing in a chat, sorted.
func (t *Timeline) Typing(chatID uuid.UUID) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.chats[chatID]
	if !ok {
		return nil
	}
	users := lo.Keys(c.typing)
	slices.Sort(users)
	return users
}

func (t *Timeline) received(view domain.MessageView) {
	c, ok := t.chats[view.ChatID]
	if ok && view.ChatID == t.active {
		c.upsert(view)
		// A message from someone ends their typing.
		delete(c.typing, view.SenderID)
		return
	}
	if lo.ContainsBy(t.pending, func(p domain.MessageView) bool { return p.ID == view.ID }) {
		return
	}
	t.pending = append(t.pending, view)
}

// apply merges a status change into the chat's sequence and into pending
// notifications, so a message opened later keeps it.
func (t *Timeline) apply(chatID uuid.UUID, ids []uuid.UUID, merge func(m *domain.Message)) {
	for i := range t.pending {
		if t.pending[i].ChatID == chatID && slices.Contains(ids, t.pending[i].ID) {
			merge(&t.pending[i].Message)
		}
	}
	c, ok := t.chats[chatID]
	if !ok {
		return
	}
	for _, id := range ids {
		if i := c.indexOf(id); i >= 0 {
			merge(&c.messages[i].Message)
		}
	}
}

func (t *Timeline) typing(payload event.Typing, typing bool) {
	c, ok := t.chats[payload.ChatID]
	if !ok || payload.UserID == t.viewerID {
		return
	}
	if typing {
		c.typing[payload.UserID] = struct{}{}
		return
	}
	delete(c.typing, payload.UserID)
}

// upsert inserts a message at its place, or merges its status into the known copy.
// Reports whether a new entry was created.
func (c *chatTimeline) upsert(view domain.MessageView) bool {
	if i := c.indexOf(view.ID); i >= 0 {
		c.messages[i].Merge(view.Message)
		return false
	}
	at, _ := slices.BinarySearchFunc(c.messages, view, compareMessages)
	c.messages = slices.Insert(c.messages, at, view)
	return true
}

func (c *chatTimeline) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(c.messages, func(view domain.MessageView) bool { return view.ID == id })
}

func compareMessages(a, b domain.MessageView) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return slices.Compare(a.ID[:], b.ID[:])
}
