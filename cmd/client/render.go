package main

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/projection"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/samber/lo"
)

// renderer prints the active chat of a timeline to a terminal.
type renderer struct {
	out      io.Writer
	timeline *projection.Timeline
	viewerID string
	colours  bool
}

// Ticks are gray for sent and delivered, blue once seen.
func (r renderer) ticks(status domain.Status) string {
	switch status {
	case domain.StatusSent:
		return r.paint(color.Gray, "✓")
	case domain.StatusDelivered:
		return r.paint(color.Gray, "✓✓")
	case domain.StatusSeen:
		return r.paint(color.Blue, "✓✓")
	default:
		return ""
	}
}

func (r renderer) paint(c color.Color, s string) string {
	if !r.colours {
		return s
	}
	return c.Render(s)
}

func (r renderer) line(entry projection.Entry) string {
	m := entry.Message
	author := r.paint(color.Cyan, m.Sender.Name)
	if m.SenderID == r.viewerID {
		author = r.paint(color.Green, "me")
	}
	return fmt.Sprintf("[%s] %s: %s %s", m.CreatedAt.Local().Format(time.TimeOnly), author, m.Content, r.ticks(entry.Status))
}

// History prints every message of the chat, oldest first.
func (r renderer) History(chatID uuid.UUID) {
	for _, entry := range r.timeline.Messages(chatID) {
		fmt.Fprintln(r.out, r.line(entry))
	}
}

// Event prints what changed after e was merged into the timeline.
func (r renderer) Event(e event.Event) {
	active := r.timeline.Active()
	switch payload := e.Payload.(type) {
	case event.Received:
		if payload.Message.ChatID != active {
			fmt.Fprintln(r.out, r.paint(color.Yellow, fmt.Sprintf("(new message in %s)", payload.Message.ChatID)))
			return
		}
		if entry, ok := r.find(active, payload.Message.ID); ok {
			fmt.Fprintln(r.out, r.line(entry))
		}
	case event.Delivered:
		r.statusChanged(payload.ChatID, payload.MessageIDs)
	case event.Seen:
		if payload.ReaderID != r.viewerID {
			r.statusChanged(payload.ChatID, payload.MessageIDs)
		}
	case event.Typing:
		if payload.ChatID != active {
			return
		}
		if typing := r.timeline.Typing(active); len(typing) > 0 {
			fmt.Fprintln(r.out, r.paint(color.Gray, strings.Join(typing, ", ")+" typing..."))
		}
	}
}

func (r renderer) statusChanged(chatID uuid.UUID, ids []uuid.UUID) {
	if chatID != r.timeline.Active() {
		return
	}
	for _, id := range ids {
		if entry, ok := r.find(chatID, id); ok && entry.Message.SenderID == r.viewerID {
			fmt.Fprintf(r.out, "  %s %s\n", r.paint(color.Gray, shortID(id)), r.ticks(entry.Status))
		}
	}
}

func (r renderer) find(chatID, messageID uuid.UUID) (projection.Entry, bool) {
	return lo.Find(r.timeline.Messages(chatID), func(entry projection.Entry) bool {
		return entry.Message.ID == messageID
	})
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
