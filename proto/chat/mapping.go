package chatpb

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func FromMessageView(view domain.MessageView) *Message {
	return &Message{
		Id:          view.ID.String(),
		ChatId:      view.ChatID.String(),
		Sender:      &User{Id: view.Sender.ID, Name: view.Sender.Name},
		Content:     view.Content,
		CreatedAt:   timestamppb.New(view.CreatedAt),
		DeliveredTo: view.DeliveredTo,
		ReadBy:      view.ReadBy,
	}
}

func ToMessageView(m *Message) (domain.MessageView, error) {
	if m == nil {
		return domain.MessageView{}, fmt.Errorf("message is missing")
	}
	id, err := uuid.Parse(m.Id)
	if err != nil {
		return domain.MessageView{}, fmt.Errorf("message id %q: %w", m.Id, err)
	}
	chatID, err := uuid.Parse(m.ChatId)
	if err != nil {
		return domain.MessageView{}, fmt.Errorf("chat id %q: %w", m.ChatId, err)
	}
	sender := m.GetSender()
	if sender == nil {
		return domain.MessageView{}, fmt.Errorf("message %s has no sender", m.Id)
	}
	return domain.MessageView{
		Message: domain.Message{
			ID:          id,
			ChatID:      chatID,
			SenderID:    sender.Id,
			Content:     m.Content,
			CreatedAt:   toTime(m.CreatedAt),
			DeliveredTo: domain.NewUserSet(m.DeliveredTo...),
			ReadBy:      domain.NewUserSet(m.ReadBy...),
		},
		Sender: domain.User{ID: sender.Id, Name: sender.Name},
	}, nil
}

func FromChat(chat domain.Chat) *Chat {
	pbChat := &Chat{
		Id:           chat.ID.String(),
		Name:         chat.Name,
		Participants: chat.Participants,
		CreatedAt:    timestamppb.New(chat.CreatedAt),
	}
	if chat.LatestMessageID != nil {
		pbChat.LatestMessageId = chat.LatestMessageID.String()
	}
	return pbChat
}

func ToChat(c *Chat) (domain.Chat, error) {
	if c == nil {
		return domain.Chat{}, fmt.Errorf("chat is missing")
	}
	id, err := uuid.Parse(c.Id)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("chat id %q: %w", c.Id, err)
	}
	chat := domain.Chat{
		ID:           id,
		Name:         c.Name,
		Participants: domain.NewUserSet(c.Participants...),
		CreatedAt:    toTime(c.CreatedAt),
	}
	if c.LatestMessageId != "" {
		latest, err := uuid.Parse(c.LatestMessageId)
		if err != nil {
			return domain.Chat{}, fmt.Errorf("latest message id %q: %w", c.LatestMessageId, err)
		}
		chat.LatestMessageID = &latest
	}
	return chat, nil
}

func FromHistory(history domain.History) *FetchHistoryResponse {
	return &FetchHistoryResponse{
		Chat:     FromChat(history.Chat),
		Messages: lo.Map(history.Messages, func(view domain.MessageView, _ int) *Message { return FromMessageView(view) }),
	}
}

func ToHistory(res *FetchHistoryResponse) (domain.History, error) {
	chat, err := ToChat(res.Chat)
	if err != nil {
		return domain.History{}, err
	}
	history := domain.History{Chat: chat, Messages: make([]domain.MessageView, 0, len(res.Messages))}
	for _, m := range res.Messages {
		view, err := ToMessageView(m)
		if err != nil {
			return domain.History{}, err
		}
		history.Messages = append(history.Messages, view)
	}
	return history, nil
}

// FromEvent flattens a push event into its wire envelope.
func FromEvent(e event.Event) (*ChatEvent, error) {
	pbEvent := &ChatEvent{Type: string(e.Type), CreatedAt: timestamppb.New(e.CreatedAt)}
	switch payload := e.Payload.(type) {
	case event.Connected:
		pbEvent.ConnectionId = payload.ConnectionID
		pbEvent.UserId = payload.UserID
	case event.Received:
		pbEvent.ChatId = payload.Message.ChatID.String()
		pbEvent.Message = FromMessageView(payload.Message)
	case event.Delivered:
		pbEvent.ChatId = payload.ChatID.String()
		pbEvent.MessageIds = FromUUIDs(payload.MessageIDs)
		pbEvent.RecipientIds = payload.RecipientIDs
	case event.Seen:
		pbEvent.ChatId = payload.ChatID.String()
		pbEvent.ReaderId = payload.ReaderID
		pbEvent.MessageIds = FromUUIDs(payload.MessageIDs)
	case event.Typing:
		pbEvent.ChatId = payload.ChatID.String()
		pbEvent.UserId = payload.UserID
	default:
		return nil, fmt.Errorf("unsupported event payload %T", e.Payload)
	}
	return pbEvent, nil
}

// ToEvent rebuilds a push event from its wire envelope.
func ToEvent(e *ChatEvent) (event.Event, error) {
	out := event.Event{Type: event.Type(e.GetType()), CreatedAt: toTime(e.CreatedAt)}
	switch out.Type {
	case event.ConnectedType:
		out.Payload = event.Connected{ConnectionID: e.ConnectionId, UserID: e.UserId}
		return out, nil
	case event.ReceivedType:
		view, err := ToMessageView(e.Message)
		if err != nil {
			return event.Event{}, err
		}
		out.Payload = event.Received{Message: view}
		return out, nil
	}

	chatID, err := uuid.Parse(e.ChatId)
	if err != nil {
		return event.Event{}, fmt.Errorf("%s event chat id %q: %w", e.Type, e.ChatId, err)
	}
	switch out.Type {
	case event.DeliveredType:
		ids, err := ToUUIDs(e.MessageIds)
		if err != nil {
			return event.Event{}, err
		}
		out.Payload = event.Delivered{ChatID: chatID, MessageIDs: ids, RecipientIDs: e.RecipientIds}
	case event.SeenType:
		ids, err := ToUUIDs(e.MessageIds)
		if err != nil {
			return event.Event{}, err
		}
		out.Payload = event.Seen{ChatID: chatID, ReaderID: e.ReaderId, MessageIDs: ids}
	case event.TypingType, event.StopTypingType:
		out.Payload = event.Typing{ChatID: chatID, UserID: e.UserId}
	default:
		return event.Event{}, fmt.Errorf("unsupported event type %q", e.Type)
	}
	return out, nil
}

func FromUUIDs(ids []uuid.UUID) []string {
	return lo.Map(ids, func(id uuid.UUID, _ int) string { return id.String() })
}

func ToUUIDs(ids []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("message id %q: %w", raw, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func toTime(ts *timestamppb.Timestamp) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.AsTime().UTC()
}
