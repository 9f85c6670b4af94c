package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	stdErrors "errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"
)

// Coordinator accepts new messages, computes status transitions and emits
// the matching push events. Persistence errors are returned to the caller,
// push failures are logged and swallowed.
type Coordinator struct {
	log              *slog.Logger
	messages         contract.MessageStore
	chats            contract.ChatDirectory
	users            contract.UserDirectory
	registry         contract.IRegistry
	validate         *validator.Validate
	sanitizer        *bluemonday.Policy
	filter           ContentFilter
	maxContentLength int
	now              func() time.Time
}

// ContentFilter masks forbidden words. It runs after sanitising.
type ContentFilter interface {
	Censor(content string) (string, bool)
}

type CoordinatorOption func(*Coordinator)

func WithContentFilter(filter ContentFilter) CoordinatorOption {
	return func(c *Coordinator) { c.filter = filter }
}

func NewCoordinator(
	log *slog.Logger,
	messages contract.MessageStore,
	chats contract.ChatDirectory,
	users contract.UserDirectory,
	registry contract.IRegistry,
	maxContentLength int,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		log:              log,
		messages:         messages,
		chats:            chats,
		users:            users,
		registry:         registry,
		validate:         validator.New(),
		sanitizer:        bluemonday.StrictPolicy(),
		maxContentLength: maxContentLength,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateMessage persists a new message, marks it delivered to every recipient
// currently viewing the chat and notifies the chat and the sender.
func (c *Coordinator) CreateMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.MessageView, error) {
	if err := c.validate.Struct(cmd); err != nil {
		return domain.MessageView{}, fmt.Errorf("%w: %w", errors.ErrInvalidArgument, err)
	}
	content, err := c.sanitize(cmd.Content)
	if err != nil {
		return domain.MessageView{}, err
	}
	chat, err := c.resolveChat(uuid.MustParse(cmd.ChatID))
	if err != nil {
		return domain.MessageView{}, err
	}

	message := domain.Message{
		ID:        uuid.New(),
		ChatID:    chat.ID,
		SenderID:  cmd.SenderID,
		Content:   content,
		CreatedAt: c.now().UTC(),
	}
	if err := c.messages.Create(message); err != nil {
		return domain.MessageView{}, err
	}
	if err := c.chats.SetLatestMessage(chat.ID, message.ID); err != nil {
		c.log.Warn("Latest message not updated",
			"chat_id", chat.ID,
			"message_id", message.ID,
			"error", err)
	}

	reachable := lo.Intersect(chat.Recipients(cmd.SenderID), c.registry.ReachableUsers(chat.ID))
	if len(reachable) == 0 {
		c.log.Debug("No recipient reachable, message stays sent", "message_id", message.ID)
		return c.resolveSender(message), nil
	}

	delivered, err := c.messages.AddDelivered(message.ID, reachable)
	if err != nil {
		// The message is persisted, it stays sent and will be recovered by history.
		c.log.Error("Delivery not recorded",
			"chat_id", chat.ID,
			"message_id", message.ID,
			"error", err)
		return c.resolveSender(message), nil
	}

	view := c.resolveSender(delivered)
	c.push(ctx, event.ChatChannel(chat.ID), event.NewReceived(view))
	c.push(ctx, event.UserChannel(cmd.SenderID),
		event.NewDelivered(chat.ID, []uuid.UUID{message.ID}, reachable))
	return view, nil
}

// MarkRead moves every message of the chat not yet read by the reader to seen,
// in one batch, and tells the chat which ids changed.
func (c *Coordinator) MarkRead(ctx context.Context, cmd domain.MarkReadCommand) (domain.ReadReceipt, error) {
	if err := c.validate.Struct(cmd); err != nil {
		return domain.ReadReceipt{}, fmt.Errorf("%w: %w", errors.ErrInvalidArgument, err)
	}
	chat, err := c.resolveChat(uuid.MustParse(cmd.ChatID))
	if err != nil {
		return domain.ReadReceipt{}, err
	}
	receipt := domain.ReadReceipt{ChatID: chat.ID, ReaderID: cmd.ReaderID}
	if !chat.IsParticipant(cmd.ReaderID) {
		c.log.Debug("Read ignored for non participant", "chat_id", chat.ID, "user_id", cmd.ReaderID)
		return receipt, nil
	}

	ids, err := c.messages.MarkRead(chat.ID, cmd.ReaderID)
	if err != nil {
		return domain.ReadReceipt{}, err
	}
	if len(ids) == 0 {
		return receipt, nil
	}
	receipt.MessageIDs = ids
	c.push(ctx, event.ChatChannel(chat.ID), event.NewSeen(chat.ID, cmd.ReaderID, ids))
	return receipt, nil
}

// MarkDelivered records an explicit delivery acknowledgment from a recipient
// and notifies each affected sender on their user channel.
func (c *Coordinator) MarkDelivered(ctx context.Context, cmd domain.MarkDeliveredCommand) (domain.DeliveryReceipt, error) {
	if err := c.validate.Struct(cmd); err != nil {
		return domain.DeliveryReceipt{}, fmt.Errorf("%w: %w", errors.ErrInvalidArgument, err)
	}
	chat, err := c.resolveChat(uuid.MustParse(cmd.ChatID))
	if err != nil {
		return domain.DeliveryReceipt{}, err
	}
	receipt := domain.DeliveryReceipt{ChatID: chat.ID, RecipientID: cmd.RecipientID}
	if !chat.IsParticipant(cmd.RecipientID) {
		return receipt, nil
	}

	updated, err := c.messages.MarkDelivered(chat.ID, cmd.RecipientID)
	if err != nil {
		return domain.DeliveryReceipt{}, err
	}
	receipt.MessageIDs = lo.Map(updated, func(m domain.Message, _ int) uuid.UUID { return m.ID })

	bySender := lo.GroupBy(updated, func(m domain.Message) string { return m.SenderID })
	for senderID, messages := range bySender {
		ids := lo.Map(messages, func(m domain.Message, _ int) uuid.UUID { return m.ID })
		c.push(ctx, event.UserChannel(senderID), event.NewDelivered(chat.ID, ids, []string{cmd.RecipientID}))
	}
	return receipt, nil
}

// FetchHistory returns the chat roster and its messages, oldest first.
// Fetching never changes any status.
func (c *Coordinator) FetchHistory(_ context.Context, cmd domain.FetchHistoryCommand) (domain.History, error) {
	if err := c.validate.Struct(cmd); err != nil {
		return domain.History{}, fmt.Errorf("%w: %w", errors.ErrInvalidArgument, err)
	}
	chat, err := c.chats.GetChat(uuid.MustParse(cmd.ChatID))
	if err != nil {
		return domain.History{}, err
	}
	messages, err := c.messages.ListByChat(chat.ID)
	if err != nil {
		return domain.History{}, err
	}

	senders := make(map[string]domain.User)
	views := lo.Map(messages, func(m domain.Message, _ int) domain.MessageView {
		sender, ok := senders[m.SenderID]
		if !ok {
			sender = c.lookupUser(m.SenderID)
			senders[m.SenderID] = sender
		}
		return domain.MessageView{Message: m, Sender: sender}
	})
	return domain.History{Chat: chat, Messages: views}, nil
}

// Typing relays a typing indicator to the chat, except to the originating connection.
func (c *Coordinator) Typing(ctx context.Context, cmd domain.TypingCommand) error {
	if err := c.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidArgument, err)
	}
	chatID := uuid.MustParse(cmd.ChatID)
	err := c.registry.BroadcastExcept(ctx, event.ChatChannel(chatID),
		event.NewTyping(chatID, cmd.UserID, cmd.Typing), cmd.ConnectionID)
	if err != nil {
		c.log.Debug("Typing indicator not fully relayed", "chat_id", chatID, "error", err)
	}
	return nil
}

// resolveChat maps an unknown chat to InvalidArgument, a storage failure is kept as is.
func (c *Coordinator) resolveChat(chatID uuid.UUID) (domain.Chat, error) {
	chat, err := c.chats.GetChat(chatID)
	if stdErrors.Is(err, errors.ErrNotFound) {
		return domain.Chat{}, fmt.Errorf("%w: chat %s does not exist", errors.ErrInvalidArgument, chatID)
	}
	return chat, err
}

// sanitize strips markup with a strict policy. Anything tag-like is markup,
// so "<hello>" alone is blank and "a <b> c" keeps its two spaces.
func (c *Coordinator) sanitize(content string) (string, error) {
	sanitized := strings.TrimSpace(html.UnescapeString(c.sanitizer.Sanitize(content)))
	if sanitized == "" {
		return "", fmt.Errorf("%w: content is blank", errors.ErrInvalidArgument)
	}
	if c.maxContentLength > 0 && utf8.RuneCountInString(sanitized) > c.maxContentLength {
		return "", fmt.Errorf("%w: content exceeds %d characters", errors.ErrInvalidArgument, c.maxContentLength)
	}
	if c.filter != nil {
		if censored, ok := c.filter.Censor(sanitized); ok {
			c.log.Debug("Content censored")
			return censored, nil
		}
	}
	return sanitized, nil
}

func (c *Coordinator) resolveSender(message domain.Message) domain.MessageView {
	return domain.MessageView{Message: message, Sender: c.lookupUser(message.SenderID)}
}

// lookupUser falls back to the raw id when the directory can't resolve it.
func (c *Coordinator) lookupUser(userID string) domain.User {
	user, err := c.users.GetUser(userID)
	if err != nil {
		if !stdErrors.Is(err, errors.ErrNotFound) {
			c.log.Warn("Sender lookup failed", "user_id", userID, "error", err)
		}
		return domain.UnknownUser(userID)
	}
	return user
}

func (c *Coordinator) push(ctx context.Context, channel event.Channel, e event.Event) {
	if err := c.registry.Broadcast(ctx, channel, e); err != nil {
		c.log.Debug("Push not fully delivered", "channel", channel, "type", e.Type, "error", err)
	}
}
