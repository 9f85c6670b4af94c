package web

import (
	"chat-relay/domain"
	pb "chat-relay/proto/chat"
	"chat-relay/services"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type MessageHandler struct {
	log         *slog.Logger
	chatService services.IChatService
}

func NewMessageHandler(log *slog.Logger, chatService services.IChatService) *MessageHandler {
	return &MessageHandler{log: log, chatService: chatService}
}

// FetchHistory serves GET /api/chats/{chatID}/messages.
func (h *MessageHandler) FetchHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.chatService.FetchHistory(r.Context(), domain.FetchHistoryCommand{
		ChatID: chi.URLParam(r, "chatID"),
	})
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, pb.FromHistory(history))
}

// SendMessage serves POST /api/messages.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var body pb.SendMessageRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(h.log, w, err)
		return
	}
	view, err := h.chatService.SendMessage(r.Context(), domain.SendMessageCommand{
		SenderID: userID(r),
		ChatID:   body.ChatId,
		Content:  body.Content,
	})
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusCreated, pb.SendMessageResponse{Message: pb.FromMessageView(view)})
}

// MarkRead serves PUT /api/messages/read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var body pb.MarkReadRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(h.log, w, err)
		return
	}
	receipt, err := h.chatService.MarkRead(r.Context(), domain.MarkReadCommand{ReaderID: userID(r), ChatID: body.ChatId})
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, pb.MarkReadResponse{MessageIds: pb.FromUUIDs(receipt.MessageIDs)})
}

// MarkDelivered serves PUT /api/messages/delivered.
func (h *MessageHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	var body pb.MarkDeliveredRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(h.log, w, err)
		return
	}
	receipt, err := h.chatService.MarkDelivered(r.Context(), domain.MarkDeliveredCommand{RecipientID: userID(r), ChatID: body.ChatId})
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, pb.MarkDeliveredResponse{MessageIds: pb.FromUUIDs(receipt.MessageIDs)})
}
