// Package chatpb holds the wire types of the chatrelay.v1 service.
// Messages are plain structs carried by the JSON codec registered in codec.go,
// the same types are reused for the websocket frames and the REST bodies.
package chatpb

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

type User struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type Message struct {
	Id          string                 `json:"id"`
	ChatId      string                 `json:"chatId"`
	Sender      *User                  `json:"sender"`
	Content     string                 `json:"content"`
	CreatedAt   *timestamppb.Timestamp `json:"createdAt"`
	DeliveredTo []string               `json:"deliveredTo,omitempty"`
	ReadBy      []string               `json:"readBy,omitempty"`
}

func (m *Message) GetId() string {
	if m == nil {
		return ""
	}
	return m.Id
}

func (m *Message) GetSender() *User {
	if m == nil {
		return nil
	}
	return m.Sender
}

type Chat struct {
	Id              string                 `json:"id"`
	Name            string                 `json:"name"`
	Participants    []string               `json:"participants"`
	LatestMessageId string                 `json:"latestMessageId,omitempty"`
	CreatedAt       *timestamppb.Timestamp `json:"createdAt"`
}

// ChatEvent is the flattened push envelope. Type selects which fields are set:
//
//	connected            connectionId, userId
//	received             message
//	delivered            chatId, messageIds, recipientIds
//	seen                 chatId, readerId, messageIds
//	typing, stop typing  chatId, userId
type ChatEvent struct {
	Type         string                 `json:"type"`
	CreatedAt    *timestamppb.Timestamp `json:"createdAt"`
	ConnectionId string                 `json:"connectionId,omitempty"`
	UserId       string                 `json:"userId,omitempty"`
	ChatId       string                 `json:"chatId,omitempty"`
	Message      *Message               `json:"message,omitempty"`
	MessageIds   []string               `json:"messageIds,omitempty"`
	RecipientIds []string               `json:"recipientIds,omitempty"`
	ReaderId     string                 `json:"readerId,omitempty"`
}

func (e *ChatEvent) GetType() string {
	if e == nil {
		return ""
	}
	return e.Type
}

type ConnectRequest struct{}

type JoinChatRequest struct {
	ConnectionId string `json:"connectionId"`
	ChatId       string `json:"chatId"`
}

type JoinChatResponse struct{}

type LeaveChatRequest struct {
	ConnectionId string `json:"connectionId"`
	ChatId       string `json:"chatId"`
}

type LeaveChatResponse struct{}

type TypingRequest struct {
	ConnectionId string `json:"connectionId"`
	ChatId       string `json:"chatId"`
	Typing       bool   `json:"typing"`
}

type TypingResponse struct{}

type SendMessageRequest struct {
	ChatId  string `json:"chatId"`
	Content string `json:"content"`
}

type SendMessageResponse struct {
	Message *Message `json:"message"`
}

type MarkReadRequest struct {
	ChatId string `json:"chatId"`
}

type MarkReadResponse struct {
	MessageIds []string `json:"messageIds"`
}

type MarkDeliveredRequest struct {
	ChatId string `json:"chatId"`
}

type MarkDeliveredResponse struct {
	MessageIds []string `json:"messageIds"`
}

type FetchHistoryRequest struct {
	ChatId string `json:"chatId"`
}

type FetchHistoryResponse struct {
	Chat     *Chat      `json:"chat"`
	Messages []*Message `json:"messages"`
}

// ErrorResponse is the REST error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
