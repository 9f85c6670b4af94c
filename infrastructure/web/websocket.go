package web

import (
	"chat-relay/errors"
	pb "chat-relay/proto/chat"
	"chat-relay/services"
	"chat-relay/sink"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type FrameType string

const (
	JoinChatFrame   FrameType = "join chat"
	LeaveChatFrame  FrameType = "leave chat"
	TypingFrame     FrameType = "typing"
	StopTypingFrame FrameType = "stop typing"
)

// ClientFrame is what a websocket client sends. Server frames are pb.ChatEvent.
type ClientFrame struct {
	Type   FrameType `json:"type"`
	ChatId string    `json:"chatId"`
}

// Gateway is the websocket push transport. One socket is one connection.
type Gateway struct {
	log            *slog.Logger
	chatService    services.IChatService
	writeTimeout   time.Duration
	originPatterns []string
}

const defaultWriteTimeout = 10 * time.Second

func NewGateway(log *slog.Logger, chatService services.IChatService, writeTimeout time.Duration, originPatterns []string) *Gateway {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Gateway{
		log:            log,
		chatService:    chatService,
		writeTimeout:   writeTimeout,
		originPatterns: originPatterns,
	}
}

// ServeWs upgrades the request, then reads client frames until the socket closes.
// We block on the read loop because the request context is canceled as soon as
// the handler returns.
func (g *Gateway) ServeWs(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: g.originPatterns})
	if err != nil {
		g.log.Debug("Websocket upgrade failed", "user_id", user, "error", err)
		return
	}

	connection := g.chatService.Connect(user)
	defer g.chatService.Disconnect(connection)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go g.writeLoop(ctx, cancel, conn, connection)
	g.readLoop(ctx, conn, user, connection.ID())
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, user, connectionID string) {
	for {
		var frame ClientFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				g.log.Debug("Websocket read failed", "connection_id", connectionID, "error", err)
			}
			return
		}
		if err := g.handleFrame(ctx, user, connectionID, frame); err != nil {
			g.log.Debug("Websocket frame rejected",
				"connection_id", connectionID,
				"type", frame.Type,
				"chat_id", frame.ChatId,
				"error", err)
		}
	}
}

func (g *Gateway) handleFrame(ctx context.Context, user, connectionID string, frame ClientFrame) error {
	switch frame.Type {
	case JoinChatFrame:
		return g.chatService.JoinChat(user, connectionID, frame.ChatId)
	case LeaveChatFrame:
		return g.chatService.LeaveChat(user, connectionID, frame.ChatId)
	case TypingFrame, StopTypingFrame:
		return g.chatService.Typing(ctx, user, connectionID, frame.ChatId, frame.Type == TypingFrame)
	default:
		return fmt.Errorf("%w: unknown frame %q", errors.ErrInvalidArgument, frame.Type)
	}
}

// writeLoop drains the connection in order. A write failure ends the whole socket.
func (g *Gateway) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, connection *sink.ConnectionSink) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-connection.Done():
			_ = conn.Close(websocket.StatusGoingAway, "connection closed by server")
			return
		case e := <-connection.Events():
			frame, err := pb.FromEvent(e)
			if err != nil {
				g.log.Error("Event not encodable", "connection_id", connection.ID(), "type", e.Type, "error", err)
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, g.writeTimeout)
			err = wsjson.Write(writeCtx, conn, frame)
			cancelWrite()
			if err != nil {
				g.log.Debug("Websocket write failed", "connection_id", connection.ID(), "error", err)
				return
			}
		}
	}
}
