package server

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	pb "chat-relay/proto/chat"
	"chat-relay/services"
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ChatServer struct {
	pb.UnimplementedChatServiceServer
	log         *slog.Logger
	chatService services.IChatService
}

func NewChatServer(log *slog.Logger, chatService services.IChatService) *ChatServer {
	return &ChatServer{log: log, chatService: chatService}
}

// NewGRPCServer builds a server with the chat service and both auth interceptors registered.
func NewGRPCServer(log *slog.Logger, chatService services.IChatService, tokens *auth.TokenManager) *grpc.Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(tokens.UnaryInterceptor()),
		grpc.ChainStreamInterceptor(tokens.StreamInterceptor()),
	)
	pb.RegisterChatServiceServer(s, NewChatServer(log, chatService))
	return s
}

// Connect opens the caller's push connection and streams its events until the
// client goes away or the connection is closed server side.
// Cleanup is deferred so the registry never keeps a dead entry.
func (s *ChatServer) Connect(_ *pb.ConnectRequest, stream pb.ChatService_ConnectServer) error {
	userID, err := callerID(stream.Context())
	if err != nil {
		return err
	}
	conn := s.chatService.Connect(userID)
	defer s.chatService.Disconnect(conn)

	for {
		select {
		case <-stream.Context().Done():
			s.log.Debug("Client disconnected", "user_id", userID, "connection_id", conn.ID())
			return nil
		case <-conn.Done():
			return status.Error(codes.Unavailable, "connection closed by server")
		case e := <-conn.Events():
			pbEvent, err := pb.FromEvent(e)
			if err != nil {
				s.log.Error("Event not encodable", "connection_id", conn.ID(), "type", e.Type, "error", err)
				continue
			}
			if err := stream.Send(pbEvent); err != nil {
				s.log.Error("failed to push event to stream",
					"user_id", userID,
					"connection_id", conn.ID(),
					"error", err)
				return err
			}
		}
	}
}

func (s *ChatServer) JoinChat(ctx context.Context, req *pb.JoinChatRequest) (*pb.JoinChatResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.chatService.JoinChat(userID, req.ConnectionId, req.ChatId); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.JoinChatResponse{}, nil
}

func (s *ChatServer) LeaveChat(ctx context.Context, req *pb.LeaveChatRequest) (*pb.LeaveChatResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.chatService.LeaveChat(userID, req.ConnectionId, req.ChatId); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.LeaveChatResponse{}, nil
}

func (s *ChatServer) Typing(ctx context.Context, req *pb.TypingRequest) (*pb.TypingResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.chatService.Typing(ctx, userID, req.ConnectionId, req.ChatId, req.Typing); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.TypingResponse{}, nil
}

// SendMessage persists the message and returns it with its initial delivery state.
// The sender's other connections get it through the chat channel like any participant.
func (s *ChatServer) SendMessage(ctx context.Context, req *pb.SendMessageRequest) (*pb.SendMessageResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	view, err := s.chatService.SendMessage(ctx, domain.SendMessageCommand{
		SenderID: userID,
		ChatID:   req.ChatId,
		Content:  req.Content,
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.SendMessageResponse{Message: pb.FromMessageView(view)}, nil
}

func (s *ChatServer) MarkRead(ctx context.Context, req *pb.MarkReadRequest) (*pb.MarkReadResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := s.chatService.MarkRead(ctx, domain.MarkReadCommand{ReaderID: userID, ChatID: req.ChatId})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.MarkReadResponse{MessageIds: pb.FromUUIDs(receipt.MessageIDs)}, nil
}

func (s *ChatServer) MarkDelivered(ctx context.Context, req *pb.MarkDeliveredRequest) (*pb.MarkDeliveredResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := s.chatService.MarkDelivered(ctx, domain.MarkDeliveredCommand{RecipientID: userID, ChatID: req.ChatId})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.MarkDeliveredResponse{MessageIds: pb.FromUUIDs(receipt.MessageIDs)}, nil
}

// FetchHistory never changes any status, clients acknowledge explicitly.
func (s *ChatServer) FetchHistory(ctx context.Context, req *pb.FetchHistoryRequest) (*pb.FetchHistoryResponse, error) {
	if _, err := callerID(ctx); err != nil {
		return nil, err
	}
	history, err := s.chatService.FetchHistory(ctx, domain.FetchHistoryCommand{ChatID: req.ChatId})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return pb.FromHistory(history), nil
}

func callerID(ctx context.Context) (string, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "no authenticated user")
	}
	return userID, nil
}
