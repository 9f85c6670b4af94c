package chatpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ChatService_Connect_FullMethodName       = "/chatrelay.v1.ChatService/Connect"
	ChatService_JoinChat_FullMethodName      = "/chatrelay.v1.ChatService/JoinChat"
	ChatService_LeaveChat_FullMethodName     = "/chatrelay.v1.ChatService/LeaveChat"
	ChatService_Typing_FullMethodName        = "/chatrelay.v1.ChatService/Typing"
	ChatService_SendMessage_FullMethodName   = "/chatrelay.v1.ChatService/SendMessage"
	ChatService_MarkRead_FullMethodName      = "/chatrelay.v1.ChatService/MarkRead"
	ChatService_MarkDelivered_FullMethodName = "/chatrelay.v1.ChatService/MarkDelivered"
	ChatService_FetchHistory_FullMethodName  = "/chatrelay.v1.ChatService/FetchHistory"
)

type ChatServiceClient interface {
	// Connect opens the push stream of the caller. The first event is always "connected".
	Connect(ctx context.Context, in *ConnectRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChatEvent], error)
	JoinChat(ctx context.Context, in *JoinChatRequest, opts ...grpc.CallOption) (*JoinChatResponse, error)
	LeaveChat(ctx context.Context, in *LeaveChatRequest, opts ...grpc.CallOption) (*LeaveChatResponse, error)
	Typing(ctx context.Context, in *TypingRequest, opts ...grpc.CallOption) (*TypingResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error)
	MarkDelivered(ctx context.Context, in *MarkDeliveredRequest, opts ...grpc.CallOption) (*MarkDeliveredResponse, error)
	FetchHistory(ctx context.Context, in *FetchHistoryRequest, opts ...grpc.CallOption) (*FetchHistoryResponse, error)
}

type chatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) ChatServiceClient {
	return &chatServiceClient{cc}
}

func (c *chatServiceClient) Connect(ctx context.Context, in *ConnectRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChatEvent], error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	stream, err := c.cc.NewStream(ctx, &ChatService_ServiceDesc.Streams[0], ChatService_Connect_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[ConnectRequest, ChatEvent]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type ChatService_ConnectClient = grpc.ServerStreamingClient[ChatEvent]

func (c *chatServiceClient) JoinChat(ctx context.Context, in *JoinChatRequest, opts ...grpc.CallOption) (*JoinChatResponse, error) {
	out := new(JoinChatResponse)
	if err := c.invoke(ctx, ChatService_JoinChat_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatServiceClient) LeaveChat(ctx context.Context, in *LeaveChatRequest, opts ...grpc.CallOption) (*LeaveChatResponse, error) {
	out := new(LeaveChatResponse)
	if err := c.invoke(ctx, ChatService_LeaveChat_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatServiceClient) Typing(ctx context.Context, in *TypingRequest, opts ...grpc.CallOption) (*TypingResponse, error) {
	out := new(TypingResponse)
	if err := c.invoke(ctx, ChatService_Typing_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	out := new(SendMessageResponse)
	if err := c.invoke(ctx, ChatService_SendMessage_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	out := new(MarkReadResponse)
	if err := c.invoke(ctx, ChatService_MarkRead_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatServiceClient) MarkDelivered(ctx context.Context, in *MarkDeliveredRequest, opts ...grpc.CallOption) (*MarkDeliveredResponse, error) {
	out := new(MarkDeliveredResponse)
	if err := c.invoke(ctx, ChatService_MarkDelivered_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatServiceClient) FetchHistory(ctx context.Context, in *FetchHistoryRequest, opts ...grpc.CallOption) (*FetchHistoryResponse, error) {
	out := new(FetchHistoryResponse)
	if err := c.invoke(ctx, ChatService_FetchHistory_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	return c.cc.Invoke(ctx, method, in, out, cOpts...)
}

// ChatServiceServer is the server API for the chatrelay.v1.ChatService.
// Implementations must embed UnimplementedChatServiceServer.
type ChatServiceServer interface {
	Connect(*ConnectRequest, grpc.ServerStreamingServer[ChatEvent]) error
	JoinChat(context.Context, *JoinChatRequest) (*JoinChatResponse, error)
	LeaveChat(context.Context, *LeaveChatRequest) (*LeaveChatResponse, error)
	Typing(context.Context, *TypingRequest) (*TypingResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	MarkDelivered(context.Context, *MarkDeliveredRequest) (*MarkDeliveredResponse, error)
	FetchHistory(context.Context, *FetchHistoryRequest) (*FetchHistoryResponse, error)
	mustEmbedUnimplementedChatServiceServer()
}

type UnimplementedChatServiceServer struct{}

func (UnimplementedChatServiceServer) Connect(*ConnectRequest, grpc.ServerStreamingServer[ChatEvent]) error {
	return status.Errorf(codes.Unimplemented, "method Connect not implemented")
}
func (UnimplementedChatServiceServer) JoinChat(context.Context, *JoinChatRequest) (*JoinChatResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method JoinChat not implemented")
}
func (UnimplementedChatServiceServer) LeaveChat(context.Context, *LeaveChatRequest) (*LeaveChatResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method LeaveChat not implemented")
}
func (UnimplementedChatServiceServer) Typing(context.Context, *TypingRequest) (*TypingResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Typing not implemented")
}
func (UnimplementedChatServiceServer) SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendMessage not implemented")
}
func (UnimplementedChatServiceServer) MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method MarkRead not implemented")
}
func (UnimplementedChatServiceServer) MarkDelivered(context.Context, *MarkDeliveredRequest) (*MarkDeliveredResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method MarkDelivered not implemented")
}
func (UnimplementedChatServiceServer) FetchHistory(context.Context, *FetchHistoryRequest) (*FetchHistoryResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method FetchHistory not implemented")
}
func (UnimplementedChatServiceServer) mustEmbedUnimplementedChatServiceServer() {}

type ChatService_ConnectServer = grpc.ServerStreamingServer[ChatEvent]

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

func _ChatService_Connect_Handler(srv any, stream grpc.ServerStream) error {
	m := new(ConnectRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ChatServiceServer).Connect(m, &grpc.GenericServerStream[ConnectRequest, ChatEvent]{ServerStream: stream})
}

// unaryHandler builds the method handler of a unary rpc.
func unaryHandler[Req any, Res any](
	fullMethod string,
	call func(ChatServiceServer, context.Context, *Req) (*Res, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChatServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ChatServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "chatrelay.v1.ChatService",
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "JoinChat",
			Handler:    unaryHandler(ChatService_JoinChat_FullMethodName, ChatServiceServer.JoinChat),
		},
		{
			MethodName: "LeaveChat",
			Handler:    unaryHandler(ChatService_LeaveChat_FullMethodName, ChatServiceServer.LeaveChat),
		},
		{
			MethodName: "Typing",
			Handler:    unaryHandler(ChatService_Typing_FullMethodName, ChatServiceServer.Typing),
		},
		{
			MethodName: "SendMessage",
			Handler:    unaryHandler(ChatService_SendMessage_FullMethodName, ChatServiceServer.SendMessage),
		},
		{
			MethodName: "MarkRead",
			Handler:    unaryHandler(ChatService_MarkRead_FullMethodName, ChatServiceServer.MarkRead),
		},
		{
			MethodName: "MarkDelivered",
			Handler:    unaryHandler(ChatService_MarkDelivered_FullMethodName, ChatServiceServer.MarkDelivered),
		},
		{
			MethodName: "FetchHistory",
			Handler:    unaryHandler(ChatService_FetchHistory_FullMethodName, ChatServiceServer.FetchHistory),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       _ChatService_Connect_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "chatrelay/v1/chat.proto",
}
