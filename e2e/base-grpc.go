package e2e

import (
	"chat-relay/auth"
	"chat-relay/client"
	pb "chat-relay/proto/chat"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

type BaseGrpcSuite struct {
	suite.Suite
	Config Config
	tokens *auth.TokenManager
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseGrpcSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.GrpcAddr == "" || s.Config.AuthSecret == "" || s.Config.ChatID == "" {
		s.T().Skip("E2E_GRPC_ADDR, E2E_AUTH_SECRET and E2E_CHAT_ID are required")
	}
	s.tokens = auth.NewTokenManager(s.Config.AuthSecret, time.Hour)
}

// GrpcConn opens a JSON-codec connection whose calls are logged on t,
// with full bodies when E2E_DEBUG_JSON is set.
func (s *BaseGrpcSuite) GrpcConn(t *testing.T, name string, addr string) *grpc.ClientConn {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		pb.WithJSONCodec(),
		grpc.WithUnaryInterceptor(s.logUnary(t)),
		grpc.WithStreamInterceptor(logStream(t)),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+addr)
	return conn
}

func (s *BaseGrpcSuite) logUnary(t *testing.T) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		var b strings.Builder
		fmt.Fprintf(&b, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
		if s.Config.DebugJSON {
			fmt.Fprintf(&b, "\nREQUEST:\n%s\n", indent(req))
			if err != nil {
				fmt.Fprintln(&b, "ERROR:", err)
			} else {
				fmt.Fprintf(&b, "RESPONSE:\n%s\n", indent(reply))
			}
		}
		t.Log(b.String())
		return err
	}
}

func logStream(t *testing.T) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		stream, err := streamer(ctx, desc, cc, method, opts...)
		t.Logf("GRPC stream %s opened [%s]", method, status.Code(err))
		return stream, err
	}
}

// WithUser provides a listening SDK client for userID within a contextual test step.
// The push stream is open and confirmed when fn runs.
func (s *BaseGrpcSuite) WithUser(name, userID string, fn func(ctx context.Context, c *client.Client)) {
	conn := s.GrpcConn(s.T(), name, s.Config.GrpcAddr)
	defer conn.Close()

	token, err := s.tokens.Generate(userID)
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c := client.New(logs.GetLoggerFromLevel(slog.LevelDebug), conn, userID, token)
	go func() { _ = c.Listen(ctx) }()
	_, err = c.WaitReady(ctx)
	s.Require().NoError(err)

	fn(ctx, c)
}

func indent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
