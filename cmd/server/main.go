package main

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/infrastructure/web"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Every defer (database close first of all) runs before the program exits.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Delivery core
	registry := runtime.NewRegistry(log)
	defer registry.Close()
	messages := repositories.NewMessageRepository(db, log)
	chats := repositories.NewChatRepository(db, log)
	users := repositories.NewUserRepository(db, log)
	var coordinatorOpts []runtime.CoordinatorOption
	if words := config.CensoredWordList(); len(words) > 0 {
		mask, err := moderation.MaskRune(config.CharReplacement)
		if err != nil {
			return exitConfig, fmt.Errorf("config error: %w", err)
		}
		filter, err := moderation.NewFilter(words, mask)
		if err != nil {
			return exitConfig, err
		}
		coordinatorOpts = append(coordinatorOpts, runtime.WithContentFilter(filter))
	}
	coordinator := runtime.NewCoordinator(log, messages, chats, users, registry, config.MaxContentLength, coordinatorOpts...)
	chatService := services.NewChatService(log, coordinator, registry, chats, services.Config{
		ConnectionBufferSize: config.ConnectionBufferSize,
		TypingRate:           config.TypingRate,
		TypingBurst:          config.TypingBurst,
	})
	tokens := auth.NewTokenManager(config.AuthSecret, config.AuthTokenDuration)
	monitoring := observability.NewMonitoringManager(log, registry, config.MetricInterval)

	// 4. Transports
	grpcServer := server.NewGRPCServer(log, chatService, tokens)
	httpServer := &http.Server{
		Handler: web.NewRouter(log, chatService, tokens, monitoring, web.RouterConfig{
			WriteTimeout:   config.DeliveryTimeout,
			OriginPatterns: config.OriginPatterns(),
		}),
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewGRPCServerWorker(log, grpcServer,
			workers.TCPListen(fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)), config.ShutdownTimeout),
		workers.NewHTTPServerWorker(log, httpServer,
			workers.TCPListen(fmt.Sprintf("%s:%d", config.Host, config.HTTPPort)), config.ShutdownTimeout),
		workers.NewReaperWorker(log, registry, config.ReaperInterval),
		monitoring,
	)

	// Push streams never end on their own, close them so the servers can drain.
	go func() {
		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		chatService.Shutdown()
	}()

	sup.Run(ctx)
	log.Info("Program stopped cleanly")
	return exitOK, nil
}
