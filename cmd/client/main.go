package main

import (
	"bufio"
	"chat-relay/client"
	"chat-relay/domain/event"
	"chat-relay/projection"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config is read from CHAT_* environment variables.
type Config struct {
	ServerAddr string `envconfig:"SERVER_ADDR" default:"localhost:50051"`
	Token      string `envconfig:"TOKEN" required:"true"`
	UserID     string `envconfig:"USER_ID" required:"true"`
	ChatID     string `envconfig:"ID" required:"true"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"WARN"`
	Colours    bool   `envconfig:"COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if err := envconfig.Process("chat", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	chatID, err := uuid.Parse(config.ChatID)
	if err != nil {
		return exitConfig, fmt.Errorf("config error: CHAT_ID: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect and open the push stream.
	conn, err := client.Dial(config.ServerAddr)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	var screen renderer
	c := client.New(log, conn, config.UserID, config.Token, client.WithEventHandler(func(e event.Event) {
		screen.Event(e)
	}))
	screen = renderer{out: os.Stdout, timeline: c.Timeline(), viewerID: config.UserID, colours: config.Colours}

	listenErr := make(chan error, 1)
	go func() { listenErr <- c.Listen(ctx) }()

	readyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.Open(readyCtx, chatID); err != nil {
		return exitRuntime, err
	}
	screen.History(chatID)
	fmt.Println(">>> Connected! Type a message, /typing, /delivered or /quit")

	debouncer := projection.NewTypingDebouncer(projection.DefaultTypingDelay, func(typing bool) {
		if err := c.Typing(ctx, typing); err != nil {
			log.Debug("Typing indicator not sent", "error", err)
		}
	})
	defer debouncer.Stop()

	// 4. Read commands from stdin until quit, signal or stream failure.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			return exitOK, nil
		case err := <-listenErr:
			if err != nil {
				return exitRuntime, err
			}
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if quit := handleLine(ctx, c, debouncer, strings.TrimSpace(line)); quit {
				return exitOK, nil
			}
		}
	}
}

func handleLine(ctx context.Context, c *client.Client, debouncer *projection.TypingDebouncer, line string) bool {
	switch line {
	case "":
		return false
	case "/quit":
		return true
	case "/typing":
		debouncer.Keystroke()
		return false
	case "/delivered":
		n, err := c.Acknowledge(ctx, c.Timeline().Active())
		if err != nil {
			fmt.Fprintf(os.Stderr, "acknowledge failed: %v\n", err)
			return false
		}
		fmt.Printf("%d message(s) acknowledged\n", n)
		return false
	}
	debouncer.Stop()
	// The input is kept on screen when the send fails, the user can retry it.
	if _, err := c.Send(ctx, line); err != nil {
		fmt.Fprintf(os.Stderr, "not sent (%v): %s\n", err, line)
	}
	return false
}
