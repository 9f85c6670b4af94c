// Package web exposes the chat service over HTTP: a REST surface for the
// commands and a websocket gateway for the push channel.
package web

import (
	"chat-relay/auth"
	"chat-relay/services"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	WriteTimeout   time.Duration
	OriginPatterns []string
}

func NewRouter(
	log *slog.Logger,
	chatService services.IChatService,
	tokens *auth.TokenManager,
	health HealthReporter,
	config RouterConfig,
) http.Handler {
	messages := NewMessageHandler(log, chatService)
	gateway := NewGateway(log, chatService, config.WriteTimeout, config.OriginPatterns)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Health(log, health))

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(log, tokens, false))
		r.Get("/chats/{chatID}/messages", messages.FetchHistory)
		r.Post("/messages", messages.SendMessage)
		r.Put("/messages/read", messages.MarkRead)
		r.Put("/messages/delivered", messages.MarkDelivered)
	})

	r.With(Authenticate(log, tokens, true)).Get("/ws", gateway.ServeWs)
	return r
}
