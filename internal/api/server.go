// Package api exposes the HTTP surface: the chat endpoint (JSON and
// SSE), conversation listing, and health probes. All /api routes require
// a bearer token; probes do not.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/chat"
	"github.com/taskpilot/taskpilot/internal/conversation"
)

// ChatService handles chat exchanges.
type ChatService interface {
	Send(ctx context.Context, caller auth.Caller, req chat.Request) (*chat.Response, error)
	SendStream(ctx context.Context, caller auth.Caller, req chat.Request, sink chat.EventSink)
}

// ConversationReader lists a user's conversations and messages.
type ConversationReader interface {
	List(ctx context.Context, ownerID string) ([]*conversation.Conversation, error)
	Messages(ctx context.Context, convID uuid.UUID, ownerID string) ([]*conversation.Message, error)
}

// TokenVerifier authenticates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Caller, error)
}

// Pinger reports backend storage health for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerConfig collects the server's dependencies.
type ServerConfig struct {
	Chat          ChatService
	Conversations ConversationReader
	Verifier      TokenVerifier
	DB            Pinger
	Logger        *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer builds the route table. Probe routes skip authentication;
// everything under /api requires a valid bearer token.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{mux: mux, logger: logger}

	health := &healthHandler{db: cfg.DB}
	mux.HandleFunc("GET /health", health.alive)
	mux.HandleFunc("GET /ready", health.ready)

	requireAuth := authMiddleware(cfg.Verifier, logger)

	chatH := &chatHandler{service: cfg.Chat, logger: logger}
	mux.Handle("POST /api/chat", requireAuth(http.HandlerFunc(chatH.send)))
	mux.Handle("POST /api/chat/stream", requireAuth(http.HandlerFunc(chatH.stream)))

	convH := &conversationsHandler{store: cfg.Conversations, logger: logger}
	mux.Handle("GET /api/conversations", requireAuth(http.HandlerFunc(convH.list)))
	mux.Handle("GET /api/conversations/{id}/messages", requireAuth(http.HandlerFunc(convH.messages)))

	return s
}

// ServeHTTP applies the middleware stack: recovery outermost, then
// request logging, then the routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var handler http.Handler = s.mux
	handler = loggingMiddleware(s.logger)(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	handler.ServeHTTP(w, r)
}
