// Package server exposes agent turns over HTTP in two streaming protocols.
//
// Endpoints:
//
//   - POST /api/chat runs the full agent loop (tools, knowledge search,
//     citations) and streams the turn as line-framed data stream frames
//     (text/plain, one "{code}:{json}" frame per line).
//   - POST /v1/chat/completions is an OpenAI-compatible chat completion over
//     the configured model. Streaming responses use SSE chunks terminated by
//     "data: [DONE]"; tool calls requested by the model are returned to the
//     caller rather than executed server-side.
//   - GET /v1/models lists the configured model.
//   - GET /healthz is the liveness probe.
//
// Inbound requests pass through a middleware stack applied in the following
// order: panic recovery, request logging, and optional Bearer token auth
// (constant-time comparison, skipped when no API key is configured).
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/corvid-labs/agentstream/agent"
	"github.com/corvid-labs/agentstream/llmwire"
	"github.com/corvid-labs/agentstream/session"
)

// Config holds the settings used to create a [Server].
type Config struct {
	// Addr is the TCP address for the server to listen on.
	Addr string

	// APIKey is the expected Bearer token for inbound requests. When empty,
	// auth is disabled.
	APIKey string

	// Model is the model name reported in responses and /v1/models.
	Model string

	// Agent runs the tool-enabled turn loop behind /api/chat. Required.
	Agent *agent.Agent

	// Provider streams plain model turns for /v1/chat/completions. Required.
	Provider agent.Provider

	// Sessions persists /api/chat transcripts. Nil disables persistence;
	// every request then starts a fresh conversation.
	Sessions *session.Store

	// SystemPrompt, when non-empty, is prepended to new /api/chat
	// conversations.
	SystemPrompt string

	// Log receives request logs. Nil falls back to the logrus standard
	// logger.
	Log *logrus.Logger
}

// Server translates HTTP requests into agent turns and streams the results.
// Use [New] to create an instance and [Server.ListenAndServe] to start it.
type Server struct {
	cfg Config
	log *logrus.Logger
	mux *http.ServeMux
}

// New creates a [Server] and registers its routes. The returned server is
// ready to be started with [Server.ListenAndServe], or mounted elsewhere via
// [Server.Handler].
func New(cfg Config) *Server {
	s := &Server{
		cfg: cfg,
		log: cfg.Log,
		mux: http.NewServeMux(),
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}

	s.mux.HandleFunc("/api/chat", s.handleChat)
	s.mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	s.mux.HandleFunc("/v1/models", s.handleModels)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	return s
}

// Handler returns the fully assembled [http.Handler] with the middleware
// stack applied.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = authMiddleware(s.cfg.APIKey, h)
	h = loggingMiddleware(s.log, h)
	h = recoveryMiddleware(s.log, h)
	return h
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled or
// the server fails to start. On cancellation it performs a graceful shutdown
// with a 15-second deadline, allowing in-flight streams to complete.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newConversation returns the starting transcript for a fresh /api/chat
// session.
func (s *Server) newConversation() []llmwire.Message {
	if s.cfg.SystemPrompt == "" {
		return nil
	}
	return []llmwire.Message{{Role: llmwire.RoleSystem, Content: s.cfg.SystemPrompt}}
}
