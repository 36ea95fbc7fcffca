package server

import (
	"encoding/json"
	"net/http"

	"github.com/corvid-labs/agentstream/bridge"
	"github.com/corvid-labs/agentstream/datastream"
	"github.com/corvid-labs/agentstream/llmwire"
	"github.com/corvid-labs/agentstream/oai"
	"github.com/corvid-labs/agentstream/session"
	"github.com/corvid-labs/agentstream/turn"
)

// chatRequest is the body of POST /api/chat.
type chatRequest struct {
	// SessionID resumes an existing conversation. Empty starts a new one;
	// the assigned id is returned in the X-Session-Id response header.
	SessionID string `json:"sessionId"`

	// Message is the user input. Required.
	Message string `json:"message"`
}

// handleChat runs the full agent loop and streams line-framed data stream
// frames. The response status is committed before the turn starts, so
// failures after the first frame surface in-band as '3' frames followed by
// the terminal 'd' frame.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST is accepted")
		return
	}

	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Message is required")
		return
	}

	ctx := r.Context()
	transcript, sessionID, err := s.loadTranscript(r, req.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session_error", err.Error())
		return
	}
	transcript = append(transcript, llmwire.Message{
		Role:    llmwire.RoleUser,
		Content: req.Message,
	})

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Vercel-AI-Data-Stream", "v1")
	if sessionID != "" {
		w.Header().Set("X-Session-Id", sessionID)
	}

	b := bridge.NewDataStreamBridge(datastream.NewWriter(w))
	transcript, err = s.cfg.Agent.Run(ctx, transcript, b)
	if err != nil {
		// Run has already written the in-band error and terminal frames.
		s.log.WithError(err).Warn("agent turn failed")
		return
	}

	if s.cfg.Sessions != nil && sessionID != "" {
		if err := s.cfg.Sessions.Save(ctx, sessionID, transcript); err != nil {
			s.log.WithError(err).Warn("failed to persist session")
		}
	}
}

// loadTranscript resolves the conversation for the request: the stored
// transcript when a known session id was sent, otherwise a fresh one. The
// returned session id is empty when persistence is disabled.
func (s *Server) loadTranscript(r *http.Request, sessionID string) ([]llmwire.Message, string, error) {
	if sessionID == "" {
		sessionID = r.Header.Get("X-Session-Id")
	}

	if s.cfg.Sessions == nil {
		return s.newConversation(), "", nil
	}
	if sessionID == "" {
		return s.newConversation(), session.NewID(), nil
	}
	transcript, err := s.cfg.Sessions.Load(r.Context(), sessionID)
	if err != nil {
		return nil, "", err
	}
	if transcript == nil {
		transcript = s.newConversation()
	}
	return transcript, sessionID, nil
}

// handleChatCompletions serves OpenAI-compatible completions over the
// configured provider. Tool calls requested by the model are surfaced to the
// caller; this endpoint never executes tools server-side.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST is accepted")
		return
	}

	var req oai.ChatCompletionRequest
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20) // 10MB limit
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "Messages array is required")
		return
	}

	transcript := oai.TranscriptFromMessages(req.Messages)
	specs := oai.SpecsFromTools(req.Tools)

	stream, err := s.cfg.Provider.Stream(r.Context(), transcript, specs)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "upstream_error", "Failed to start model turn: "+err.Error())
		return
	}
	defer stream.Close()

	if req.Stream {
		s.streamCompletion(w, stream)
	} else {
		s.completeOnce(w, stream)
	}
}

// streamCompletion bridges one model turn onto SSE chunks.
func (s *Server) streamCompletion(w http.ResponseWriter, stream llmwire.Stream) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	b := bridge.NewOpenAIBridge(w, s.cfg.Model)
	res, err := turn.Collect(stream, b)
	if err != nil {
		s.log.WithError(err).Warn("completion stream failed")
		b.OnError(err.Error())
		return
	}
	reason := res.FinishReason
	if res.ToolDriven() && reason == "" {
		reason = llmwire.FinishToolCalls
	}
	if err := b.OnFinish(reason, res.Usage); err != nil {
		s.log.WithError(err).Debug("client disconnected before finish")
	}
}

// completeOnce collects the whole turn and renders a single JSON response.
func (s *Server) completeOnce(w http.ResponseWriter, stream llmwire.Stream) {
	res, err := turn.Collect(stream, bridge.NopSink{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "upstream_error", "Model turn failed: "+err.Error())
		return
	}

	resp := oai.ResponseFromTurn(s.cfg.Model, res.Content, res.ToolCalls, res.FinishReason, res.Usage)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET is accepted")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": s.cfg.Model, "object": "model", "owned_by": "agentstream"},
		},
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(oai.ErrorResponse{
		Error: oai.ErrorDetail{
			Message: message,
			Type:    errType,
		},
	})
}
