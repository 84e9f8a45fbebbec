// Package server exposes the conversation service over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmaciel/parley/internal/history"
	"github.com/dmaciel/parley/internal/logger"
	"github.com/dmaciel/parley/internal/turn"
)

// Server routes chat turns to the orchestrator. Session identifiers are
// opaque: the server mints random tokens on request, but any stable
// non-empty identifier supplied by the caller works.
type Server struct {
	store *history.Store
	orch  *turn.Orchestrator
}

// New creates a Server over the given store and orchestrator.
func New(store *history.Store, orch *turn.Orchestrator) *Server {
	return &Server{store: store, orch: orch}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", s.handleNewSession)
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/history", s.handleHistory)
	return mux
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	logger.L.Info("session minted", "session_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	// Fail fast before the store is touched.
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	incoming, err := history.NewMessage(history.RoleHuman, req.Message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reply, err := s.orch.Take(r.Context(), req.SessionID, incoming)
	if err != nil {
		if errors.Is(err, turn.ErrMissingSessionID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		http.Error(w, "failed to process chat turn", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{SessionID: req.SessionID, Reply: reply.Content})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	msgs := s.store.GetOrCreate(sessionID).Messages()
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   msgs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("write response failed", "error", err)
	}
}
