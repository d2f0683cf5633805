package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wolfman30/smart-schedule/pkg/logging"
)

// SessionHeader carries the session id when the body omits it.
const SessionHeader = "X-Session-ID"

// ChatService is the turn processor behind the HTTP and WebSocket surfaces.
type ChatService interface {
	HandleMessage(ctx context.Context, sessionID, text string) Reply
	Reset(ctx context.Context, sessionID string) error
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Handler wires HTTP requests to the chat service.
type Handler struct {
	service ChatService
	logger  *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(service ChatService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sessionID := ResolveSessionID(req.SessionID, r.Header.Get(SessionHeader))
	reply := Reply{SessionID: sessionID, Text: MsgFallback}
	if strings.TrimSpace(req.Message) != "" {
		reply = h.service.HandleMessage(r.Context(), sessionID, req.Message)
	}

	w.Header().Set(SessionHeader, reply.SessionID)
	h.writeJSON(w, http.StatusOK, reply)
}

// DeleteSession handles DELETE /chat/sessions/{sessionID}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return
	}
	if err := h.service.Reset(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to reset session", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to reset session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResolveSessionID prefers the explicit id, then the header, then a new UUID.
func ResolveSessionID(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return uuid.NewString()
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
