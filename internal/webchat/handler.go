package webchat

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/smart-schedule/internal/conversation"
	"github.com/wolfman30/smart-schedule/pkg/logging"
	"golang.org/x/net/websocket"
)

// InboundMessage is what the client sends.
type InboundMessage struct {
	Type      string `json:"type,omitempty"` // "message" (default), "ping", "reset"
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// OutboundMessage is what we send to the client.
type OutboundMessage struct {
	Type      string `json:"type"` // "session", "message", "pong", "reset", "error"
	Response  string `json:"response,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Handler serves the chat over a WebSocket, one session per connection.
type Handler struct {
	service conversation.ChatService
	logger  *logging.Logger

	mu    sync.Mutex
	conns map[string]int // sessionID -> open connections
}

// NewHandler creates a web chat handler.
func NewHandler(service conversation.ChatService, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: chat service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
		conns:   make(map[string]int),
	}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

// ActiveSessions reports how many sessions have an open connection.
func (h *Handler) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := conversation.ResolveSessionID(
		r.URL.Query().Get("session"),
		r.Header.Get(conversation.SessionHeader),
	)

	// The server's read/write timeouts are per request; a socket outlives them.
	_ = conn.SetDeadline(time.Time{})

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})

	h.track(sessionID, 1)
	defer h.track(sessionID, -1)

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}
		if id := strings.TrimSpace(msg.SessionID); id != "" && id != sessionID {
			h.track(sessionID, -1)
			sessionID = id
			h.track(sessionID, 1)
		}

		var out OutboundMessage
		switch msg.Type {
		case "ping":
			out = OutboundMessage{Type: "pong", SessionID: sessionID}
		case "reset":
			if err := h.service.Reset(r.Context(), sessionID); err != nil {
				h.logger.Error("webchat: failed to reset session", "session_id", sessionID, "error", err)
				out = OutboundMessage{Type: "error", SessionID: sessionID}
			} else {
				out = OutboundMessage{Type: "reset", SessionID: sessionID}
			}
		case "", "message":
			if strings.TrimSpace(msg.Message) == "" {
				continue
			}
			reply := h.service.HandleMessage(r.Context(), sessionID, msg.Message)
			out = OutboundMessage{Type: "message", Response: reply.Text, SessionID: reply.SessionID}
		default:
			continue
		}

		if err := websocket.JSON.Send(conn, out); err != nil {
			h.logger.Debug("webchat: send failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

func (h *Handler) track(sessionID string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.conns[sessionID] + delta
	if n <= 0 {
		delete(h.conns, sessionID)
		return
	}
	h.conns[sessionID] = n
}
