package websocket

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"slidecast/internal/session"
	"slidecast/pkg/interfaces"
	"slidecast/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// All origins allowed; identity comes from the issued token, not the
		// Origin header.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// EventSink receives connection lifecycle events and parsed client events.
// Implemented by the hub; declared here so the handler does not depend on it.
type EventSink interface {
	RegisterConnection(conn interfaces.Connection) error
	UnregisterConnection(conn interfaces.Connection) error
	SendEvent(conn interfaces.Connection, event *types.ClientEvent) error
}

// Handler upgrades HTTP requests to WebSocket connections. The client
// authenticates by presenting a token previously issued on session creation
// or join; the token is resolved and the session re-validated before the
// upgrade, so invalid connects fail with a proper HTTP status instead of a
// dangling socket.
type Handler struct {
	sessionManager interfaces.SessionManager
	sink           EventSink
}

// NewHandler creates a WebSocket handler.
func NewHandler(sessionManager interfaces.SessionManager, sink EventSink) *Handler {
	return &Handler{
		sessionManager: sessionManager,
		sink:           sink,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing required query parameter: token", http.StatusBadRequest)
		return
	}

	cred, err := h.sessionManager.ResolveCredential(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	// The credential may outlive its session only across a restart; either
	// way a dangling reference must not produce a live connection.
	if _, err := h.sessionManager.GetSession(cred.SessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
		} else {
			http.Error(w, "Session validation failed", http.StatusInternalServerError)
		}
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn)

	if err := wsConn.SetCredentials(cred.Token, cred.SessionID, cred.Role, cred.Name); err != nil {
		log.Printf("Failed to set credentials: %v", err)
		_ = wsConn.Close()
		return
	}

	if err := h.sink.RegisterConnection(wsConn); err != nil {
		log.Printf("Failed to register connection: %v", err)
		_ = wsConn.Close()
		return
	}

	go h.handleConnection(wsConn)
}

// handleConnection runs the read pump and heartbeat for one connection.
// Disconnection only affects room membership going forward; it never rolls
// back session state mutations already applied.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		if err := h.sink.UnregisterConnection(conn); err != nil {
			log.Printf("Failed to unregister connection: session=%s err=%v", conn.GetSessionID(), err)
		}
		_ = conn.Close()
	}()

	// 60s read deadline refreshed by pongs, 30s ping interval.
	if err := conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: session=%s err=%v", conn.GetSessionID(), err)
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var event types.ClientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("Dropping malformed event: session=%s err=%v", conn.GetSessionID(), err)
			continue
		}

		if err := h.sink.SendEvent(conn, &event); err != nil {
			log.Printf("Dropping event, hub unavailable: session=%s event=%s err=%v",
				conn.GetSessionID(), event.Event, err)
		}
	}
}
