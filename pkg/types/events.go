package types

import (
	"time"
)

// Client-to-server event names.
const (
	EventChangePage   = "change_page"
	EventGetAdminPage = "get_admin_page"
	EventAcceptUser   = "accept_user"
	EventRejectUser   = "reject_user"
)

// Server-to-client event names. Payload keys mirror what clients already
// expect: page, name, user_name, filename, pdf_uploaded.
const (
	EventUserJoined     = "user_joined"
	EventAdminConnected = "admin_connected"
	EventPageChanged    = "page_changed"
	EventAdminPage      = "admin_page"
	EventUserAccepted   = "user_accepted"
	EventUserRejected   = "user_rejected"
	EventPDFUploaded    = "pdf_uploaded"
)

// ClientEvent is the inbound wire envelope read off a WebSocket connection.
// Data stays loosely typed; each handler pulls out the fields it needs.
type ClientEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// ServerEvent is the outbound wire envelope.
type ServerEvent struct {
	Event     string                 `json:"event"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewServerEvent builds an outbound event with the timestamp set.
func NewServerEvent(event string, data map[string]interface{}) *ServerEvent {
	return &ServerEvent{
		Event:     event,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// PageFromData extracts an integer page number from an event payload.
// JSON numbers decode as float64; anything non-numeric or fractional is
// rejected rather than truncated silently.
func PageFromData(data map[string]interface{}) (int, bool) {
	raw, ok := data["page"]
	if !ok {
		return 0, false
	}
	f, ok := raw.(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// UserNameFromData extracts the user_name field from an event payload.
func UserNameFromData(data map[string]interface{}) (string, bool) {
	raw, ok := data["user_name"]
	if !ok {
		return "", false
	}
	name, ok := raw.(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
