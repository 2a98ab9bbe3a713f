package types

import (
	"time"
)

// Participant roles. The admin is fixed at session creation; everyone else
// joins as a viewer and waits in the pending queue until accepted.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Session represents one presenter-led viewing session.
// Mutable fields (CurrentPage, DocumentFile, Users, PendingUsers) are only
// touched by the session manager under its lock; nothing else may write them.
type Session struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	AdminAddr    string        `json:"-"` // network origin of the creator, never serialized
	CurrentPage  int           `json:"current_page"`
	DocumentFile string        `json:"document_file,omitempty"`
	Users        []Participant `json:"users"`
	PendingUsers []Participant `json:"pending_users"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Participant is one viewer attempt. Names are not required to be unique;
// accept/reject resolve duplicates by first match in pending order.
type Participant struct {
	Name string `json:"name"`
	Addr string `json:"-"`
}

// Credential is a server-held token binding one caller to a (session, role)
// pair. Issued on session creation (admin) and join (viewer), carried by the
// client on WebSocket connect and document upload, and re-validated against
// the session registry on every privileged operation.
type Credential struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	Addr      string `json:"-"`
}

// SessionView is the read-only snapshot returned by the HTTP API. It is
// copied out of the live session under the manager's lock so API encoding
// never races with realtime mutations.
type SessionView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CurrentPage  int       `json:"current_page"`
	HasDocument  bool      `json:"has_document"`
	DocumentFile string    `json:"document_file,omitempty"`
	Users        []string  `json:"users"`
	PendingUsers []string  `json:"pending_users"`
	CreatedAt    time.Time `json:"created_at"`
}

// Document describes one stored upload.
type Document struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	StoredName   string    `json:"stored_name"`
	OriginalName string    `json:"original_name"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
}
