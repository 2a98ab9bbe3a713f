package interfaces

import (
	"slidecast/pkg/types"
)

// SessionManager owns all session state: the registry, admission control,
// presentation state, and the credential store. Every read-modify-write runs
// under the manager's lock so concurrent handlers never observe partial moves.
type SessionManager interface {
	// CreateSession allocates a session (page 1, empty lists, no document)
	// and issues the admin credential for it.
	CreateSession(name, adminAddr string) (*types.Session, *types.Credential, error)

	// GetSession returns the live session or ErrSessionNotFound.
	GetSession(sessionID string) (*types.Session, error)

	// DescribeSession returns a consistent read-only snapshot for API responses.
	DescribeSession(sessionID string) (*types.SessionView, error)

	// ListSessions returns snapshots of every registered session.
	ListSessions() []*types.SessionView

	// RequestJoin appends a viewer to the pending list unconditionally
	// (duplicate names permitted) and issues a viewer credential.
	RequestJoin(sessionID, userName, addr string) (*types.Credential, error)

	// AcceptUser moves the first pending participant matching name to the
	// accepted list. Admin only. A missing name is a no-op, not an error;
	// moved reports whether anything changed.
	AcceptUser(sessionID, role, userName string) (moved bool, err error)

	// RejectUser removes the first pending participant matching name.
	// Admin only. Same no-op semantics as AcceptUser.
	RejectUser(sessionID, role, userName string) (moved bool, err error)

	// SetDocument records the stored document name and resets the current
	// page to 1. Admin only; at most one document per session
	// (ErrDocumentAlreadySet on the second attempt).
	SetDocument(sessionID, role, storedName string) error

	// SetPage sets the current page. Admin only; pages below 1 are rejected.
	// No upper bound is checked, the admin's client is trusted for range.
	SetPage(sessionID, role string, page int) error

	// CurrentPage returns the page any valid caller should be showing.
	CurrentPage(sessionID string) (int, error)

	// HasDocument reports whether a document has been uploaded.
	HasDocument(sessionID string) (bool, error)

	// ResolveCredential looks up a previously issued token.
	ResolveCredential(token string) (*types.Credential, error)
}
