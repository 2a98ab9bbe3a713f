package session

import (
	"log"

	"slidecast/pkg/types"
)

// Presentation state: the current page and the uploaded document reference.
// Both are mutable only through the admin role; viewers read them via
// CurrentPage (reconnect recovery) and the broadcast events.

// SetDocument records the stored document name for a session and resets the
// current page to 1. At most one document per session: a second call fails
// with ErrDocumentAlreadySet and leaves the stored reference unchanged.
func (m *Manager) SetDocument(sessionID, role, storedName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}
	if role != types.RoleAdmin {
		return ErrUnauthorized
	}
	if sess.DocumentFile != "" {
		return ErrDocumentAlreadySet
	}

	sess.DocumentFile = storedName
	sess.CurrentPage = 1

	log.Printf("Document set: session=%s file=%s page reset to 1", sessionID, storedName)
	return nil
}

// SetPage sets the current page unconditionally for the admin. Pages below 1
// violate the page invariant and are rejected; no upper bound is enforced
// because the admin's client is trusted for range.
func (m *Manager) SetPage(sessionID, role string, page int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}
	if role != types.RoleAdmin {
		return ErrUnauthorized
	}
	if page < 1 {
		return ErrInvalidPage
	}

	sess.CurrentPage = page
	return nil
}

// CurrentPage returns the admin's current page for any valid session. This
// is the recovery path for dropped events: delivery is best-effort, so a
// reconnecting client polls this instead of waiting for the next change.
func (m *Manager) CurrentPage(sessionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return 0, ErrSessionNotFound
	}
	return sess.CurrentPage, nil
}

// HasDocument reports whether the session's document has been uploaded.
func (m *Manager) HasDocument(sessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return false, ErrSessionNotFound
	}
	return sess.DocumentFile != "", nil
}
