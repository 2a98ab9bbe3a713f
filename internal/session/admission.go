package session

import (
	"log"

	"github.com/google/uuid"

	"slidecast/pkg/types"
)

// Admission control: viewers land in the pending list on join and move to
// the accepted list only by admin decision. A name appears in at most one of
// the two lists at any time; the move is atomic under the manager lock.

// RequestJoin appends a new participant to the session's pending list and
// issues a viewer credential. Duplicate names are permitted deliberately;
// accept/reject resolve them first-match-wins.
func (m *Manager) RequestJoin(sessionID, userName, addr string) (*types.Credential, error) {
	if !types.IsValidUserName(userName) {
		return nil, ErrInvalidUserName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	sess.PendingUsers = append(sess.PendingUsers, types.Participant{
		Name: userName,
		Addr: addr,
	})

	cred := &types.Credential{
		Token:     uuid.New().String(),
		SessionID: sessionID,
		Role:      types.RoleViewer,
		Name:      userName,
		Addr:      addr,
	}
	m.credentials[cred.Token] = cred

	log.Printf("Join requested: session=%s user=%q pending=%d", sessionID, userName, len(sess.PendingUsers))
	return cred, nil
}

// AcceptUser moves the earliest pending participant with the given name into
// the accepted list. Only the admin role may accept. A name with no pending
// match is an idempotent no-op: state unchanged, moved=false, no error.
func (m *Manager) AcceptUser(sessionID, role, userName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return false, ErrSessionNotFound
	}
	if role != types.RoleAdmin {
		return false, ErrUnauthorized
	}

	for i, p := range sess.PendingUsers {
		if p.Name == userName {
			sess.PendingUsers = append(sess.PendingUsers[:i], sess.PendingUsers[i+1:]...)
			sess.Users = append(sess.Users, p)
			log.Printf("User accepted: session=%s user=%q accepted=%d pending=%d",
				sessionID, userName, len(sess.Users), len(sess.PendingUsers))
			return true, nil
		}
	}

	log.Printf("Accept ignored, no pending match: session=%s user=%q", sessionID, userName)
	return false, nil
}

// RejectUser removes the earliest pending participant with the given name.
// Symmetric to AcceptUser but nothing is added to the accepted list.
func (m *Manager) RejectUser(sessionID, role, userName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return false, ErrSessionNotFound
	}
	if role != types.RoleAdmin {
		return false, ErrUnauthorized
	}

	for i, p := range sess.PendingUsers {
		if p.Name == userName {
			sess.PendingUsers = append(sess.PendingUsers[:i], sess.PendingUsers[i+1:]...)
			log.Printf("User rejected: session=%s user=%q pending=%d",
				sessionID, userName, len(sess.PendingUsers))
			return true, nil
		}
	}

	log.Printf("Reject ignored, no pending match: session=%s user=%q", sessionID, userName)
	return false, nil
}
