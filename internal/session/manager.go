package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"slidecast/pkg/types"
)

// Manager implements the SessionManager interface. It owns the process-wide
// session registry and the credential store. Sessions live for the process
// lifetime; there is no teardown path, which is a documented limitation of
// the current scope rather than an oversight.
//
// One RWMutex covers the whole registry. Every read-modify-write sequence
// (notably the pending->accepted move) runs entirely under Lock, so
// concurrent join/accept/reject calls on the same session can never lose
// updates or duplicate entries.
type Manager struct {
	sessions    map[string]*types.Session    // sessionID -> Session
	credentials map[string]*types.Credential // token -> Credential
	mu          sync.RWMutex
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions:    make(map[string]*types.Session),
		credentials: make(map[string]*types.Credential),
	}
}

// CreateSession allocates a new session and issues its admin credential.
// The admin identity is the caller's network origin, captured once here and
// never changed afterwards.
func (m *Manager) CreateSession(name, adminAddr string) (*types.Session, *types.Credential, error) {
	if !types.IsValidSessionName(name) {
		return nil, nil, ErrInvalidSessionName
	}

	sess := &types.Session{
		ID:           uuid.New().String(),
		Name:         name,
		AdminAddr:    adminAddr,
		CurrentPage:  1,
		Users:        []types.Participant{},
		PendingUsers: []types.Participant{},
		CreatedAt:    time.Now(),
	}

	cred := &types.Credential{
		Token:     uuid.New().String(),
		SessionID: sess.ID,
		Role:      types.RoleAdmin,
		Addr:      adminAddr,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.credentials[cred.Token] = cred
	m.mu.Unlock()

	log.Printf("Created session: id=%s name=%q admin=%s", sess.ID, sess.Name, adminAddr)
	return sess, cred, nil
}

// GetSession retrieves a live session by ID.
func (m *Manager) GetSession(sessionID string) (*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// DescribeSession returns a snapshot safe to serialize outside the lock.
func (m *Manager) DescribeSession(sessionID string) (*types.SessionView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return snapshot(sess), nil
}

// ListSessions returns snapshots of all registered sessions.
func (m *Manager) ListSessions() []*types.SessionView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	views := make([]*types.SessionView, 0, len(m.sessions))
	for _, sess := range m.sessions {
		views = append(views, snapshot(sess))
	}
	return views
}

// ResolveCredential looks up a previously issued token.
func (m *Manager) ResolveCredential(token string) (*types.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, exists := m.credentials[token]
	if !exists {
		return nil, ErrInvalidToken
	}
	return cred, nil
}

// snapshot copies the fields API consumers need. Caller must hold at least
// the read lock.
func snapshot(sess *types.Session) *types.SessionView {
	users := make([]string, len(sess.Users))
	for i, p := range sess.Users {
		users[i] = p.Name
	}
	pending := make([]string, len(sess.PendingUsers))
	for i, p := range sess.PendingUsers {
		pending[i] = p.Name
	}

	return &types.SessionView{
		ID:           sess.ID,
		Name:         sess.Name,
		CurrentPage:  sess.CurrentPage,
		HasDocument:  sess.DocumentFile != "",
		DocumentFile: sess.DocumentFile,
		Users:        users,
		PendingUsers: pending,
		CreatedAt:    sess.CreatedAt,
	}
}
