package websocket

import (
	"log"
	"sync"

	"slidecast/pkg/interfaces"
	"slidecast/pkg/types"
)

// Rooms tracks which connections belong to which session. One room per
// session id; a connection belongs to at most one room. Delivery is
// fire-and-forget: a write failure to one member never stops delivery to the
// rest, and nothing is replayed to members who join later.
//
// Membership is keyed by connection instance, not by name, so a stale
// connection unregistering late can never evict its replacement.
type Rooms struct {
	mu         sync.RWMutex
	rooms      map[string]map[interfaces.Connection]bool // sessionID -> members
	membership map[interfaces.Connection]string          // connection -> sessionID
}

// NewRooms creates an empty room registry.
func NewRooms() *Rooms {
	return &Rooms{
		rooms:      make(map[string]map[interfaces.Connection]bool),
		membership: make(map[interfaces.Connection]string),
	}
}

// Join adds a connection to the room named by its session id. Joining twice
// is a no-op. Unauthenticated connections are refused; a forged or stale
// session id otherwise just creates an empty room that nothing broadcasts to.
func (r *Rooms) Join(conn interfaces.Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	if !conn.IsAuthenticated() {
		return ErrConnectionNotAuthenticated
	}

	sessionID := conn.GetSessionID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.membership[conn]; exists {
		if current == sessionID {
			return nil
		}
		// A connection is bound to one credential for its lifetime, so a
		// room change means something upstream went wrong. Drop the old
		// membership before adding the new one.
		r.removeLocked(conn, current)
	}

	if r.rooms[sessionID] == nil {
		r.rooms[sessionID] = make(map[interfaces.Connection]bool)
	}
	r.rooms[sessionID][conn] = true
	r.membership[conn] = sessionID

	return nil
}

// Leave removes a connection from whatever room it holds membership in.
// No-op if it was never a member.
func (r *Rooms) Leave(conn interfaces.Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID, exists := r.membership[conn]
	if !exists {
		return
	}
	r.removeLocked(conn, sessionID)
}

func (r *Rooms) removeLocked(conn interfaces.Connection, sessionID string) {
	delete(r.membership, conn)
	if members, exists := r.rooms[sessionID]; exists {
		delete(members, conn)
		if len(members) == 0 {
			delete(r.rooms, sessionID)
		}
	}
}

// Broadcast delivers an event to every current member of a room, at most
// once each. Unknown rooms are a silent no-op.
func (r *Rooms) Broadcast(sessionID string, event *types.ServerEvent) {
	for _, conn := range r.members(sessionID) {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("Broadcast delivery failed: session=%s event=%s err=%v",
				sessionID, event.Event, err)
		}
	}
}

// SendTo delivers an event to exactly one connection.
func (r *Rooms) SendTo(conn interfaces.Connection, event *types.ServerEvent) {
	if conn == nil {
		return
	}
	if err := conn.WriteJSON(event); err != nil {
		log.Printf("Direct delivery failed: event=%s err=%v", event.Event, err)
	}
}

// members snapshots a room's membership so delivery happens outside the lock.
func (r *Rooms) members(sessionID string) []interfaces.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, exists := r.rooms[sessionID]
	if !exists {
		return nil
	}

	conns := make([]interfaces.Connection, 0, len(members))
	for conn := range members {
		conns = append(conns, conn)
	}
	return conns
}

// MemberCount returns how many connections a room currently holds.
func (r *Rooms) MemberCount(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[sessionID])
}

// GetStats returns room statistics for the health endpoint.
func (r *Rooms) GetStats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"total_connections": len(r.membership),
		"active_rooms":      len(r.rooms),
	}
}
