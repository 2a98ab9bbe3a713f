package router

import (
	"log"

	"slidecast/internal/websocket"
	"slidecast/pkg/interfaces"
	"slidecast/pkg/types"
)

// Router is the session coordinator: it re-validates the connection's
// credential against the session registry on every event, applies the
// mutation through the session manager, and emits the matching broadcast.
//
// Failures on this path (unknown session, role mismatch, malformed payload)
// are deliberate no-ops toward the client so a stale or malicious connection
// cannot disrupt the rest of the room. They are never truly silent though:
// each one is logged with enough context to be observable.
type Router struct {
	sessionManager interfaces.SessionManager
	rooms          *websocket.Rooms
	rateLimiter    *RateLimiter
}

// NewRouter creates a session coordinator.
func NewRouter(sessionManager interfaces.SessionManager, rooms *websocket.Rooms) *Router {
	return &Router{
		sessionManager: sessionManager,
		rooms:          rooms,
		rateLimiter:    NewRateLimiter(),
	}
}

// Connected announces a connection that just joined its room. Viewers are
// announced to the whole room; the admin instead gets a direct notice with
// the document state, which must not leak to other members.
func (r *Router) Connected(conn interfaces.Connection) {
	sessionID := conn.GetSessionID()

	switch conn.GetRole() {
	case types.RoleViewer:
		r.rooms.Broadcast(sessionID, types.NewServerEvent(types.EventUserJoined, map[string]interface{}{
			"name": conn.GetName(),
		}))
	case types.RoleAdmin:
		hasDocument, err := r.sessionManager.HasDocument(sessionID)
		if err != nil {
			log.Printf("Admin connect notice dropped: session=%s err=%v", sessionID, err)
			return
		}
		r.rooms.SendTo(conn, types.NewServerEvent(types.EventAdminConnected, map[string]interface{}{
			"pdf_uploaded": hasDocument,
		}))
	}
}

// Route dispatches one inbound client event.
func (r *Router) Route(conn interfaces.Connection, event *types.ClientEvent) {
	sessionID := conn.GetSessionID()
	role := conn.GetRole()

	if !r.rateLimiter.Allow(conn.GetToken()) {
		log.Printf("Event rate limited: session=%s role=%s event=%s", sessionID, role, event.Event)
		return
	}

	switch event.Event {
	case types.EventChangePage:
		r.handleChangePage(conn, event)
	case types.EventGetAdminPage:
		r.handleGetAdminPage(conn)
	case types.EventAcceptUser:
		r.handleResolveUser(conn, event, true)
	case types.EventRejectUser:
		r.handleResolveUser(conn, event, false)
	default:
		log.Printf("Unknown event ignored: session=%s event=%q", sessionID, event.Event)
	}
}

// handleChangePage applies an admin page change and broadcasts it to the
// room. The broadcast happens synchronously inside the hub loop, which is
// what keeps page_changed events in mutation order.
func (r *Router) handleChangePage(conn interfaces.Connection, event *types.ClientEvent) {
	sessionID := conn.GetSessionID()

	page, ok := types.PageFromData(event.Data)
	if !ok {
		log.Printf("change_page dropped, bad payload: session=%s", sessionID)
		return
	}

	if err := r.sessionManager.SetPage(sessionID, conn.GetRole(), page); err != nil {
		log.Printf("change_page ignored: session=%s role=%s page=%d err=%v",
			sessionID, conn.GetRole(), page, err)
		return
	}

	r.rooms.Broadcast(sessionID, types.NewServerEvent(types.EventPageChanged, map[string]interface{}{
		"page": page,
	}))
}

// handleGetAdminPage replies to the caller only. This is the recovery path
// for dropped page_changed events; any valid connection may use it.
func (r *Router) handleGetAdminPage(conn interfaces.Connection) {
	sessionID := conn.GetSessionID()

	page, err := r.sessionManager.CurrentPage(sessionID)
	if err != nil {
		log.Printf("get_admin_page ignored: session=%s err=%v", sessionID, err)
		return
	}

	r.rooms.SendTo(conn, types.NewServerEvent(types.EventAdminPage, map[string]interface{}{
		"page": page,
	}))
}

// handleResolveUser handles accept_user and reject_user. The broadcast is
// emitted only when a pending entry actually moved; resolving a name with no
// pending match changes nothing and stays quiet.
func (r *Router) handleResolveUser(conn interfaces.Connection, event *types.ClientEvent, accept bool) {
	sessionID := conn.GetSessionID()
	role := conn.GetRole()

	userName, ok := types.UserNameFromData(event.Data)
	if !ok {
		log.Printf("%s dropped, bad payload: session=%s", event.Event, sessionID)
		return
	}

	var moved bool
	var err error
	outEvent := types.EventUserAccepted
	if accept {
		moved, err = r.sessionManager.AcceptUser(sessionID, role, userName)
	} else {
		moved, err = r.sessionManager.RejectUser(sessionID, role, userName)
		outEvent = types.EventUserRejected
	}

	if err != nil {
		log.Printf("%s ignored: session=%s role=%s user=%q err=%v",
			event.Event, sessionID, role, userName, err)
		return
	}
	if !moved {
		return
	}

	r.rooms.Broadcast(sessionID, types.NewServerEvent(outEvent, map[string]interface{}{
		"name": userName,
	}))
}
