package hub

import (
	"context"
	"log"
	"sync"

	"slidecast/internal/router"
	"slidecast/internal/websocket"
	"slidecast/pkg/interfaces"
	"slidecast/pkg/types"
)

// Hub serializes all realtime traffic through a single goroutine: inbound
// client events, room joins and leaves, and broadcasts originating on the
// HTTP path (document upload). Because every delivery for a session starts
// in this one loop, room members observe events in the same order the admin
// issued the corresponding mutations.
type Hub struct {
	// Buffered channels absorb bursts; senders never block, they get a
	// *ChannelFull error instead and the event is dropped (delivery is
	// best-effort, clients recover via get_admin_page).
	eventChannel      chan *eventContext
	registerChannel   chan interfaces.Connection
	unregisterChannel chan interfaces.Connection
	broadcastChannel  chan *roomBroadcast
	shutdownChannel   chan struct{}

	rooms  *websocket.Rooms
	router *router.Router

	running bool
	mu      sync.RWMutex
}

type eventContext struct {
	conn  interfaces.Connection
	event *types.ClientEvent
}

type roomBroadcast struct {
	sessionID string
	event     *types.ServerEvent
}

// NewHub creates a hub over the given rooms and coordinator.
func NewHub(rooms *websocket.Rooms, router *router.Router) *Hub {
	return &Hub{
		eventChannel:      make(chan *eventContext, 1000),
		registerChannel:   make(chan interfaces.Connection, 100),
		unregisterChannel: make(chan interfaces.Connection, 100),
		broadcastChannel:  make(chan *roomBroadcast, 100),
		shutdownChannel:   make(chan struct{}),
		rooms:             rooms,
		router:            router,
	}
}

// Start begins hub processing.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Println("Starting event hub...")
	go h.run(ctx)

	return nil
}

// Stop gracefully shuts down the hub.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	log.Println("Stopping event hub...")

	select {
	case <-h.shutdownChannel:
		// already closed
	default:
		close(h.shutdownChannel)
	}

	return nil
}

// SendEvent queues an inbound client event for routing.
func (h *Hub) SendEvent(conn interfaces.Connection, event *types.ClientEvent) error {
	if err := h.checkRunning(); err != nil {
		return err
	}

	select {
	case h.eventChannel <- &eventContext{conn: conn, event: event}:
		return nil
	default:
		return ErrEventChannelFull
	}
}

// RegisterConnection queues a connection for room membership.
func (h *Hub) RegisterConnection(conn interfaces.Connection) error {
	if err := h.checkRunning(); err != nil {
		return err
	}

	select {
	case h.registerChannel <- conn:
		return nil
	default:
		return ErrRegisterChannelFull
	}
}

// UnregisterConnection queues a connection for removal from its room.
// Disconnection never cancels state mutations already in flight; it only
// affects membership going forward.
func (h *Hub) UnregisterConnection(conn interfaces.Connection) error {
	if err := h.checkRunning(); err != nil {
		return err
	}

	select {
	case h.unregisterChannel <- conn:
		return nil
	default:
		return ErrUnregisterChannelFull
	}
}

// Broadcast queues a room broadcast from outside the realtime path. The
// document upload handler uses this so pdf_uploaded flows through the same
// ordering point as everything else.
func (h *Hub) Broadcast(sessionID string, event *types.ServerEvent) error {
	if err := h.checkRunning(); err != nil {
		return err
	}

	select {
	case h.broadcastChannel <- &roomBroadcast{sessionID: sessionID, event: event}:
		return nil
	default:
		return ErrBroadcastChannelFull
	}
}

func (h *Hub) checkRunning() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.running {
		return ErrHubNotRunning
	}
	return nil
}

// run is the single processing loop.
func (h *Hub) run(ctx context.Context) {
	defer log.Println("Hub processing stopped")

	for {
		select {
		case evt := <-h.eventChannel:
			h.router.Route(evt.conn, evt.event)

		case conn := <-h.registerChannel:
			h.handleRegistration(conn)

		case conn := <-h.unregisterChannel:
			h.rooms.Leave(conn)
			log.Printf("Connection left room: session=%s role=%s", conn.GetSessionID(), conn.GetRole())

		case rb := <-h.broadcastChannel:
			h.rooms.Broadcast(rb.sessionID, rb.event)

		case <-h.shutdownChannel:
			log.Println("Hub shutdown requested")
			return

		case <-ctx.Done():
			log.Println("Hub context cancelled")
			return
		}
	}
}

func (h *Hub) handleRegistration(conn interfaces.Connection) {
	if conn == nil {
		log.Printf("Attempted to register nil connection")
		return
	}

	if err := h.rooms.Join(conn); err != nil {
		log.Printf("Room join failed: session=%s err=%v", conn.GetSessionID(), err)
		if closeErr := conn.Close(); closeErr != nil {
			log.Printf("Failed to close connection after join failure: %v", closeErr)
		}
		return
	}

	log.Printf("Connection joined room: session=%s role=%s name=%q",
		conn.GetSessionID(), conn.GetRole(), conn.GetName())

	// Announce after membership so a joining viewer sees their own
	// user_joined, matching the room-wide emit the clients expect.
	h.router.Connected(conn)
}
