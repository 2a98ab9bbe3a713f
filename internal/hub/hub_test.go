package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"slidecast/internal/router"
	"slidecast/internal/session"
	"slidecast/internal/websocket"
	"slidecast/pkg/types"
)

type fakeConn struct {
	mu            sync.Mutex
	token         string
	sessionID     string
	role          string
	name          string
	authenticated bool
	closed        bool
	writes        []*types.ServerEvent
}

func newFakeConn(token, sessionID, role, name string) *fakeConn {
	return &fakeConn{
		token:         token,
		sessionID:     sessionID,
		role:          role,
		name:          name,
		authenticated: true,
	}
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := v.(*types.ServerEvent); ok {
		f.writes = append(f.writes, event)
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) GetToken() string      { return f.token }
func (f *fakeConn) GetSessionID() string  { return f.sessionID }
func (f *fakeConn) GetRole() string       { return f.role }
func (f *fakeConn) GetName() string       { return f.name }
func (f *fakeConn) IsAuthenticated() bool { return f.authenticated }
func (f *fakeConn) SetCredentials(token, sessionID, role, name string) error {
	f.token, f.sessionID, f.role, f.name = token, sessionID, role, name
	f.authenticated = true
	return nil
}

func (f *fakeConn) received() []*types.ServerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.ServerEvent(nil), f.writes...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// eventually polls for an async condition driven by the hub goroutine.
func eventually(t *testing.T, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func testHub(t *testing.T) (*Hub, *session.Manager, *websocket.Rooms) {
	t.Helper()

	manager := session.NewManager()
	rooms := websocket.NewRooms()
	hub := NewHub(rooms, router.NewRouter(manager, rooms))

	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { hub.Stop() })

	return hub, manager, rooms
}

func TestHub_StartStopLifecycle(t *testing.T) {
	manager := session.NewManager()
	rooms := websocket.NewRooms()
	hub := NewHub(rooms, router.NewRouter(manager, rooms))

	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := hub.Start(context.Background()); err != ErrHubAlreadyRunning {
		t.Errorf("Second Start should fail with ErrHubAlreadyRunning, got %v", err)
	}

	if err := hub.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := hub.Stop(); err != ErrHubNotRunning {
		t.Errorf("Second Stop should fail with ErrHubNotRunning, got %v", err)
	}
}

func TestHub_OperationsRequireRunning(t *testing.T) {
	manager := session.NewManager()
	rooms := websocket.NewRooms()
	hub := NewHub(rooms, router.NewRouter(manager, rooms))

	conn := newFakeConn("t1", "session-1", types.RoleViewer, "Alice")

	if err := hub.SendEvent(conn, &types.ClientEvent{Event: types.EventGetAdminPage}); err != ErrHubNotRunning {
		t.Errorf("SendEvent on stopped hub should fail, got %v", err)
	}
	if err := hub.RegisterConnection(conn); err != ErrHubNotRunning {
		t.Errorf("RegisterConnection on stopped hub should fail, got %v", err)
	}
	if err := hub.UnregisterConnection(conn); err != ErrHubNotRunning {
		t.Errorf("UnregisterConnection on stopped hub should fail, got %v", err)
	}
	if err := hub.Broadcast("session-1", types.NewServerEvent(types.EventPDFUploaded, nil)); err != ErrHubNotRunning {
		t.Errorf("Broadcast on stopped hub should fail, got %v", err)
	}
}

func TestHub_RegisterJoinsRoomAndAnnounces(t *testing.T) {
	hub, manager, rooms := testHub(t)

	sess, adminCred, _ := manager.CreateSession("Lecture1", "10.0.0.1")
	viewerCred, _ := manager.RequestJoin(sess.ID, "Alice", "10.0.0.2")

	admin := newFakeConn(adminCred.Token, sess.ID, types.RoleAdmin, "")
	if err := hub.RegisterConnection(admin); err != nil {
		t.Fatalf("RegisterConnection failed: %v", err)
	}
	eventually(t, func() bool { return rooms.MemberCount(sess.ID) == 1 },
		"Admin should join the room")
	eventually(t, func() bool {
		events := admin.received()
		return len(events) == 1 && events[0].Event == types.EventAdminConnected
	}, "Admin should get the admin_connected notice")

	viewer := newFakeConn(viewerCred.Token, sess.ID, types.RoleViewer, "Alice")
	if err := hub.RegisterConnection(viewer); err != nil {
		t.Fatalf("RegisterConnection failed: %v", err)
	}
	eventually(t, func() bool {
		events := admin.received()
		return len(events) == 2 && events[1].Event == types.EventUserJoined
	}, "Room should see user_joined for the viewer")
}

func TestHub_RegisterUnauthenticatedClosesConnection(t *testing.T) {
	hub, _, _ := testHub(t)

	conn := &fakeConn{sessionID: "session-1"}
	if err := hub.RegisterConnection(conn); err != nil {
		t.Fatalf("RegisterConnection failed: %v", err)
	}

	eventually(t, conn.isClosed, "Failed room join should close the connection")
}

func TestHub_EventFlowsThroughRouter(t *testing.T) {
	hub, manager, rooms := testHub(t)

	sess, adminCred, _ := manager.CreateSession("Lecture1", "10.0.0.1")
	admin := newFakeConn(adminCred.Token, sess.ID, types.RoleAdmin, "")
	hub.RegisterConnection(admin)
	eventually(t, func() bool { return rooms.MemberCount(sess.ID) == 1 },
		"Admin should join the room")

	err := hub.SendEvent(admin, &types.ClientEvent{
		Event: types.EventChangePage,
		Data:  map[string]interface{}{"page": float64(3)},
	})
	if err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}

	eventually(t, func() bool {
		page, err := manager.CurrentPage(sess.ID)
		return err == nil && page == 3
	}, "change_page should reach the session manager")
	eventually(t, func() bool {
		for _, event := range admin.received() {
			if event.Event == types.EventPageChanged {
				return true
			}
		}
		return false
	}, "page_changed should be broadcast to the room")
}

func TestHub_UnregisterLeavesRoom(t *testing.T) {
	hub, manager, rooms := testHub(t)

	sess, adminCred, _ := manager.CreateSession("Lecture1", "10.0.0.1")
	admin := newFakeConn(adminCred.Token, sess.ID, types.RoleAdmin, "")
	hub.RegisterConnection(admin)
	eventually(t, func() bool { return rooms.MemberCount(sess.ID) == 1 },
		"Admin should join the room")

	if err := hub.UnregisterConnection(admin); err != nil {
		t.Fatalf("UnregisterConnection failed: %v", err)
	}
	eventually(t, func() bool { return rooms.MemberCount(sess.ID) == 0 },
		"Unregister should remove the room member")
}

func TestHub_BroadcastDeliversToRoom(t *testing.T) {
	hub, manager, rooms := testHub(t)

	sess, adminCred, _ := manager.CreateSession("Lecture1", "10.0.0.1")
	admin := newFakeConn(adminCred.Token, sess.ID, types.RoleAdmin, "")
	hub.RegisterConnection(admin)
	eventually(t, func() bool { return rooms.MemberCount(sess.ID) == 1 },
		"Admin should join the room")

	err := hub.Broadcast(sess.ID, types.NewServerEvent(types.EventPDFUploaded, map[string]interface{}{
		"filename": sess.ID + "_slides.pdf",
	}))
	if err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	eventually(t, func() bool {
		for _, event := range admin.received() {
			if event.Event == types.EventPDFUploaded {
				return true
			}
		}
		return false
	}, "Upload broadcast should reach room members")
}
