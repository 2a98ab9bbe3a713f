package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection wraps a gorilla WebSocket connection behind a single writer
// goroutine. All outbound traffic goes through writeCh so WriteJSON is safe
// from any goroutine; gorilla connections do not allow concurrent writes.
type Connection struct {
	conn          *websocket.Conn
	writeCh       chan []byte // buffered so room broadcasts never block on a slow client
	token         string
	sessionID     string
	role          string
	name          string
	authenticated bool
	ctx           context.Context
	cancel        context.CancelFunc
	closeOnce     sync.Once
	mu            sync.RWMutex // protects credential fields
}

// NewConnection creates a connection wrapper and starts its writer goroutine.
func NewConnection(conn *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:    conn,
		writeCh: make(chan []byte, 100),
		ctx:     ctx,
		cancel:  cancel,
	}

	go c.writeLoop()

	return c
}

func (c *Connection) writeLoop() {
	defer func() {
		for len(c.writeCh) > 0 {
			<-c.writeCh // drain whatever is left
		}
		close(c.writeCh)
	}()

	for {
		select {
		case data, ok := <-c.writeCh:
			if !ok {
				return
			}

			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON marshals v and queues it for the writer goroutine.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(5 * time.Second):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close shuts down the writer goroutine and the underlying connection.
// Safe to call more than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
		// writeCh is closed by writeLoop on exit
	})
	return err
}

// SetCredentials binds the resolved credential to this connection. Done once,
// immediately after the upgrade handshake validates the token.
func (c *Connection) SetCredentials(token, sessionID, role, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	c.sessionID = sessionID
	c.role = role
	c.name = name
	c.authenticated = true

	return nil
}

func (c *Connection) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

func (c *Connection) GetToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Connection) GetSessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Connection) GetRole() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

func (c *Connection) GetName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}
