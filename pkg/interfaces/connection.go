package interfaces

// Connection is one live realtime channel bound to a single credential.
// Implementations must make WriteJSON safe to call from any goroutine; the
// WebSocket implementation uses a single writer goroutine behind a buffered
// channel.
type Connection interface {
	// WriteJSON sends a JSON message to the client (thread-safe).
	WriteJSON(v interface{}) error

	// Close closes the connection and releases its resources. Idempotent.
	Close() error

	// GetToken returns the credential token this connection authenticated with.
	GetToken() string

	// GetSessionID returns the session this connection belongs to.
	GetSessionID() string

	// GetRole returns "admin" or "viewer".
	GetRole() string

	// GetName returns the viewer display name; empty for the admin.
	GetName() string

	// IsAuthenticated reports whether credentials have been bound.
	IsAuthenticated() bool

	// SetCredentials binds the resolved credential after the upgrade handshake.
	SetCredentials(token, sessionID, role, name string) error
}
