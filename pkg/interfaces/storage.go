package interfaces

import (
	"context"

	"slidecast/pkg/types"
)

// DocumentStore persists uploaded documents: bytes on disk, metadata in the
// database. The store enforces one successful upload per session at the
// storage layer, independently of the session manager's own conflict check.
type DocumentStore interface {
	// Store writes the document and its metadata row, returning the stored
	// name ("<sessionID>_<filename>"). A second store for the same session
	// fails with ErrDocumentExists and leaves the first upload untouched.
	Store(ctx context.Context, sessionID, filename string, data []byte) (string, error)

	// Retrieve reads a stored document back by stored name.
	Retrieve(ctx context.Context, storedName string) ([]byte, error)

	// Path returns the on-disk path for a stored name, for file serving.
	Path(storedName string) string

	// GetDocument returns the metadata row for a session's upload.
	GetDocument(ctx context.Context, sessionID string) (*types.Document, error)

	// HealthCheck verifies database connectivity and upload dir access.
	HealthCheck(ctx context.Context) error

	// Close closes the metadata database.
	Close() error
}
