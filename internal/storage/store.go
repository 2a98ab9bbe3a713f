package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	// Non-blank import: the driver registers itself under "sqlite3" and the
	// package is also needed to detect UNIQUE violations by error code.
	"github.com/mattn/go-sqlite3"

	"slidecast/pkg/types"
)

// Config holds document store configuration.
type Config struct {
	UploadDir    string        `json:"upload_dir"`
	DatabasePath string        `json:"database_path"`
	Timeout      time.Duration `json:"timeout"`
}

// Store persists uploaded documents: the bytes land in UploadDir under the
// name "<sessionID>_<filename>", and a metadata row goes into SQLite. The
// UNIQUE constraint on session_id backs the one-upload-per-session rule at
// the storage layer, independently of the session manager's own check.
type Store struct {
	db        *sql.DB
	uploadDir string
	timeout   time.Duration
	closed    bool
	mu        sync.RWMutex // protects closed
}

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL UNIQUE,
	stored_name   TEXT NOT NULL,
	original_name TEXT NOT NULL,
	size_bytes    INTEGER NOT NULL,
	uploaded_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_stored_name ON documents(stored_name);
`

// NewStore opens the metadata database and ensures the upload directory
// exists.
func NewStore(cfg *Config) (*Store, error) {
	if cfg.UploadDir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open document database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(createDocumentsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply document schema: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Store{
		db:        db,
		uploadDir: cfg.UploadDir,
		timeout:   timeout,
	}, nil
}

// Store writes the document bytes and metadata row. The metadata insert runs
// first: if the session already has a document the UNIQUE constraint rejects
// it and no file is written, so a conflicting upload can never clobber the
// original bytes.
func (s *Store) Store(ctx context.Context, sessionID, filename string, data []byte) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}
	if !validFilename(filename) {
		return "", ErrInvalidFilename
	}

	storedName := fmt.Sprintf("%s_%s", sessionID, filename)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, session_id, stored_name, original_name, size_bytes, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), sessionID, storedName, filename, int64(len(data)), time.Now())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return "", ErrDocumentExists
		}
		return "", fmt.Errorf("failed to record document metadata: %w", err)
	}

	path := filepath.Join(s.uploadDir, storedName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		// Roll the row back so a retry is possible; the filesystem write is
		// the part that failed.
		if _, delErr := s.db.ExecContext(ctx, `DELETE FROM documents WHERE session_id = ?`, sessionID); delErr != nil {
			log.Printf("Failed to roll back document row: session=%s err=%v", sessionID, delErr)
		}
		return "", fmt.Errorf("failed to write document file: %w", err)
	}

	log.Printf("Document stored: session=%s file=%s size=%d", sessionID, storedName, len(data))
	return storedName, nil
}

// Retrieve reads a stored document back by stored name. The name must be a
// known metadata row; raw filesystem paths are never accepted.
func (s *Store) Retrieve(ctx context.Context, storedName string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT stored_name FROM documents WHERE stored_name = ?`, storedName).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(s.uploadDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}
	return data, nil
}

// Path returns the on-disk path for a stored name.
func (s *Store) Path(storedName string) string {
	return filepath.Join(s.uploadDir, storedName)
}

// GetDocument returns the metadata row for a session's upload.
func (s *Store) GetDocument(ctx context.Context, sessionID string) (*types.Document, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc types.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, stored_name, original_name, size_bytes, uploaded_at
		 FROM documents WHERE session_id = ?`, sessionID).
		Scan(&doc.ID, &doc.SessionID, &doc.StoredName, &doc.OriginalName, &doc.SizeBytes, &doc.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document metadata: %w", err)
	}
	return &doc, nil
}

// HealthCheck verifies database connectivity and upload dir access.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("document database unreachable: %w", err)
	}
	if _, err := os.Stat(s.uploadDir); err != nil {
		return fmt.Errorf("upload directory inaccessible: %w", err)
	}
	return nil
}

// Close closes the metadata database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// validFilename rejects anything that could escape the upload directory.
func validFilename(filename string) bool {
	if filename == "" || len(filename) > 255 {
		return false
	}
	if strings.ContainsAny(filename, "/\\") {
		return false
	}
	if filename == "." || filename == ".." {
		return false
	}
	return filepath.Base(filename) == filename
}
