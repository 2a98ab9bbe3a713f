package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"slidecast/pkg/interfaces"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	dir := t.TempDir()
	store, err := NewStore(&Config{
		UploadDir:    filepath.Join(dir, "uploads"),
		DatabasePath: filepath.Join(dir, "documents.db"),
		Timeout:      5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_InterfaceCompliance(t *testing.T) {
	var _ interfaces.DocumentStore = testStore(t)
}

func TestStore_RequiresConfig(t *testing.T) {
	if _, err := NewStore(&Config{DatabasePath: "x.db"}); err == nil {
		t.Error("Empty upload dir should be rejected")
	}
	if _, err := NewStore(&Config{UploadDir: t.TempDir()}); err == nil {
		t.Error("Empty database path should be rejected")
	}
}

func TestStore_StoreAndRetrieve(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	data := []byte("%PDF-1.4 test document")

	storedName, err := store.Store(ctx, "session-1", "slides.pdf", data)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if storedName != "session-1_slides.pdf" {
		t.Errorf("Stored name should be '<sessionID>_<filename>', got %q", storedName)
	}

	got, err := store.Retrieve(ctx, storedName)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("Retrieved bytes should match stored bytes")
	}

	if _, err := os.Stat(store.Path(storedName)); err != nil {
		t.Errorf("Stored file should exist on disk: %v", err)
	}
}

func TestStore_SecondUploadConflicts(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := []byte("first document")
	storedName, err := store.Store(ctx, "session-1", "first.pdf", first)
	if err != nil {
		t.Fatalf("First Store failed: %v", err)
	}

	if _, err := store.Store(ctx, "session-1", "second.pdf", []byte("second document")); err != ErrDocumentExists {
		t.Errorf("Second upload for the session should conflict, got %v", err)
	}

	// The original bytes survive the conflicting attempt.
	got, err := store.Retrieve(ctx, storedName)
	if err != nil {
		t.Fatalf("Retrieve after conflict failed: %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Error("Conflicting upload must not clobber the original document")
	}
}

func TestStore_SeparateSessionsDoNotConflict(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.Store(ctx, "session-1", "slides.pdf", []byte("one")); err != nil {
		t.Fatalf("Store for session-1 failed: %v", err)
	}
	if _, err := store.Store(ctx, "session-2", "slides.pdf", []byte("two")); err != nil {
		t.Errorf("Same filename under another session should succeed: %v", err)
	}
}

func TestStore_RejectsEmptyDocument(t *testing.T) {
	store := testStore(t)

	if _, err := store.Store(context.Background(), "session-1", "slides.pdf", nil); err != ErrEmptyDocument {
		t.Errorf("Empty document should be rejected, got %v", err)
	}
}

func TestStore_RejectsUnsafeFilenames(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	bad := []string{
		"",
		".",
		"..",
		"../escape.pdf",
		"nested/slides.pdf",
		"back\\slash.pdf",
		string(make([]byte, 256)),
	}
	for _, name := range bad {
		if _, err := store.Store(ctx, "session-1", name, []byte("x")); err != ErrInvalidFilename {
			t.Errorf("Filename %q should be rejected, got %v", name, err)
		}
	}
}

func TestStore_RetrieveUnknownDocument(t *testing.T) {
	store := testStore(t)

	if _, err := store.Retrieve(context.Background(), "no-such-file.pdf"); err != ErrDocumentNotFound {
		t.Errorf("Unknown stored name should return ErrDocumentNotFound, got %v", err)
	}
}

func TestStore_GetDocument(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	data := []byte("document bytes")

	if _, err := store.Store(ctx, "session-1", "slides.pdf", data); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	doc, err := store.GetDocument(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.SessionID != "session-1" || doc.OriginalName != "slides.pdf" {
		t.Errorf("Unexpected metadata: %+v", doc)
	}
	if doc.StoredName != "session-1_slides.pdf" {
		t.Errorf("Unexpected stored name: %q", doc.StoredName)
	}
	if doc.SizeBytes != int64(len(data)) {
		t.Errorf("Expected size %d, got %d", len(data), doc.SizeBytes)
	}

	if _, err := store.GetDocument(ctx, "session-2"); err != ErrDocumentNotFound {
		t.Errorf("Unknown session should return ErrDocumentNotFound, got %v", err)
	}
}

func TestStore_HealthCheck(t *testing.T) {
	store := testStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("Healthy store should pass: %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Second Close should be a no-op: %v", err)
	}

	if _, err := store.Store(ctx, "session-1", "slides.pdf", []byte("x")); err != ErrStoreClosed {
		t.Errorf("Store after Close should fail, got %v", err)
	}
	if _, err := store.Retrieve(ctx, "session-1_slides.pdf"); err != ErrStoreClosed {
		t.Errorf("Retrieve after Close should fail, got %v", err)
	}
	if err := store.HealthCheck(ctx); err != ErrStoreClosed {
		t.Errorf("HealthCheck after Close should fail, got %v", err)
	}
}
