package storage

import "errors"

// Document store error types
var (
	ErrDocumentExists   = errors.New("session already has a stored document")
	ErrDocumentNotFound = errors.New("document not found")
	ErrEmptyDocument    = errors.New("document data cannot be empty")
	ErrInvalidFilename  = errors.New("invalid document filename")
	ErrStoreClosed      = errors.New("document store is closed")
)
