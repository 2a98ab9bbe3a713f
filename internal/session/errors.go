package session

import "errors"

// Session management error types. The realtime path swallows these into
// logged no-ops; the HTTP path maps them to distinct status codes.
var (
	ErrInvalidSessionName = errors.New("session name must be 1-200 characters")
	ErrInvalidUserName    = errors.New("user name must be 1-100 characters")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnauthorized       = errors.New("operation requires the session admin")
	ErrDocumentAlreadySet = errors.New("session already has a document")
	ErrInvalidPage        = errors.New("page must be at least 1")
	ErrInvalidToken       = errors.New("unknown credential token")
)
