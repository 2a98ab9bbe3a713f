package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"slidecast/internal/session"
	"slidecast/internal/storage"
	"slidecast/pkg/interfaces"
	"slidecast/pkg/types"
)

// RoomStats is the slice of the room registry the API needs; declared here
// to avoid coupling to the websocket implementation.
type RoomStats interface {
	MemberCount(sessionID string) int
	GetStats() map[string]int
}

// Broadcaster routes HTTP-path broadcasts through the hub so they share the
// ordering point with realtime events.
type Broadcaster interface {
	Broadcast(sessionID string, event *types.ServerEvent) error
}

// Server is the HTTP API layer: session creation and lookup, join requests,
// document upload and download, health. No business logic here, only HTTP
// handling and JSON serialization.
type Server struct {
	sessionManager interfaces.SessionManager
	store          interfaces.DocumentStore
	rooms          RoomStats
	broadcaster    Broadcaster
	maxUploadBytes int64
	router         *http.ServeMux
}

// NewServer creates the API server and wires its routes.
func NewServer(sessionManager interfaces.SessionManager, store interfaces.DocumentStore, rooms RoomStats, broadcaster Broadcaster, maxUploadBytes int64) *Server {
	s := &Server{
		sessionManager: sessionManager,
		store:          store,
		rooms:          rooms,
		broadcaster:    broadcaster,
		maxUploadBytes: maxUploadBytes,
		router:         http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/sessions", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleSessions))))
	s.router.Handle("/api/sessions/", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleSessionByID))))
	s.router.Handle("/uploads/", s.corsMiddleware(http.HandlerFunc(s.serveUpload)))
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleSessions covers the collection: POST /api/sessions, GET /api/sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createSession(w, r)
	case http.MethodGet:
		s.listSessions(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSessionByID covers /api/sessions/{id}, /api/sessions/{id}/join and
// /api/sessions/{id}/document.
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if path == "" {
		s.sendError(w, "Session ID required", http.StatusBadRequest)
		return
	}

	parts := strings.Split(path, "/")
	sessionID := parts[0]
	if sessionID == "" {
		s.sendError(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	var action string
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getSession(w, r, sessionID)
	case action == "join" && r.Method == http.MethodPost:
		s.joinSession(w, r, sessionID)
	case action == "document" && r.Method == http.MethodPost:
		s.uploadDocument(w, r, sessionID)
	case r.Method == http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request/Response types for JSON serialization
type CreateSessionRequest struct {
	Name string `json:"name"`
}

type CreateSessionResponse struct {
	Session *types.SessionView `json:"session"`
	Token   string             `json:"token"`
}

type JoinSessionRequest struct {
	UserName string `json:"user_name"`
}

type JoinSessionResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
}

type SessionResponse struct {
	Session         *types.SessionView `json:"session"`
	ConnectionCount int                `json:"connection_count"`
}

type ListSessionsResponse struct {
	Sessions []SessionWithConnections `json:"sessions"`
}

type SessionWithConnections struct {
	*types.SessionView
	ConnectionCount int `json:"connection_count"`
}

type UploadDocumentResponse struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Storage     string         `json:"storage"`
	Connections map[string]int `json:"connections"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// createSession handles POST /api/sessions. The creator becomes the admin;
// their network origin is recorded as the admin identity and the response
// carries the admin token for the WebSocket connect and document upload.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	sess, cred, err := s.sessionManager.CreateSession(req.Name, remoteAddr(r))
	if err != nil {
		if errors.Is(err, session.ErrInvalidSessionName) {
			s.sendError(w, err.Error(), http.StatusBadRequest)
		} else {
			s.sendError(w, "Failed to create session", http.StatusInternalServerError)
		}
		return
	}

	view, err := s.sessionManager.DescribeSession(sess.ID)
	if err != nil {
		s.sendError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(CreateSessionResponse{Session: view, Token: cred.Token})
}

// joinSession handles POST /api/sessions/{id}/join. The viewer lands in the
// pending list; nothing is broadcast until they connect.
func (s *Server) joinSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req JoinSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	cred, err := s.sessionManager.RequestJoin(sessionID, req.UserName, remoteAddr(r))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			s.sendError(w, "Session not found", http.StatusNotFound)
		case errors.Is(err, session.ErrInvalidUserName):
			s.sendError(w, err.Error(), http.StatusBadRequest)
		default:
			s.sendError(w, "Failed to join session", http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(JoinSessionResponse{Token: cred.Token, SessionID: sessionID})
}

// getSession handles GET /api/sessions/{id}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	view, err := s.sessionManager.DescribeSession(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			s.sendError(w, "Session not found", http.StatusNotFound)
		} else {
			s.sendError(w, "Failed to get session", http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(SessionResponse{
		Session:         view,
		ConnectionCount: s.rooms.MemberCount(sessionID),
	})
}

// listSessions handles GET /api/sessions.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	views := s.sessionManager.ListSessions()

	sessions := make([]SessionWithConnections, len(views))
	for i, view := range views {
		sessions[i] = SessionWithConnections{
			SessionView:     view,
			ConnectionCount: s.rooms.MemberCount(view.ID),
		}
	}

	json.NewEncoder(w).Encode(ListSessionsResponse{Sessions: sessions})
}

// uploadDocument handles POST /api/sessions/{id}/document. Admin only, one
// document per session, PDF only. On success the room hears pdf_uploaded
// through the hub so it stays ordered with realtime events.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request, sessionID string) {
	cred, ok := s.authorizeUpload(w, r, sessionID)
	if !ok {
		return
	}

	if _, err := s.sessionManager.GetSession(sessionID); err != nil {
		s.sendError(w, "Session not found", http.StatusNotFound)
		return
	}

	// Pre-check before touching the upload; the storage UNIQUE constraint
	// still backs this up against concurrent uploads.
	if hasDoc, err := s.sessionManager.HasDocument(sessionID); err == nil && hasDoc {
		s.sendError(w, "Session already has a document", http.StatusConflict)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.sendError(w, "Document exceeds upload size limit", http.StatusRequestEntityTooLarge)
		} else {
			s.sendError(w, "Invalid multipart form", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("pdf_file")
	if err != nil {
		s.sendError(w, "Missing pdf_file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		s.sendError(w, "Only PDF documents are accepted", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.sendError(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	storedName, err := s.store.Store(r.Context(), sessionID, header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDocumentExists):
			s.sendError(w, "Session already has a document", http.StatusConflict)
		case errors.Is(err, storage.ErrInvalidFilename), errors.Is(err, storage.ErrEmptyDocument):
			s.sendError(w, "Invalid document upload", http.StatusBadRequest)
		default:
			log.Printf("Document store failed: session=%s err=%v", sessionID, err)
			s.sendError(w, "Failed to store document", http.StatusInternalServerError)
		}
		return
	}

	if err := s.sessionManager.SetDocument(sessionID, cred.Role, storedName); err != nil {
		if errors.Is(err, session.ErrDocumentAlreadySet) {
			s.sendError(w, "Session already has a document", http.StatusConflict)
		} else {
			log.Printf("SetDocument failed after store: session=%s err=%v", sessionID, err)
			s.sendError(w, "Failed to record document", http.StatusInternalServerError)
		}
		return
	}

	if err := s.broadcaster.Broadcast(sessionID, types.NewServerEvent(types.EventPDFUploaded, map[string]interface{}{
		"filename": storedName,
	})); err != nil {
		// Delivery is best-effort; clients recover via get_admin_page and
		// the session view.
		log.Printf("pdf_uploaded broadcast dropped: session=%s err=%v", sessionID, err)
	}

	json.NewEncoder(w).Encode(UploadDocumentResponse{
		Filename: storedName,
		Message:  "PDF uploaded successfully",
	})
}

// authorizeUpload resolves the caller's token and checks it grants admin
// access to this session. 401 for a bad token, 403 for a valid token that is
// not this session's admin.
func (s *Server) authorizeUpload(w http.ResponseWriter, r *http.Request, sessionID string) (*types.Credential, bool) {
	token := r.Header.Get("X-Session-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		s.sendError(w, "Missing session token", http.StatusUnauthorized)
		return nil, false
	}

	cred, err := s.sessionManager.ResolveCredential(token)
	if err != nil {
		s.sendError(w, "Invalid token", http.StatusUnauthorized)
		return nil, false
	}

	if cred.SessionID != sessionID || cred.Role != types.RoleAdmin {
		s.sendError(w, "Document upload requires the session admin", http.StatusForbidden)
		return nil, false
	}

	return cred, true
}

// serveUpload handles GET /uploads/{filename}. Stored names are validated
// against the metadata database; arbitrary paths never reach the disk read.
func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	storedName := strings.TrimPrefix(r.URL.Path, "/uploads/")
	if storedName == "" || strings.Contains(storedName, "/") {
		s.sendError(w, "Invalid document name", http.StatusBadRequest)
		return
	}

	data, err := s.store.Retrieve(r.Context(), storedName)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			s.sendError(w, "Document not found", http.StatusNotFound)
		} else {
			log.Printf("Document retrieve failed: file=%s err=%v", storedName, err)
			s.sendError(w, "Failed to retrieve document", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	if _, err := w.Write(data); err != nil {
		log.Printf("Document write failed: file=%s err=%v", storedName, err)
	}
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	storageStatus := "healthy"

	if err := s.store.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		storageStatus = fmt.Sprintf("error: %v", err)
	}

	response := HealthResponse{
		Status:      status,
		Timestamp:   time.Now(),
		Storage:     storageStatus,
		Connections: s.rooms.GetStats(),
	}

	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Session-Token")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// remoteAddr extracts the caller's host, the network-origin identity used
// for the admin and participant records.
func remoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
