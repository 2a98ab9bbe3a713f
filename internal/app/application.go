package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"slidecast/internal/api"
	"slidecast/internal/config"
	"slidecast/internal/hub"
	"slidecast/internal/router"
	"slidecast/internal/session"
	"slidecast/internal/storage"
	"slidecast/internal/websocket"
)

// Application coordinates all system components.
// Construction follows dependency order:
// Storage → Session → Rooms → Router → Hub → API → HTTP
type Application struct {
	config         *config.Config
	documentStore  *storage.Store
	sessionManager *session.Manager
	rooms          *websocket.Rooms
	eventRouter    *router.Router
	eventHub       *hub.Hub
	apiServer      *api.Server
	httpServer     *http.Server
}

// NewApplication creates an application instance with all components wired.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: document store (the only persistent component)
	documentStore, err := storage.NewStore(&storage.Config{
		UploadDir:    cfg.Storage.UploadDir,
		DatabasePath: cfg.Storage.DatabasePath,
		Timeout:      cfg.Storage.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	// STEP 2: session manager (in-memory registry, admission, presentation)
	sessionManager := session.NewManager()

	// STEP 3: room registry for connection tracking
	rooms := websocket.NewRooms()

	// STEP 4: session coordinator
	eventRouter := router.NewRouter(sessionManager, rooms)

	// STEP 5: event hub (the serialization point for all deliveries)
	eventHub := hub.NewHub(rooms, eventRouter)

	// STEP 6: API server
	apiServer := api.NewServer(sessionManager, documentStore, rooms, eventHub, cfg.Storage.MaxUploadBytes)

	// STEP 7: WebSocket upgrade handler feeding the hub
	wsHandler := websocket.NewHandler(sessionManager, eventHub)

	// STEP 8: HTTP server exposing API, uploads and the realtime endpoint
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/uploads/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:         cfg,
		documentStore:  documentStore,
		sessionManager: sessionManager,
		rooms:          rooms,
		eventRouter:    eventRouter,
		eventHub:       eventHub,
		apiServer:      apiServer,
		httpServer:     httpServer,
	}, nil
}

// Start begins application execution. The hub starts first so the HTTP
// layer never accepts a connection it cannot serve.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting slidecast on %s", app.httpServer.Addr)

	if err := app.eventHub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.eventHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("slidecast started successfully")
		return nil
	case <-ctx.Done():
		_ = app.eventHub.Stop()
		return ctx.Err()
	}
}

// Stop shuts the application down in reverse dependency order:
// HTTP → Hub → Storage.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down slidecast")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := app.eventHub.Stop(); err != nil {
		log.Printf("Event hub shutdown error: %v", err)
	}

	if err := app.documentStore.Close(); err != nil {
		log.Printf("Document store shutdown error: %v", err)
	}

	log.Printf("slidecast shutdown complete")
	return nil
}

// GetAddr returns the server address for external connections.
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
