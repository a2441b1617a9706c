// Package app hosts the table HTTP and WebSocket surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/greentable/vtt/internal/platform/timeouts"
	"github.com/greentable/vtt/internal/services/table/service"
	"github.com/greentable/vtt/internal/services/table/storage/sqlite"
)

// Config defines the inputs for the table transport boundary.
type Config struct {
	HTTPAddr          string
	StoragePath       string
	SessionSecret     string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the table HTTP/WebSocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *sqlite.Store
}

// NewServer builds a configured table server backed by a SQLite store.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	sessions, err := NewSessionCodec(config.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("init session codec: %w", err)
	}

	store, err := sqlite.Open(config.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	hub := newRoomHub()
	svc := service.New(store, hub)

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           NewHandler(svc, sessions, hub),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		store:           store,
	}, nil
}

// Run creates and serves a table server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init table server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve table: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("table server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("table server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}
}

// NewHandler builds the table routes over a service, session codec, and hub.
// Exposed so tests can mount the handler on httptest servers.
func NewHandler(svc *service.Service, sessions *SessionCodec, hub *roomHub) http.Handler {
	h := &handlers{svc: svc, sessions: sessions}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /v1/campaigns", h.withUser(h.createCampaign))
	mux.HandleFunc("GET /v1/campaigns/{campaignID}", h.withUser(h.getCampaign))
	mux.HandleFunc("POST /v1/campaigns/{campaignID}/members", h.withUser(h.addMember))
	mux.HandleFunc("GET /v1/campaigns/{campaignID}/members", h.withUser(h.listMembers))
	mux.HandleFunc("DELETE /v1/campaigns/{campaignID}/members/{userID}", h.withUser(h.removeMember))
	mux.HandleFunc("POST /v1/campaigns/{campaignID}/maps", h.withUser(h.createMap))
	mux.HandleFunc("GET /v1/campaigns/{campaignID}/maps", h.withUser(h.listMaps))
	mux.HandleFunc("DELETE /v1/campaigns/{campaignID}/maps/{mapID}", h.withUser(h.deleteMap))
	mux.HandleFunc("POST /v1/campaigns/{campaignID}/maps/{mapID}/activate", h.withUser(h.activateMap))
	mux.HandleFunc("GET /v1/campaigns/{campaignID}/state", h.withUser(h.loadState))
	mux.HandleFunc("PUT /v1/campaigns/{campaignID}/tokens", h.withUser(h.replaceTokens))
	mux.HandleFunc("POST /v1/campaigns/{campaignID}/tokens/{tokenID}/move", h.withUser(h.moveToken))
	mux.HandleFunc("POST /v1/campaigns/{campaignID}/freeze", h.withUser(h.freeze))
	mux.HandleFunc("POST /v1/campaigns/{campaignID}/unfreeze", h.withUser(h.unfreeze))
	mux.HandleFunc("PUT /v1/campaigns/{campaignID}/grid", h.withUser(h.updateGrid))
	mux.HandleFunc("PUT /v1/campaigns/{campaignID}/game-data", h.withUser(h.setGameData))
	mux.HandleFunc("GET /v1/campaigns/{campaignID}/chat/messages", h.withUser(h.chatHistory))
	mux.HandleFunc("POST /v1/campaigns/{campaignID}/chat/messages", h.withUser(h.postMessage))
	mux.HandleFunc("POST /v1/campaigns/{campaignID}/roll", h.withUser(h.roll))

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, hub, svc)
	})
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		tokenString := sessionTokenFromRequest(r)
		if tokenString == "" {
			log.Printf("table: websocket unauthorized: missing gt_token for remote=%s", r.RemoteAddr)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		userID, err := sessions.Verify(tokenString)
		if err != nil {
			log.Printf("table: websocket unauthorized: %v", err)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), wsUserIDContextKey{}, userID)
		wsHandler.ServeHTTP(w, r.WithContext(ctx))
	})

	return mux
}
