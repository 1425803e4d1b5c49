// ABOUTME: Drum export service
// ABOUTME: HTTP API for editor sessions, slot previews over WebSocket and kit export
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/op1kit/op1drum/internal/discovery"
	"github.com/op1kit/op1drum/internal/metrics"
	"github.com/op1kit/op1drum/pkg/bridge"
)

// Config holds server configuration
type Config struct {
	Address    string
	Port       int
	Name       string
	Version    string
	EnableMDNS bool
	Debug      bool
	UseTUI     bool

	MaxUploadBytes     int64
	SessionTimeout     time.Duration
	PreviewWidth       int
	PreviewConcurrency int

	// Kit is used for exports that carry no options of their own
	Kit bridge.KitOptions
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "op1drum"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 64 << 20
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = time.Hour
	}
	if c.PreviewWidth <= 0 {
		c.PreviewWidth = 128
	}
	if c.PreviewConcurrency <= 0 {
		c.PreviewConcurrency = 4
	}
}

// Server represents the export service
type Server struct {
	config   Config
	serverID string

	bridge  *bridge.Bridge
	metrics *metrics.Metrics

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Session management
	sessions   map[string]*Session
	sessionsMu sync.RWMutex

	// Export counters for the TUI
	exports  atomic.Int64
	failures atomic.Int64

	// mDNS discovery
	mdnsManager *discovery.Manager

	// TUI
	tui       *ServerTUI
	startTime time.Time

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// New creates a new server instance. A nil bridge or metrics gets a fresh one.
func New(config Config, b *bridge.Bridge, m *metrics.Metrics) *Server {
	config.setDefaults()
	if b == nil {
		b = bridge.NewDefault()
	}
	if m == nil {
		m = metrics.NewMetrics()
	}

	s := &Server{
		config:    config,
		serverID:  uuid.New().String(),
		bridge:    b,
		metrics:   m,
		mux:       http.NewServeMux(),
		sessions:  make(map[string]*Session),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// The service is meant for trusted local networks
			origin := r.Header.Get("Origin")
			if origin != "" && s.config.Debug {
				log.Printf("[DEBUG] Accepting WebSocket from origin: %s", origin)
			}
			return true
		},
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler of the service
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the server until Stop is called, the TUI quits or the
// listener fails
func (s *Server) Start() error {
	if s.config.UseTUI {
		s.tui = NewServerTUI()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tui.Start(s.config.Name, s.config.Port)
		}()

		// Give TUI time to initialize
		time.Sleep(100 * time.Millisecond)
	}

	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Version:     s.config.Version,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.janitor()
	}()

	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	log.Printf("HTTP server listening on %s", addr)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case <-tuiQuitChan:
		log.Printf("TUI quit requested, shutting down...")
		s.Stop()
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
		s.Stop()
	}

	// Reject new sessions while shutting down
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.closeSessions()
	s.wg.Wait()

	// Sessions report to the TUI while closing, so it goes last
	if s.tui != nil {
		s.tui.Stop()
	}
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShutdown
}

// setupRoutes configures HTTP API routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /healthz", s.withMetrics("/healthz", s.handleHealth))

	s.mux.HandleFunc("POST /api/sessions", s.withMetrics("/api/sessions", s.handleCreateSession))
	s.mux.HandleFunc("GET /api/sessions/{id}", s.withMetrics("/api/sessions/{id}", s.handleGetSession))
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.withMetrics("/api/sessions/{id}", s.handleDeleteSession))
	s.mux.HandleFunc("PUT /api/sessions/{id}/slots/{n}", s.withMetrics("/api/sessions/{id}/slots/{n}", s.handlePutSlot))
	s.mux.HandleFunc("DELETE /api/sessions/{id}/slots/{n}", s.withMetrics("/api/sessions/{id}/slots/{n}", s.handleDeleteSlot))
	s.mux.HandleFunc("POST /api/sessions/{id}/export", s.withMetrics("/api/sessions/{id}/export", s.handleSessionExport))
	s.mux.HandleFunc("GET /api/sessions/{id}/events", s.handleEvents)

	s.mux.HandleFunc("POST /api/export", s.withMetrics("/api/export", s.handleExport))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// withMetrics wraps an HTTP handler with metrics collection
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		s.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode),
			time.Since(startTime).Seconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// createSession registers a new session
func (s *Server) createSession() (*Session, error) {
	if s.shuttingDown() {
		return nil, fmt.Errorf("server is shutting down")
	}

	sess := newSession(s.config.PreviewConcurrency)

	s.sessionsMu.Lock()
	s.sessions[sess.ID] = sess
	count := len(s.sessions)
	s.sessionsMu.Unlock()

	s.metrics.SetActiveSessions(count)
	log.Printf("Session created: %s", sess.ID)
	s.updateTUI()
	return sess, nil
}

func (s *Server) session(id string) (*Session, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// removeSession unregisters and closes a session
func (s *Server) removeSession(id string) bool {
	s.sessionsMu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.sessionsMu.Unlock()

	if !ok {
		return false
	}
	sess.close()
	s.metrics.SetActiveSessions(count)
	log.Printf("Session closed: %s", id)
	s.updateTUI()
	return true
}

// expireSessions closes sessions idle since before cutoff
func (s *Server) expireSessions(cutoff time.Time) int {
	s.sessionsMu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) && sess.subscribers() == 0 {
			expired = append(expired, id)
		}
	}
	s.sessionsMu.RUnlock()

	sort.Strings(expired)
	for _, id := range expired {
		s.removeSession(id)
	}
	return len(expired)
}

// janitor expires idle sessions until the server stops
func (s *Server) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			if n := s.expireSessions(now.Add(-s.config.SessionTimeout)); n > 0 {
				log.Printf("Expired %d idle sessions", n)
			}
		}
	}
}

func (s *Server) closeSessions() {
	s.sessionsMu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.sessionsMu.RUnlock()

	for _, id := range ids {
		s.removeSession(id)
	}
}
