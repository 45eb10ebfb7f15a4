// Package server exposes the generation and upload pipeline over HTTP for
// the browser extension: an SSE endpoint for generation sessions and JSON
// endpoints for upload, story fetch, and story analysis.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/testgenius/testgenius/internal/azure"
	"github.com/testgenius/testgenius/internal/config"
	"github.com/testgenius/testgenius/internal/generator"
	"github.com/testgenius/testgenius/internal/logging"
)

// Server serves the pipeline endpoints.
type Server struct {
	port       int
	cfg        *config.Config
	generators *generator.Registry
	limiter    *ipLimiter

	// azureClient builds the tracker client for one request. Overridable
	// so tests can point at a fake tracker.
	azureClient func(bearerToken string) *azure.Client

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	started  bool
}

// Option configures a Server.
type Option func(*Server)

// WithAzureClientFactory overrides how per-request tracker clients are
// built. Used by tests.
func WithAzureClientFactory(factory func(bearerToken string) *azure.Client) Option {
	return func(s *Server) { s.azureClient = factory }
}

// NewServer creates a Server from the loaded configuration. At least one
// provider must be registered; generation is the whole point of the process.
func NewServer(cfg *config.Config, generators *generator.Registry, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if generators == nil || len(generators.Names()) == 0 {
		return nil, errors.New("at least one provider is required")
	}

	s := &Server{
		port:       cfg.Server.Port,
		cfg:        cfg,
		generators: generators,
		limiter:    newIPLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
	}
	s.azureClient = func(bearerToken string) *azure.Client {
		if bearerToken != "" {
			return azure.NewClient(cfg.Azure.OrgURL, cfg.Azure.Project, azure.WithBearerToken(bearerToken))
		}
		return azure.NewClient(cfg.Azure.OrgURL, cfg.Azure.Project, azure.WithPAT(cfg.Azure.PAT))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Start starts the HTTP server.
// The server runs until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Handler: s.withCORS(s.limiter.middleware(mux)),
		// Generation streams stay open for minutes; no write timeout.
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	go s.limiter.cleanupLoop(ctx)

	logging.Info("server listening", "addr", listener.Addr().String())

	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.started = false
	return nil
}

// ListenAddr returns the actual address the server is listening on.
// Useful when port 0 is used to get an available port.
// Returns empty string if not started.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/generate_test_cases", s.handleGenerate)
	mux.HandleFunc("/upload_test_cases", s.handleUpload)
	mux.HandleFunc("/analyze_story", s.handleAnalyze)
	mux.HandleFunc("/fetch_story", s.handleFetchStory)
}
