// Package server exposes search, note drafting and connection requests over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/messaging"
	"github.com/yourusername/linkedin-connect/internal/search"
)

// Connector sends one connection request and reports the outcome.
type Connector interface {
	Connect(ctx context.Context, profileURL, message string) (string, error)
}

// Searcher finds profile candidates for a person at a company.
type Searcher interface {
	Search(ctx context.Context, name, company string) ([]search.Profile, error)
}

// Composer drafts a connection note.
type Composer interface {
	Generate(ctx context.Context, req messaging.NoteRequest) (string, error)
}

// Config holds the server settings.
type Config struct {
	Addr                  string
	MaxConcurrentSessions int
	ShutdownTimeout       time.Duration
}

// Server is the HTTP front end.
type Server struct {
	cfg       Config
	connector Connector
	searcher  Searcher
	composer  Composer
	sessions  *semaphore.Weighted

	// attempts tracks connection attempts still holding a browser
	mu       sync.Mutex
	draining bool
	attempts sync.WaitGroup

	router     *chi.Mux
	httpServer *http.Server
}

// New wires the routes. Every dependency is required.
func New(cfg Config, connector Connector, searcher Searcher, composer Composer) *Server {
	if cfg.MaxConcurrentSessions <= 0 {
		cfg.MaxConcurrentSessions = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:       cfg,
		connector: connector,
		searcher:  searcher,
		composer:  composer,
		sessions:  semaphore.NewWeighted(int64(cfg.MaxConcurrentSessions)),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware)
	router.Use(requestLogger)

	router.Get("/", s.handleRoot)
	router.Get("/healthz", s.handleHealth)
	router.Get("/metrics", s.handleMetrics)
	router.Post("/search_and_generate", s.handleSearchAndGenerate)
	router.Post("/send_request", s.handleSendRequest)

	s.router = router
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests. Attempts
// outlive the shutdown timeout: Run only returns once every one of them has
// released its browser.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", s.cfg.Addr, "max_sessions", s.cfg.MaxConcurrentSessions)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server", "timeout", s.cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.drain()
		if errors.Is(err, context.DeadlineExceeded) {
			// The attempts have finished by now; their clients were cut off.
			return nil
		}
		return err
	case err := <-serverErr:
		s.drain()
		return err
	}
}

// beginAttempt registers a connection attempt. It fails once draining started.
func (s *Server) beginAttempt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return false
	}
	s.attempts.Add(1)
	return true
}

// drain stops new attempts and waits for running ones to release their browsers.
func (s *Server) drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	logger.Info("Waiting for in-flight connection attempts")
	s.attempts.Wait()
}
