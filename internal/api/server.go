// Package api serves the HTTP front-end: health, voice profile selection
// and queued speech requests.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgnsrekt/murmur/internal/config"
	"github.com/dgnsrekt/murmur/internal/controller"
	"github.com/dgnsrekt/murmur/internal/profile"
	"github.com/dgnsrekt/murmur/internal/queue"
)

// Voice is the part of the controller the API drives directly.
type Voice interface {
	State() controller.State
	Profile() (profile.Profile, bool)
	Registry() *profile.Registry
	Configure(ctx context.Context, name string) error
}

// Server handles HTTP API requests.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	queue  *queue.Queue
	voice  Voice
}

// New creates a new API server.
func New(cfg *config.Config, logger *slog.Logger, q *queue.Queue, voice Voice) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		queue:  q,
		voice:  voice,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // profile switches load a model
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	mux.HandleFunc("GET /v1/profiles", s.withAuth(s.handleProfiles))
	mux.HandleFunc("POST /v1/profile", s.withAuth(s.handleSelectProfile))
	mux.HandleFunc("POST /v1/speak", s.withAuth(s.handleSpeak))
	mux.HandleFunc("GET /v1/jobs/{id}", s.withAuth(s.handleJob))
	return mux
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
