// Package server provides HTTP server wiring and lifecycle management for
// the status API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/api"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/config"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/logutil"
)

// ErrMissingHandlers is returned by New without status handlers.
var ErrMissingHandlers = errors.New("server: status handlers are required")

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg        config.HTTPConfig
	httpServer *http.Server
	logger     *slog.Logger
	handlers   *api.Handlers
}

// New creates a Server for cfg serving handlers.
func New(cfg config.HTTPConfig, logger *slog.Logger, handlers *api.Handlers) (*Server, error) {
	if handlers == nil {
		return nil, ErrMissingHandlers
	}
	s := &Server{
		cfg:      cfg,
		logger:   logutil.NoopIfNil(logger).With("component", "http"),
		handlers: handlers,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server. It blocks until the server is shut down and
// returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting status API", "addr", s.cfg.ListenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down status API")
	return s.httpServer.Shutdown(ctx)
}
