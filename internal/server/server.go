package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/94faddy/dz-wrokshop/internal/authtoken"
	"github.com/94faddy/dz-wrokshop/internal/interfaces"
)

// Server manages the HTTP surface: submission, status, archive delivery,
// admin listing, and the websocket log stream.
type Server struct {
	orchestrator interfaces.OrchestratorService
	registry     interfaces.Registry
	logBus       interfaces.LogBus
	verifier     *authtoken.Verifier
	log          arbor.ILogger

	router *http.ServeMux
	server *http.Server
}

// Options configures the HTTP listener.
type Options struct {
	Host string
	Port int
}

func New(opts Options, orch interfaces.OrchestratorService, reg interfaces.Registry, logBus interfaces.LogBus, verifier *authtoken.Verifier, log arbor.ILogger) *Server {
	s := &Server{
		orchestrator: orch,
		registry:     reg,
		logBus:       logBus,
		verifier:     verifier,
		log:          log,
	}

	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // archive downloads and the websocket stream can run long
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start blocks serving HTTP until the listener is closed.
func (s *Server) Start() error {
	s.log.Info().Str("address", s.server.Addr).Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info().Msg("HTTP server stopped")
	return nil
}
