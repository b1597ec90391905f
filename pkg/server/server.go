// Package server provides the admin HTTP server for budget operations.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"leadforge-hq/saturn/pkg/budget"
	"leadforge-hq/saturn/pkg/config"
)

// Server exposes budget status, account management and metrics over HTTP.
type Server struct {
	config         *config.ServerConfig
	engine         *budget.Engine
	metricsHandler http.Handler
	httpServer     *http.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
	mu             sync.RWMutex
	isRunning      bool
}

// NewServer creates an admin server. metricsHandler may be nil to disable
// the metrics endpoint.
func NewServer(cfg *config.ServerConfig, engine *budget.Engine, metricsHandler http.Handler) *Server {
	return &Server{
		config:         cfg,
		engine:         engine,
		metricsHandler: metricsHandler,
		shutdownChan:   make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting admin server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("admin server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/budget/init", s.handleInit)
	mux.HandleFunc("GET /v1/budget/status", s.handleStatus)
	mux.HandleFunc("GET /v1/budget/accounts", s.handleAccounts)
	mux.HandleFunc("GET /v1/budget/report", s.handleReport)
	mux.HandleFunc("POST /v1/budget/intensity", s.handleIntensity)
	mux.HandleFunc("POST /v1/budget/emergency-stop", s.handleEmergencyStop)

	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	return mux
}
