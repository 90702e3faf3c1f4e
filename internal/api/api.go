// Package api provides HTTP handlers and the main server logic for PostPilot.
//
// It exposes endpoints for the four normalized conversation actions
// (generate, regenerate, set style, set length), a webhook-style message
// endpoint that routes raw slash-command text, and profile/health lookups.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/postpilot/PostPilot/internal/genai"
	"github.com/postpilot/PostPilot/internal/messaging"
	"github.com/postpilot/PostPilot/internal/models"
	"github.com/postpilot/PostPilot/internal/orchestrator"
	"github.com/postpilot/PostPilot/internal/store"
)

// Default configuration constants
const (
	// DefaultAddr is the default API listen address.
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	DefaultShutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the API server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// PostService is the orchestrator surface the handlers drive.
type PostService interface {
	messaging.PostService
	Profile(conversationID string) (models.ConversationProfile, error)
}

// Server holds the API dependencies and HTTP plumbing.
type Server struct {
	posts  PostService
	router *messaging.Router
	addr   string
}

// NewServer creates an API server over the given post service.
func NewServer(posts PostService, router *messaging.Router, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{posts: posts, router: router, addr: addr}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/posts/generate", s.generateHandler)
	mux.HandleFunc("/v1/posts/regenerate", s.regenerateHandler)
	mux.HandleFunc("/v1/conversations/style", s.styleHandler)
	mux.HandleFunc("/v1/conversations/length", s.lengthHandler)
	mux.HandleFunc("/v1/conversations/profile", s.profileHandler)
	mux.HandleFunc("/v1/messages", s.messageHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run wires the store, completion client, orchestrator, and HTTP server
// together and blocks until shutdown.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Run: failed to close store", "error", err)
		}
	}()

	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize completion client: %w", err)
	}

	orch := orchestrator.New(st, client)
	router := messaging.NewRouter(orch)
	srv := NewServer(orch, router, apiOpts...)

	httpServer := &http.Server{Addr: srv.addr, Handler: srv.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("PostPilot API listening", "addr", srv.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		slog.Info("Shutdown signal received, draining API server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	slog.Info("API server stopped")
	return nil
}

// buildStore selects a backend from the configured options. With no DSN the
// server runs on the in-memory store, losing preferences across restarts.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Warn("No database DSN configured, using in-memory store; preferences will not survive restarts")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Debug("Run: using PostgreSQL store")
		return store.NewPostgresStore(storeOpts...)
	}
	slog.Debug("Run: using SQLite store", "path", cfg.DSN)
	return store.NewSQLiteStore(storeOpts...)
}
