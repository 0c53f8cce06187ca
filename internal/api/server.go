// Package api exposes profile generation over HTTP: starting a run,
// reading its session, and following its progress as Server-Sent Events.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/session"
	"github.com/dusk-indust/profilegen/internal/stream"
)

const maxRequestBody = 1 << 20

// SessionNotifier binds an extra progress publisher to a session, e.g. a
// Redis or NATS fan-out.
type SessionNotifier interface {
	ForSession(id string) orchestrator.Publisher
}

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Store        *session.Store
	Streamer     *stream.Streamer
	Notifiers    []SessionNotifier

	// Metrics serves /metrics when set.
	Metrics http.Handler

	// BaseContext parents background runs. Nil means context.Background().
	BaseContext context.Context

	Logger *zap.Logger
}

// Server holds the routes and the background runs they start.
type Server struct {
	deps     Deps
	validate *validator.Validate
	logger   *zap.Logger
	runs     sync.WaitGroup
	http     *http.Server
}

// New creates a Server.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}
	if deps.Streamer == nil {
		deps.Streamer = stream.NewStreamer(deps.Store, logger)
	}
	return &Server{
		deps:     deps,
		validate: newValidator(),
		logger:   logger,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/profiles", s.handleStartProfile)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/events", s.handleSessionEvents)
		r.Get("/prompts", s.handleListPrompts)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.ListenAndServe() }()
	s.logger.Info("http server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		s.runs.Wait()
		return nil
	}
}

// Wait blocks until every background run started by the server has
// finished.
func (s *Server) Wait() { s.runs.Wait() }

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
