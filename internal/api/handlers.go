package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/profile"
	"github.com/dusk-indust/profilegen/internal/session"
	"github.com/dusk-indust/profilegen/internal/stream"
)

// GenerateRequest starts a profile generation.
type GenerateRequest struct {
	Name       string   `json:"name" validate:"required,max=200"`
	Website    string   `json:"website" validate:"omitempty,max=2048"`
	Language   string   `json:"language" validate:"omitempty,max=64"`
	Sections   []string `json:"sections" validate:"omitempty,max=32,dive,required,max=64"`
	Sequential bool     `json:"sequential"`
}

// GenerateResponse is returned once the run has been accepted.
type GenerateResponse struct {
	SessionID string `json:"session_id"`
}

// PromptsResponse lists the sections the catalog can generate.
type PromptsResponse struct {
	Prompts []string `json:"prompts"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.deps.Store.Len(),
	})
}

func (s *Server) handleStartProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validationMessage(err))
		return
	}

	subject, err := profile.NewSubject(req.Name, req.Website, req.Language)
	if err != nil {
		var verr *profile.ValidationError
		if errors.As(err, &verr) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", verr.Error())
			return
		}
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
		return
	}

	catalog := s.deps.Orchestrator.Catalog()
	for _, name := range req.Sections {
		if !catalog.Exists(name) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown section %q", name)
			return
		}
	}

	id := s.deps.Store.Create(subject)
	s.start(id, subject, req)

	writeJSON(w, http.StatusAccepted, GenerateResponse{SessionID: id})
}

// start runs the orchestrator for session id in the background. A crash
// in the run marks the session failed.
func (s *Server) start(id string, subject *profile.Subject, req GenerateRequest) {
	pubs := orchestrator.MultiPublisher{session.NewPublisher(s.deps.Store, id)}
	for _, n := range s.deps.Notifiers {
		pubs = append(pubs, n.ForSession(id))
	}
	opts := []orchestrator.CallOption{orchestrator.WithPublisher(pubs)}
	if req.Sequential {
		opts = append(opts, orchestrator.Sequential())
	}

	logger := s.logger.With(zap.String("session_id", id))
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("generation run crashed", zap.Any("panic", rec))
				s.deps.Store.Fail(id, fmt.Sprintf("internal error: %v", rec))
			}
		}()

		out := s.deps.Orchestrator.Call(s.deps.BaseContext, subject, req.Sections, opts...)
		s.deps.Store.Complete(id, out)
		logger.Info("session finished", zap.Bool("ok", out.OK()))
	}()
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.deps.Store.Get(id)
	if !ok {
		httpError(w, http.StatusNotFound, "not_found_error", "session %q not found", id)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sw := stream.NewWriter(w)
	sw.Init()

	err := s.deps.Streamer.Stream(r.Context(), id, sw.WriteEvent)
	if err != nil && r.Context().Err() == nil {
		s.logger.Warn("event stream ended with error",
			zap.String("session_id", id),
			zap.Error(err))
	}
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.Orchestrator.Catalog().Available()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "list prompts: %v", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, PromptsResponse{Prompts: names})
}
