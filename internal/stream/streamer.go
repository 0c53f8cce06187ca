package stream

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/profile"
	"github.com/dusk-indust/profilegen/internal/session"
)

const (
	// DefaultPollInterval is how often the session is polled.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultGracePeriod is how long a finished session is kept after the
	// final event, so late snapshot requests still succeed.
	DefaultGracePeriod = 30 * time.Second
)

// Source is the part of session.Store the streamer needs.
type Source interface {
	Get(id string) (*session.Session, bool)
	Delete(id string)
}

// EmitFunc writes one event. Returning an error stops the stream.
type EmitFunc func(typ string, payload any) error

// SectionPayload is the data of a section event.
type SectionPayload struct {
	SessionID string                  `json:"session_id"`
	Section   session.SectionSnapshot `json:"section"`
}

// CompletePayload is the data of a complete event.
type CompletePayload struct {
	SessionID string           `json:"session_id"`
	Status    session.Status   `json:"status"`
	Summary   *session.Summary `json:"summary,omitempty"`
	Profile   *profile.Profile `json:"profile,omitempty"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Streamer polls a session and emits an event for every section state it
// has not emitted yet, then a final complete or error event.
type Streamer struct {
	Source       Source
	PollInterval time.Duration
	GracePeriod  time.Duration
	Logger       *zap.Logger

	// Schedule runs f after d. Nil means time.AfterFunc.
	Schedule func(d time.Duration, f func())
}

// NewStreamer creates a Streamer with the default intervals.
func NewStreamer(src Source, logger *zap.Logger) *Streamer {
	return &Streamer{
		Source:       src,
		PollInterval: DefaultPollInterval,
		GracePeriod:  DefaultGracePeriod,
		Logger:       logger,
	}
}

// Stream polls session id until it finishes, emitting events through emit.
// After the final event the session is deleted once the grace period has
// passed. A missing session yields a single error event. Stream returns
// ctx.Err() if the client goes away first, or the first emit error.
func (s *Streamer) Stream(ctx context.Context, id string, emit EmitFunc) error {
	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seen := make(map[string]orchestrator.Status)
	for {
		sess, ok := s.Source.Get(id)
		if !ok {
			return emit(EventError, ErrorPayload{SessionID: id, Error: "session not found"})
		}

		for _, name := range sortedNames(sess.Sections) {
			snap := sess.Sections[name]
			if last, ok := seen[name]; ok && last == snap.Status {
				continue
			}
			seen[name] = snap.Status
			if err := emit(EventSection, SectionPayload{SessionID: id, Section: snap}); err != nil {
				return err
			}
		}

		if sess.Status.Terminal() {
			err := s.finish(id, sess, emit)
			s.scheduleDelete(id)
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Streamer) finish(id string, sess *session.Session, emit EmitFunc) error {
	if sess.Status == session.StatusCompleted {
		return emit(EventComplete, CompletePayload{
			SessionID: id,
			Status:    sess.Status,
			Summary:   sess.Summary,
			Profile:   sess.Profile,
		})
	}
	return emit(EventError, ErrorPayload{SessionID: id, Error: sess.Error, ErrorKind: sess.ErrorKind})
}

func (s *Streamer) scheduleDelete(id string) {
	grace := s.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	schedule := s.Schedule
	if schedule == nil {
		schedule = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	schedule(grace, func() {
		s.Source.Delete(id)
		if s.Logger != nil {
			s.Logger.Debug("session deleted after grace period", zap.String("session_id", id))
		}
	})
}

func sortedNames(m map[string]session.SectionSnapshot) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
