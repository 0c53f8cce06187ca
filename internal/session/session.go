// Package session tracks in-flight and finished generation runs so that a
// streaming transport can poll their progress.
package session

import (
	"time"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/profile"
)

// Status is the overall state of a session.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the session has finished.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SectionSnapshot is the latest known state of one section.
type SectionSnapshot struct {
	Name      string              `json:"name"`
	Title     string              `json:"title"`
	Status    orchestrator.Status `json:"status"`
	Content   string              `json:"content,omitempty"`
	Error     string              `json:"error,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Summary holds the counters of a successful run.
type Summary struct {
	SectionsGenerated int     `json:"sections_generated"`
	SectionsRequested int     `json:"sections_requested"`
	DurationSeconds   float64 `json:"duration_seconds"`
}

// Session is one generation run. Values returned by Store are copies.
type Session struct {
	ID          string                     `json:"id"`
	Subject     *profile.Subject           `json:"subject"`
	Status      Status                     `json:"status"`
	Sections    map[string]SectionSnapshot `json:"sections"`
	Profile     *profile.Profile           `json:"profile,omitempty"`
	Summary     *Summary                   `json:"summary,omitempty"`
	Error       string                     `json:"error,omitempty"`
	ErrorKind   string                     `json:"error_kind,omitempty"`
	StartedAt   time.Time                  `json:"started_at"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
}

// clone returns a copy that shares nothing mutable with s. Subject is
// immutable and shared.
func (s *Session) clone() *Session {
	dst := *s

	dst.Sections = make(map[string]SectionSnapshot, len(s.Sections))
	for k, v := range s.Sections {
		dst.Sections[k] = v
	}

	if s.Profile != nil {
		p := *s.Profile
		p.Sections = append([]profile.Section(nil), s.Profile.Sections...)
		dst.Profile = &p
	}
	if s.Summary != nil {
		sum := *s.Summary
		dst.Summary = &sum
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		dst.CompletedAt = &at
	}
	return &dst
}
