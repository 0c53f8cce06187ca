// Package orchestrator generates the sections of a profile for one subject.
// A SectionTask produces one section; a Scheduler runs a batch of tasks
// sequentially or on a bounded worker pool, retrying transient failures and
// publishing a ProgressEvent at every state transition; the Orchestrator
// validates input, picks the scheduler and turns the run into an Outcome.
package orchestrator

import (
	"time"

	"github.com/dusk-indust/profilegen/internal/profile"
)

// Status is the lifecycle state of one section within a run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Terminal reports whether no further events follow s for a section.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// ProgressEvent is emitted at each section state transition. For one
// section events arrive in order pending, in_progress, then completed or
// failed. Events of different sections may interleave.
type ProgressEvent struct {
	SectionName string
	Status      Status

	// Section is set iff Status is StatusCompleted.
	Section *profile.Section

	// Err is set iff Status is StatusFailed.
	Err error

	Timestamp time.Time
}
