package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/dusk-indust/profilegen/internal/profile"
)

// Outcome is the result of a generation call. Exactly one of Success and
// Failure is set.
type Outcome struct {
	Success *Success `json:"success,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Success != nil }

// Success describes a finished run. A run where some sections failed is
// still a success; compare SectionsGenerated with SectionsRequested.
type Success struct {
	Profile           *profile.Profile
	SectionsGenerated int
	SectionsRequested int
	Duration          time.Duration
}

// DurationSeconds returns Duration in seconds.
func (s *Success) DurationSeconds() float64 { return s.Duration.Seconds() }

// MarshalJSON renders the duration in seconds.
func (s *Success) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Profile           *profile.Profile `json:"profile"`
		SectionsGenerated int              `json:"sections_generated"`
		SectionsRequested int              `json:"sections_requested"`
		DurationSeconds   float64          `json:"duration_seconds"`
	}{s.Profile, s.SectionsGenerated, s.SectionsRequested, s.DurationSeconds()})
}

// Failure describes a run that could not produce a profile.
type Failure struct {
	ErrorMessage  string `json:"error_message"`
	ErrorKind     string `json:"error_kind"`
	BacktraceHint string `json:"backtrace_hint,omitempty"`

	// RetryAttempts is only set by Orchestrator.GenerateSection.
	RetryAttempts int `json:"retry_attempts,omitempty"`
}

func failureOutcome(err error) Outcome {
	return Outcome{Failure: &Failure{
		ErrorMessage:  err.Error(),
		ErrorKind:     ErrorKind(err),
		BacktraceHint: backtraceHint(err),
	}}
}
