package profile

import "fmt"

// ValidationError reports a Subject field that failed construction-time
// validation. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid subject %s: %s", e.Field, e.Message)
}

// Kind returns the error kind reported in failure outcomes.
func (e *ValidationError) Kind() string { return "ValidationError" }

// Retryable reports false: bad input does not improve on retry.
func (e *ValidationError) Retryable() bool { return false }
