package llm

import "fmt"

// APIError is returned by adapters for any failure talking to the upstream
// provider: non-2xx responses and transport errors alike. It is always
// considered transient.
type APIError struct {
	Provider   Provider
	StatusCode int // 0 for transport errors
	Section    string
	Message    string
}

func (e *APIError) Error() string {
	var where string
	if e.Section != "" {
		where = fmt.Sprintf(" (section %s)", e.Section)
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error%s: %s", e.Provider, where, e.Message)
	}
	return fmt.Sprintf("%s API error%s: status %d: %s", e.Provider, where, e.StatusCode, e.Message)
}

// Kind returns the error kind reported in failure outcomes.
func (e *APIError) Kind() string { return "UpstreamAPIError" }

// Retryable reports true: upstream errors are retried within budget.
func (e *APIError) Retryable() bool { return true }

// UnknownProviderError is returned by the factory for a provider name
// with no registered constructor.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.Name)
}

// Kind returns the error kind reported in failure outcomes.
func (e *UnknownProviderError) Kind() string { return "UnknownProvider" }

// Retryable reports false: routing misconfiguration is fatal to a section.
func (e *UnknownProviderError) Retryable() bool { return false }
