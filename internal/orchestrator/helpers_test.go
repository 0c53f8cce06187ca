package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/profilegen/internal/profile"
	"github.com/dusk-indust/profilegen/internal/prompt"
	"github.com/dusk-indust/profilegen/internal/retry"
)

// stubCatalog implements prompt.Catalog with func fields. A nil load
// returns a template for any name.
type stubCatalog struct {
	load      func(name string) (prompt.Template, error)
	available func() ([]string, error)
}

func (c *stubCatalog) Load(name string) (prompt.Template, error) {
	if c.load == nil {
		return prompt.Template{Name: name, Content: "Write about [Company Name].", Config: map[string]any{}}, nil
	}
	return c.load(name)
}

func (c *stubCatalog) Exists(name string) bool {
	_, err := c.Load(name)
	return err == nil
}

func (c *stubCatalog) Available() ([]string, error) {
	if c.available == nil {
		return nil, nil
	}
	return c.available()
}

// onlyCatalog knows exactly the given names.
func onlyCatalog(names ...string) *stubCatalog {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	return &stubCatalog{
		load: func(name string) (prompt.Template, error) {
			if !known[name] {
				return prompt.Template{}, &prompt.NotFoundError{Name: name}
			}
			return prompt.Template{Name: name, Content: "Profile [Company Name].", Config: map[string]any{}}, nil
		},
		available: func() ([]string, error) { return names, nil },
	}
}

// recorder is a concurrency-safe Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) Publish(ev ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProgressEvent, len(r.events))
	copy(out, r.events)
	return out
}

// statuses returns the status sequence recorded for one section.
func (r *recorder) statuses(section string) []Status {
	var out []Status
	for _, ev := range r.all() {
		if ev.SectionName == section {
			out = append(out, ev.Status)
		}
	}
	return out
}

// sleepRecorder is an injectable retry sleep that returns immediately.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}

func fastRetry(maxRetries int, s *sleepRecorder) *retry.Executor {
	return &retry.Executor{
		MaxRetries: maxRetries,
		Backoff:    retry.NewBackoff(time.Millisecond, 10*time.Millisecond, 7),
		Sleep:      s.sleep,
	}
}

func mustSubject(t *testing.T, name, website string) *profile.Subject {
	t.Helper()
	s, err := profile.NewSubject(name, website, "")
	require.NoError(t, err)
	return s
}

func sectionNames(sections []profile.Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.PromptFile
	}
	return out
}
