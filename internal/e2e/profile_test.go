package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dusk-indust/profilegen/internal/api"
	"github.com/dusk-indust/profilegen/internal/export"
	"github.com/dusk-indust/profilegen/internal/llm"
	"github.com/dusk-indust/profilegen/internal/llm/llmtest"
	"github.com/dusk-indust/profilegen/internal/metrics"
	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/profile"
	"github.com/dusk-indust/profilegen/internal/prompt"
	"github.com/dusk-indust/profilegen/internal/retry"
	"github.com/dusk-indust/profilegen/internal/session"
	"github.com/dusk-indust/profilegen/internal/stream"
)

var fixed = map[string]string{
	"company_values": "Integrity, craftsmanship, anvils.",
	"leadership":     "Wile E. Coyote, Chief Customer.",
}

func fixedText(_ context.Context, _, _ string, gc llm.GenerateContext) (string, error) {
	return fixed[gc.Section], nil
}

func newOrchestrator(t *testing.T, mock *llmtest.Client, col *metrics.Collector) *orchestrator.Orchestrator {
	t.Helper()
	exec := retry.NewExecutor(1, retry.NewBackoff(time.Millisecond, time.Millisecond, 7))
	return orchestrator.New(prompt.Default(), llmtest.Factory(mock),
		orchestrator.WithRetry(exec),
		orchestrator.WithMaxThreads(orchestrator.DefaultMaxThreads),
		orchestrator.WithDefaultPublisher(col),
		orchestrator.WithRetryHook(col.OnRetry),
		orchestrator.WithObserver(col),
		orchestrator.WithLogger(zaptest.NewLogger(t)))
}

// TestAcmeProfile drives the orchestrator directly with a session store
// publisher attached, as a server run does.
func TestAcmeProfile(t *testing.T) {
	mock := &llmtest.Client{Fn: fixedText}
	col := metrics.New()
	orch := newOrchestrator(t, mock, col)
	store := session.NewStore()

	subject, err := profile.NewSubject("Acme", "https://acme.com", "")
	require.NoError(t, err)
	id := store.Create(subject)

	out := orch.Call(context.Background(), subject, []string{"company_values", "leadership"},
		orchestrator.WithPublisher(session.NewPublisher(store, id)))
	store.Complete(id, out)

	require.True(t, out.OK())
	p := out.Success.Profile
	require.Len(t, p.Sections, 2)

	byName := map[string]profile.Section{}
	for _, s := range p.Sections {
		byName[s.Name] = s
	}
	assert.Equal(t, fixed["company_values"], byName["Company Values"].Content)
	assert.Equal(t, fixed["leadership"], byName["Leadership"].Content)
	assert.True(t, p.Complete())

	sess, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, session.StatusCompleted, sess.Status)
	assert.Equal(t, 2, sess.Summary.SectionsGenerated)
	assert.Equal(t, orchestrator.StatusCompleted, sess.Sections["leadership"].Status)

	for _, call := range mock.Calls() {
		assert.Contains(t, call.Prompt, "Subject Name: Acme")
		assert.Contains(t, call.Prompt, "Subject Website: https://acme.com")
	}

	md := export.Markdown(p, mustAvailable(t))
	assert.Less(t, bytes.Index([]byte(md), []byte("## Company Values")), bytes.Index([]byte(md), []byte("## Leadership")))

	n, err := testutil.GatherAndCount(col.Registry(), "profilegen_generations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func mustAvailable(t *testing.T) []string {
	t.Helper()
	names, err := prompt.Default().Available()
	require.NoError(t, err)
	return names
}

// TestAcmeProfileOverHTTP runs the same scenario through the HTTP surface
// and follows it on the event stream.
func TestAcmeProfileOverHTTP(t *testing.T) {
	mock := &llmtest.Client{Fn: fixedText, Delay: 10 * time.Millisecond}
	col := metrics.New()
	store := session.NewStore()
	streamer := stream.NewStreamer(store, zaptest.NewLogger(t))
	streamer.PollInterval = 5 * time.Millisecond
	streamer.Schedule = func(time.Duration, func()) {}

	srv := api.New(api.Deps{
		Orchestrator: newOrchestrator(t, mock, col),
		Store:        store,
		Streamer:     streamer,
		Metrics:      col.Handler(),
		Logger:       zaptest.NewLogger(t),
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body := `{"name":"Acme","website":"https://acme.com","sections":["company_values","leadership"]}`
	resp, err := http.Post(ts.URL+"/api/v1/profiles", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var started api.GenerateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/sessions/"+started.SessionID+"/events", nil)
	require.NoError(t, err)
	events, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	seen := map[string][]orchestrator.Status{}
	var complete stream.CompletePayload
	for ev := range stream.ReadEvents(ctx, events.Body) {
		require.NoError(t, ev.Err)
		switch ev.Type {
		case stream.EventSection:
			var sp stream.SectionPayload
			require.NoError(t, ev.Decode(&sp))
			seen[sp.Section.Name] = append(seen[sp.Section.Name], sp.Section.Status)
		case stream.EventComplete:
			require.NoError(t, ev.Decode(&complete))
		}
	}

	assert.Equal(t, session.StatusCompleted, complete.Status)
	require.NotNil(t, complete.Profile)
	assert.Len(t, complete.Profile.Sections, 2)
	for _, name := range []string{"company_values", "leadership"} {
		statuses := seen[name]
		require.NotEmpty(t, statuses, name)
		assert.Equal(t, orchestrator.StatusCompleted, statuses[len(statuses)-1], name)
	}
	srv.Wait()
}
