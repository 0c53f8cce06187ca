package orchestrator

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dusk-indust/profilegen/internal/llm"
	"github.com/dusk-indust/profilegen/internal/llm/llmtest"
	"github.com/dusk-indust/profilegen/internal/prompt"
	"github.com/dusk-indust/profilegen/internal/retry"
)

// failFor returns an llmtest Fn that fails permanently for the named
// sections and echoes the section name otherwise.
func failFor(sections ...string) func(context.Context, string, string, llm.GenerateContext) (string, error) {
	bad := make(map[string]bool)
	for _, s := range sections {
		bad[s] = true
	}
	return func(_ context.Context, _, _ string, gc llm.GenerateContext) (string, error) {
		if bad[gc.Section] {
			return "", errors.New("invalid request for " + gc.Section)
		}
		return "content " + gc.Section, nil
	}
}

func TestSequentialScheduler_ContainsFailures(t *testing.T) {
	mock := &llmtest.Client{Fn: failFor("b")}
	task := &SectionTask{Catalog: onlyCatalog("a", "b"), Clients: llmtest.Factory(mock)}
	sleeps := &sleepRecorder{}
	s := NewSequentialScheduler(task, fastRetry(3, sleeps), zaptest.NewLogger(t))
	rec := &recorder{}

	sections, err := s.Run(context.Background(), mustSubject(t, "Acme", ""), []string{"a", "b"}, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, sectionNames(sections))
	assert.Equal(t, 0, sleeps.count(), "non-retryable error must not sleep")

	var got []string
	for _, ev := range rec.all() {
		got = append(got, ev.SectionName+":"+string(ev.Status))
		switch ev.Status {
		case StatusCompleted:
			require.NotNil(t, ev.Section)
			assert.Nil(t, ev.Err)
		case StatusFailed:
			assert.Nil(t, ev.Section)
			assert.Error(t, ev.Err)
		}
		assert.False(t, ev.Timestamp.IsZero())
	}
	assert.Equal(t, []string{
		"a:pending", "b:pending",
		"a:in_progress", "a:completed",
		"b:in_progress", "b:failed",
	}, got)
}

func TestSequentialScheduler_RequestOrder(t *testing.T) {
	names := []string{"zeta", "alpha", "mid"}
	mock := &llmtest.Client{Fn: failFor()}
	task := &SectionTask{Catalog: onlyCatalog(names...), Clients: llmtest.Factory(mock)}
	s := NewSequentialScheduler(task, fastRetry(0, &sleepRecorder{}), nil)

	sections, err := s.Run(context.Background(), mustSubject(t, "Acme", ""), names, nil)
	require.NoError(t, err)
	assert.Equal(t, names, sectionNames(sections))
}

func TestSequentialScheduler_RetriesTransientErrors(t *testing.T) {
	transient := &llm.APIError{Provider: llm.ProviderAnthropic, StatusCode: 503, Message: "unavailable"}
	mock := &llmtest.Client{Fn: llmtest.FailTimes(2, transient, func(s string) string { return "ok " + s })}
	task := &SectionTask{Catalog: onlyCatalog("a"), Clients: llmtest.Factory(mock)}
	sleeps := &sleepRecorder{}
	s := NewSequentialScheduler(task, fastRetry(3, sleeps), nil)
	rec := &recorder{}

	sections, err := s.Run(context.Background(), mustSubject(t, "Acme", ""), []string{"a"}, rec)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "ok a", sections[0].Content)
	assert.Equal(t, 2, sleeps.count())
	assert.Equal(t, 3, mock.CallCount("a"))
	assert.Equal(t, []Status{StatusPending, StatusInProgress, StatusCompleted}, rec.statuses("a"))
}

func TestSequentialScheduler_RetryBudgetExhausted(t *testing.T) {
	transient := errors.New("connection reset by peer")
	mock := &llmtest.Client{Err: transient}
	task := &SectionTask{Catalog: onlyCatalog("a", "b"), Clients: llmtest.Factory(mock)}
	sleeps := &sleepRecorder{}
	s := NewSequentialScheduler(task, fastRetry(2, sleeps), nil)
	rec := &recorder{}

	sections, err := s.Run(context.Background(), mustSubject(t, "Acme", ""), []string{"a", "b"}, rec)
	require.NoError(t, err)
	assert.Empty(t, sections)
	assert.Equal(t, 3, mock.CallCount("a"))
	assert.Equal(t, 3, mock.CallCount("b"))
	assert.Equal(t, 4, sleeps.count())
	assert.Equal(t, []Status{StatusPending, StatusInProgress, StatusFailed}, rec.statuses("b"))
}

func TestParallelScheduler_BoundedPool(t *testing.T) {
	names := []string{"s1", "s2", "s3", "s4", "s5"}
	const delay = 60 * time.Millisecond
	mock := &llmtest.Client{Fn: failFor("s4"), Delay: delay}
	task := &SectionTask{Catalog: onlyCatalog(names...), Clients: llmtest.Factory(mock)}
	p := NewParallelScheduler(task, fastRetry(0, &sleepRecorder{}), 2, zaptest.NewLogger(t))
	rec := &recorder{}

	before := runtime.NumGoroutine()
	start := time.Now()
	sections, err := p.Run(context.Background(), mustSubject(t, "Acme", ""), names, rec)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"s1", "s2", "s3", "s5"}, sectionNames(sections))
	assert.LessOrEqual(t, mock.MaxConcurrent(), 2)
	assert.Less(t, elapsed, time.Duration(len(names))*delay, "parallel run should beat the sequential equivalent")

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond, "workers leaked")

	for _, name := range names {
		st := rec.statuses(name)
		require.Len(t, st, 3, name)
		assert.Equal(t, StatusPending, st[0])
		assert.Equal(t, StatusInProgress, st[1])
		if name == "s4" {
			assert.Equal(t, StatusFailed, st[2])
		} else {
			assert.Equal(t, StatusCompleted, st[2])
		}
	}
}

func TestParallelScheduler_PendingBeforeAnyWork(t *testing.T) {
	names := []string{"a", "b", "c"}
	mock := &llmtest.Client{Fn: failFor()}
	task := &SectionTask{Catalog: onlyCatalog(names...), Clients: llmtest.Factory(mock)}
	p := NewParallelScheduler(task, nil, 0, nil)
	rec := &recorder{}

	_, err := p.Run(context.Background(), mustSubject(t, "Acme", ""), names, rec)
	require.NoError(t, err)

	events := rec.all()
	require.GreaterOrEqual(t, len(events), 3)
	for i := range names {
		assert.Equal(t, StatusPending, events[i].Status)
	}
	assert.Equal(t, DefaultMaxThreads, p.MaxThreads)
}

func TestParallelScheduler_PanicDrainsAndReports(t *testing.T) {
	names := []string{"a", "boom", "c", "d"}
	cat := onlyCatalog(names...)
	inner := cat.load
	cat.load = func(name string) (prompt.Template, error) {
		if name == "boom" {
			panic("catalog exploded")
		}
		return inner(name)
	}
	var finished atomic.Int32
	mock := &llmtest.Client{
		Delay: 20 * time.Millisecond,
		Fn: func(_ context.Context, _, _ string, gc llm.GenerateContext) (string, error) {
			finished.Add(1)
			return "ok", nil
		},
	}
	task := &SectionTask{Catalog: cat, Clients: llmtest.Factory(mock)}
	p := NewParallelScheduler(task, fastRetry(0, &sleepRecorder{}), 2, nil)
	rec := &recorder{}

	sections, err := p.Run(context.Background(), mustSubject(t, "Acme", ""), names, rec)
	require.Error(t, err)

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Section)
	assert.Equal(t, "catalog exploded", pe.Value)
	assert.NotEmpty(t, pe.Stack)

	assert.ElementsMatch(t, []string{"a", "c", "d"}, sectionNames(sections))
	assert.Equal(t, int32(3), finished.Load())
	assert.Equal(t, []Status{StatusPending, StatusInProgress, StatusFailed}, rec.statuses("boom"))
}

func TestSequentialScheduler_PanicDoesNotStopLaterSections(t *testing.T) {
	cat := onlyCatalog("boom", "after")
	inner := cat.load
	cat.load = func(name string) (prompt.Template, error) {
		if name == "boom" {
			panic(errors.New("bad template"))
		}
		return inner(name)
	}
	mock := &llmtest.Client{Text: "ok"}
	s := NewSequentialScheduler(&SectionTask{Catalog: cat, Clients: llmtest.Factory(mock)}, nil, nil)

	sections, err := s.Run(context.Background(), mustSubject(t, "Acme", ""), []string{"boom", "after"}, nil)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, []string{"after"}, sectionNames(sections))
}

func TestScheduler_PanickingPublisherIsContained(t *testing.T) {
	mock := &llmtest.Client{Text: "ok"}
	task := &SectionTask{Catalog: onlyCatalog("a"), Clients: llmtest.Factory(mock)}
	pub := PublisherFunc(func(ev ProgressEvent) {
		if ev.Status == StatusInProgress {
			panic("publisher down")
		}
	})

	p := NewParallelScheduler(task, nil, 1, nil)
	_, err := p.Run(context.Background(), mustSubject(t, "Acme", ""), []string{"a"}, pub)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "a", pe.Section)
}

func TestScheduler_CanceledContextSkipsSections(t *testing.T) {
	mock := &llmtest.Client{Text: "ok"}
	task := &SectionTask{Catalog: onlyCatalog("a", "b"), Clients: llmtest.Factory(mock)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, s := range []Scheduler{
		NewSequentialScheduler(task, nil, nil),
		NewParallelScheduler(task, nil, 2, nil),
	} {
		rec := &recorder{}
		sections, err := s.Run(ctx, mustSubject(t, "Acme", ""), []string{"a", "b"}, rec)
		require.NoError(t, err)
		assert.Empty(t, sections)
		assert.Equal(t, []Status{StatusPending, StatusSkipped}, rec.statuses("a"))
		for _, ev := range rec.all() {
			assert.NoError(t, ev.Err, "%s %s", ev.SectionName, ev.Status)
		}
	}
	assert.Equal(t, 0, mock.CallCount(""))
}

func TestScheduler_RetryHookSeesSectionName(t *testing.T) {
	transient := errors.New("request timeout")
	mock := &llmtest.Client{Fn: llmtest.FailTimes(1, transient, func(string) string { return "ok" })}
	task := &SectionTask{Catalog: onlyCatalog("news"), Clients: llmtest.Factory(mock)}

	var hooked []string
	u := unit{task: task, retry: fastRetry(3, &sleepRecorder{}), onRetry: func(section string, attempt int, err error, _ time.Duration) {
		hooked = append(hooked, section)
		assert.Equal(t, 0, attempt)
		assert.ErrorIs(t, err, transient)
	}}
	s := &SequentialScheduler{u: u}

	sections, err := s.Run(context.Background(), mustSubject(t, "Acme", ""), []string{"news"}, nil)
	require.NoError(t, err)
	assert.Len(t, sections, 1)
	assert.Equal(t, []string{"news"}, hooked)
}

func TestScheduler_SectionNameDoesNotMakeErrorTransient(t *testing.T) {
	names := []string{"fortune_500", "timeout_risks"}
	for _, mk := range []func(*SectionTask, *retry.Executor) Scheduler{
		func(task *SectionTask, exec *retry.Executor) Scheduler {
			return NewSequentialScheduler(task, exec, nil)
		},
		func(task *SectionTask, exec *retry.Executor) Scheduler {
			return NewParallelScheduler(task, exec, 2, nil)
		},
	} {
		mock := &llmtest.Client{Err: errors.New("invalid api key")}
		task := &SectionTask{Catalog: onlyCatalog(names...), Clients: llmtest.Factory(mock)}
		sleeps := &sleepRecorder{}

		sections, err := mk(task, fastRetry(3, sleeps)).Run(context.Background(), mustSubject(t, "Acme", ""), names, nil)
		require.NoError(t, err)
		assert.Empty(t, sections)
		assert.Equal(t, 1, mock.CallCount("fortune_500"))
		assert.Equal(t, 1, mock.CallCount("timeout_risks"))
		assert.Equal(t, 0, sleeps.count())
	}
}

func TestScheduler_PanicPublishingCompletedKeepsSection(t *testing.T) {
	mock := &llmtest.Client{Text: "ok"}
	task := &SectionTask{Catalog: onlyCatalog("a", "b"), Clients: llmtest.Factory(mock)}
	pub := PublisherFunc(func(ev ProgressEvent) {
		if ev.SectionName == "a" && ev.Status == StatusCompleted {
			panic("publisher down")
		}
	})

	for _, s := range []Scheduler{
		NewSequentialScheduler(task, nil, zaptest.NewLogger(t)),
		NewParallelScheduler(task, nil, 2, zaptest.NewLogger(t)),
	} {
		sections, err := s.Run(context.Background(), mustSubject(t, "Acme", ""), []string{"a", "b"}, pub)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, sectionNames(sections))
	}
}
