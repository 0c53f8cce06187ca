// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dusk-indust/profilegen/internal/llm"
)

// Call records one invocation of the mock.
type Call struct {
	Prompt       string
	SystemPrompt string
	Context      llm.GenerateContext
	Blocks       []llm.PromptBlock
}

// Client is a thread-safe mock llm.Client.
//
//	mock := &llmtest.Client{
//	    Fn: func(_ context.Context, _, _ string, gc llm.GenerateContext) (string, error) {
//	        return "text for " + gc.Section, nil
//	    },
//	}
//
// With Fn nil, Generate returns Text (or Err when set).
type Client struct {
	Fn     func(ctx context.Context, prompt, systemPrompt string, gc llm.GenerateContext) (string, error)
	FileFn func(ctx context.Context, blocks []llm.PromptBlock, subjectName string) (string, error)
	Text   string
	Err    error
	Delay  time.Duration

	mu          sync.Mutex
	calls       []Call
	inFlight    int
	maxInFlight int
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, prompt, systemPrompt string, gc llm.GenerateContext) (string, error) {
	c.enter(Call{Prompt: prompt, SystemPrompt: systemPrompt, Context: gc})
	defer c.leave()

	if err := c.wait(ctx); err != nil {
		return "", err
	}
	if c.Fn != nil {
		return c.Fn(ctx, prompt, systemPrompt, gc)
	}
	if c.Err != nil {
		return "", c.Err
	}
	return c.Text, nil
}

// GenerateFileAnalysis implements llm.Client.
func (c *Client) GenerateFileAnalysis(ctx context.Context, blocks []llm.PromptBlock, subjectName string) (string, error) {
	c.enter(Call{Blocks: blocks, Context: llm.GenerateContext{Subject: subjectName, Section: "file_analysis"}})
	defer c.leave()

	if err := c.wait(ctx); err != nil {
		return "", err
	}
	if c.FileFn != nil {
		return c.FileFn(ctx, blocks, subjectName)
	}
	if c.Err != nil {
		return "", c.Err
	}
	return c.Text, nil
}

func (c *Client) enter(call Call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	c.inFlight++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
}

func (c *Client) leave() {
	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
}

func (c *Client) wait(ctx context.Context) error {
	if c.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(c.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns the number of calls made for section, or all calls
// when section is empty.
func (c *Client) CallCount(section string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if section == "" {
		return len(c.calls)
	}
	n := 0
	for _, call := range c.calls {
		if call.Context.Section == section {
			n++
		}
	}
	return n
}

// MaxConcurrent returns the highest number of overlapping calls observed.
func (c *Client) MaxConcurrent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInFlight
}

// Factory returns an llm.Factory whose built-in providers all resolve to c.
func Factory(c *Client) *llm.Factory {
	f := llm.NewFactory(nil)
	ctor := func(llm.Settings, *http.Client) llm.Client { return c }
	f.Register(llm.ProviderAnthropic, ctor)
	f.Register(llm.ProviderOpenAI, ctor)
	return f
}

// FailTimes returns an Fn that fails the first n calls for each section
// with err and then returns text.
func FailTimes(n int, err error, text func(section string) string) func(context.Context, string, string, llm.GenerateContext) (string, error) {
	var mu sync.Mutex
	seen := make(map[string]int)
	return func(_ context.Context, _, _ string, gc llm.GenerateContext) (string, error) {
		mu.Lock()
		seen[gc.Section]++
		count := seen[gc.Section]
		mu.Unlock()
		if count <= n {
			return "", err
		}
		return text(gc.Section), nil
	}
}
