package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Provider names an LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// DefaultProvider is used when a prompt's routing config names none.
const DefaultProvider = ProviderAnthropic

// Settings configures one provider adapter.
type Settings struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration

	// RequestsPerSecond caps the request rate to the provider across all
	// clients the factory hands out. Zero means unlimited.
	RequestsPerSecond float64
	Burst             int
}

// Constructor builds a Client from resolved settings.
type Constructor func(s Settings, hc *http.Client) Client

// Factory resolves prompt routing configs to clients. The set of providers
// is closed by default (Anthropic, OpenAI) and extended with Register.
type Factory struct {
	mu           sync.RWMutex
	constructors map[Provider]Constructor
	settings     map[Provider]Settings
	limiters     map[Provider]*rate.Limiter
	httpClient   *http.Client
}

// NewFactory returns a Factory with the built-in providers registered.
// settings supplies per-provider defaults; prompt configs override model,
// max_tokens and temperature per call.
func NewFactory(settings map[Provider]Settings) *Factory {
	f := &Factory{
		constructors: make(map[Provider]Constructor),
		settings:     make(map[Provider]Settings),
		limiters:     make(map[Provider]*rate.Limiter),
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
	for p, s := range settings {
		f.settings[p] = s
		if s.RequestsPerSecond > 0 {
			burst := s.Burst
			if burst < 1 {
				burst = 1
			}
			f.limiters[p] = rate.NewLimiter(rate.Limit(s.RequestsPerSecond), burst)
		}
	}
	f.constructors[ProviderAnthropic] = func(s Settings, hc *http.Client) Client { return NewAnthropic(s, hc) }
	f.constructors[ProviderOpenAI] = func(s Settings, hc *http.Client) Client { return NewOpenAI(s, hc) }
	return f
}

// Register adds or replaces the constructor for p.
func (f *Factory) Register(p Provider, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[p] = c
}

// Providers returns the registered provider names.
func (f *Factory) Providers() []Provider {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Provider, 0, len(f.constructors))
	for p := range f.constructors {
		out = append(out, p)
	}
	return out
}

// ClientFor builds a client for a prompt routing config. config["provider"]
// selects the backend (default anthropic); "model", "max_tokens" and
// "temperature" override the provider settings.
func (f *Factory) ClientFor(config map[string]any) (Client, error) {
	name := DefaultProvider
	if raw, ok := config["provider"]; ok && raw != nil {
		name = Provider(strings.ToLower(strings.TrimSpace(fmt.Sprint(raw))))
	}

	f.mu.RLock()
	ctor, ok := f.constructors[name]
	s := f.settings[name]
	limiter := f.limiters[name]
	f.mu.RUnlock()
	if !ok {
		return nil, &UnknownProviderError{Name: string(name)}
	}

	if m, ok := config["model"].(string); ok && m != "" {
		s.Model = m
	}
	if n, ok := toInt(config["max_tokens"]); ok && n > 0 {
		s.MaxTokens = n
	}
	if t, ok := toFloat(config["temperature"]); ok {
		s.Temperature = &t
	}

	hc := f.httpClient
	if s.Timeout > 0 {
		hc = &http.Client{Timeout: s.Timeout}
	}
	client := ctor(s, hc)
	if limiter != nil {
		client = &limitedClient{Client: client, limiter: limiter}
	}
	return client, nil
}

// limitedClient waits for the provider's rate limiter before each call.
type limitedClient struct {
	Client
	limiter *rate.Limiter
}

func (c *limitedClient) Generate(ctx context.Context, prompt, systemPrompt string, gc GenerateContext) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.Client.Generate(ctx, prompt, systemPrompt, gc)
}

func (c *limitedClient) GenerateFileAnalysis(ctx context.Context, blocks []PromptBlock, subjectName string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.Client.GenerateFileAnalysis(ctx, blocks, subjectName)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
