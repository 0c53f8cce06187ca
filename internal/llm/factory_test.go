package llm

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	settings Settings
}

func (s *stubClient) Generate(context.Context, string, string, GenerateContext) (string, error) {
	return s.settings.Model, nil
}

func (s *stubClient) GenerateFileAnalysis(context.Context, []PromptBlock, string) (string, error) {
	return "", nil
}

func TestFactory_DefaultProviderIsAnthropic(t *testing.T) {
	f := NewFactory(map[Provider]Settings{ProviderAnthropic: {APIKey: "k"}})
	c, err := f.ClientFor(nil)
	require.NoError(t, err)
	a, ok := c.(*Anthropic)
	require.True(t, ok)
	assert.Equal(t, "k", a.settings.APIKey)
}

func TestFactory_SelectsOpenAI(t *testing.T) {
	f := NewFactory(nil)
	c, err := f.ClientFor(map[string]any{"provider": "OpenAI"})
	require.NoError(t, err)
	_, ok := c.(*OpenAI)
	assert.True(t, ok)
}

func TestFactory_UnknownProvider(t *testing.T) {
	f := NewFactory(nil)
	_, err := f.ClientFor(map[string]any{"provider": "gemini"})
	require.Error(t, err)

	var upe *UnknownProviderError
	require.ErrorAs(t, err, &upe)
	assert.Equal(t, "gemini", upe.Name)
	assert.False(t, upe.Retryable())
	assert.Equal(t, "UnknownProvider", upe.Kind())
}

func TestFactory_ConfigOverrides(t *testing.T) {
	f := NewFactory(map[Provider]Settings{ProviderAnthropic: {Model: "base-model", MaxTokens: 100}})
	var captured Settings
	f.Register(ProviderAnthropic, func(s Settings, _ *http.Client) Client {
		captured = s
		return &stubClient{settings: s}
	})

	c, err := f.ClientFor(map[string]any{"model": "override", "max_tokens": 2000, "temperature": 0.5})
	require.NoError(t, err)
	out, err := c.Generate(context.Background(), "", "", GenerateContext{})
	require.NoError(t, err)
	assert.Equal(t, "override", out)
	assert.Equal(t, 2000, captured.MaxTokens)
	require.NotNil(t, captured.Temperature)
	assert.Equal(t, 0.5, *captured.Temperature)
}

func TestFactory_OverridesDoNotLeakBetweenCalls(t *testing.T) {
	f := NewFactory(map[Provider]Settings{ProviderAnthropic: {Model: "base-model"}})
	var models []string
	f.Register(ProviderAnthropic, func(s Settings, _ *http.Client) Client {
		models = append(models, s.Model)
		return &stubClient{settings: s}
	})

	_, err := f.ClientFor(map[string]any{"model": "one"})
	require.NoError(t, err)
	_, err = f.ClientFor(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "base-model"}, models)
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{Provider: ProviderOpenAI, StatusCode: 503, Section: "news", Message: "overloaded"}
	assert.Equal(t, "openai API error (section news): status 503: overloaded", err.Error())

	err = &APIError{Provider: ProviderAnthropic, Message: "connection error: refused"}
	assert.Equal(t, "anthropic API error: connection error: refused", err.Error())
}

func TestFactory_RateLimitsProvider(t *testing.T) {
	f := NewFactory(map[Provider]Settings{ProviderAnthropic: {RequestsPerSecond: 1, Burst: 1}})
	f.Register(ProviderAnthropic, func(s Settings, _ *http.Client) Client { return &stubClient{settings: s} })

	c, err := f.ClientFor(nil)
	require.NoError(t, err)
	_, ok := c.(*limitedClient)
	require.True(t, ok)

	_, err = c.Generate(context.Background(), "p", "s", GenerateContext{})
	require.NoError(t, err)

	// The burst is spent; a second call must wait about a second, so a
	// short deadline fails before reaching the provider.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	other, err := f.ClientFor(nil)
	require.NoError(t, err)
	_, err = other.Generate(ctx, "p", "s", GenerateContext{})
	assert.Error(t, err)
}

func TestFactory_NoLimiterByDefault(t *testing.T) {
	f := NewFactory(map[Provider]Settings{ProviderOpenAI: {APIKey: "k"}})
	c, err := f.ClientFor(map[string]any{"provider": "openai"})
	require.NoError(t, err)
	_, limited := c.(*limitedClient)
	assert.False(t, limited)
}
