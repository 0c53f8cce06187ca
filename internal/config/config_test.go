package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/profilegen/internal/llm"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Server.GracePeriod)
	assert.Equal(t, 5, cfg.Generation.MaxThreads)
	assert.Equal(t, 3, cfg.Generation.MaxRetries)
	assert.Equal(t, time.Second, cfg.Generation.BackoffBase)
	assert.Equal(t, 30*time.Second, cfg.Generation.BackoffCap)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "profilegen.yml", `
server:
  addr: ":9090"
  pollInterval: 250ms
generation:
  maxThreads: 2
  backoffBase: 2s
  backoffCap: 1m
providers:
  openai:
    model: gpt-4o-mini
    timeout: 45s
prompts:
  dir: ./prompts
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Server.GracePeriod, "unset keys keep defaults")
	assert.Equal(t, 2, cfg.Generation.MaxThreads)
	assert.Equal(t, 2*time.Second, cfg.Generation.BackoffBase)
	assert.Equal(t, time.Minute, cfg.Generation.BackoffCap)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAI.Model)
	assert.Equal(t, 45*time.Second, cfg.Providers.OpenAI.Timeout)
	assert.Equal(t, "./prompts", cfg.Prompts.Dir)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "profilegen.yaml", "server: [")

	_, err := Load(dir)
	assert.ErrorContains(t, err, "parse profilegen.yaml")
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "profilegen.yml", "generation:\n  maxThreads: 2\n")
	t.Setenv("PROFILEGEN_MAX_THREADS", "8")
	t.Setenv("PROFILEGEN_GRACE_PERIOD", "5s")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Generation.MaxThreads)
	assert.Equal(t, 5*time.Second, cfg.Server.GracePeriod)
	assert.Equal(t, "sk-ant", cfg.Providers.Anthropic.APIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "PROFILEGEN_NATS_URL=nats://dotenv:4222\nPROFILEGEN_REDIS_URL=redis://dotenv:6379\n")
	t.Setenv("PROFILEGEN_REDIS_URL", "redis://env:6379")
	t.Cleanup(func() { os.Unsetenv("PROFILEGEN_NATS_URL") })

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "nats://dotenv:4222", cfg.Notify.NATSURL)
	assert.Equal(t, "redis://env:6379", cfg.Notify.RedisURL, "process environment wins over .env")
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("PROFILEGEN_MAX_RETRIES", "many")

	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "PROFILEGEN_MAX_RETRIES")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "threads", mutate: func(c *Config) { c.Generation.MaxThreads = 0 }, want: "maxThreads"},
		{name: "retries", mutate: func(c *Config) { c.Generation.MaxRetries = -1 }, want: "maxRetries"},
		{name: "cap below base", mutate: func(c *Config) { c.Generation.BackoffCap = time.Millisecond }, want: "backoffCap"},
		{name: "poll", mutate: func(c *Config) { c.Server.PollInterval = 0 }, want: "pollInterval"},
		{name: "ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, want: "session.ttl"},
		{name: "rate", mutate: func(c *Config) { c.Providers.OpenAI.RequestsPerSecond = -1 }, want: "providers.openai.requestsPerSecond"},
		{name: "level", mutate: func(c *Config) { c.Log.Level = "loud" }, want: "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestProviderSettings(t *testing.T) {
	cfg := Default()
	cfg.Providers.Anthropic.APIKey = "a"
	cfg.Providers.OpenAI.Model = "gpt-4o-mini"
	cfg.Providers.OpenAI.RequestsPerSecond = 2

	s := cfg.ProviderSettings()
	assert.Equal(t, "a", s[llm.ProviderAnthropic].APIKey)
	assert.Equal(t, "gpt-4o-mini", s[llm.ProviderOpenAI].Model)
	assert.Equal(t, 120*time.Second, s[llm.ProviderOpenAI].Timeout)
	assert.Equal(t, 2.0, s[llm.ProviderOpenAI].RequestsPerSecond)
}

func TestExecutor(t *testing.T) {
	cfg := Default()
	cfg.Generation.MaxRetries = 1
	cfg.Generation.BackoffBase = 10 * time.Millisecond
	cfg.Generation.BackoffCap = 20 * time.Millisecond

	e := cfg.Executor()
	assert.Equal(t, 1, e.MaxRetries)
	assert.LessOrEqual(t, e.Backoff.Delay(5), 20*time.Millisecond)
}
