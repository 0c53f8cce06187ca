// Package config loads profilegen settings. Sources are applied in order:
// built-in defaults, profilegen.yml, a .env file, then the process
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/profilegen/internal/llm"
	"github.com/dusk-indust/profilegen/internal/retry"
)

// Config is the complete profilegen configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Generation GenerationConfig `yaml:"generation"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Prompts    PromptsConfig    `yaml:"prompts"`
	Log        LogConfig        `yaml:"log"`
	Notify     NotifyConfig     `yaml:"notify"`
	Session    SessionConfig    `yaml:"session"`
}

// ServerConfig configures the HTTP surface and its progress stream.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	PollInterval time.Duration `yaml:"pollInterval"`
	GracePeriod  time.Duration `yaml:"gracePeriod"`
}

// GenerationConfig configures scheduling and retries.
type GenerationConfig struct {
	MaxThreads  int           `yaml:"maxThreads"`
	MaxRetries  int           `yaml:"maxRetries"`
	BackoffBase time.Duration `yaml:"backoffBase"`
	BackoffCap  time.Duration `yaml:"backoffCap"`
	Sequential  bool          `yaml:"sequential"`
}

// ProvidersConfig holds one block per LLM provider.
type ProvidersConfig struct {
	Anthropic ProviderConfig `yaml:"anthropic"`
	OpenAI    ProviderConfig `yaml:"openai"`
}

// ProviderConfig holds the defaults for one provider. Prompt front matter
// may still override the model per section.
type ProviderConfig struct {
	APIKey    string        `yaml:"apiKey,omitempty"`
	BaseURL   string        `yaml:"baseURL,omitempty"`
	Model     string        `yaml:"model,omitempty"`
	MaxTokens int           `yaml:"maxTokens,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`

	// RequestsPerSecond throttles calls to the provider; zero disables it.
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}

// PromptsConfig selects the prompt catalog. An empty Dir means the
// embedded defaults.
type PromptsConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file,omitempty"`
	Development bool   `yaml:"development"`
}

// NotifyConfig enables cross-instance progress fan-out.
type NotifyConfig struct {
	RedisURL string `yaml:"redisURL,omitempty"`
	NATSURL  string `yaml:"natsURL,omitempty"`
}

// SessionConfig configures the in-memory session store.
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			PollInterval: 500 * time.Millisecond,
			GracePeriod:  30 * time.Second,
		},
		Generation: GenerationConfig{
			MaxThreads:  5,
			MaxRetries:  retry.DefaultMaxRetries,
			BackoffBase: retry.DefaultBase,
			BackoffCap:  retry.DefaultCap,
		},
		Providers: ProvidersConfig{
			Anthropic: ProviderConfig{Timeout: 120 * time.Second},
			OpenAI:    ProviderConfig{Timeout: 120 * time.Second},
		},
		Log:     LogConfig{Level: "info"},
		Session: SessionConfig{TTL: time.Hour},
	}
}

// Load builds a Config from dir. Missing files are not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()

	for _, name := range []string{"profilegen.yml", "profilegen.yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		break
	}

	// godotenv never overrides variables already set in the environment.
	envFile := filepath.Join(dir, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "PROFILEGEN_ADDR")
	setString(&c.Prompts.Dir, "PROFILEGEN_PROMPTS_DIR")
	setString(&c.Log.Level, "PROFILEGEN_LOG_LEVEL")
	setString(&c.Log.File, "PROFILEGEN_LOG_FILE")
	setString(&c.Notify.RedisURL, "PROFILEGEN_REDIS_URL")
	setString(&c.Notify.NATSURL, "PROFILEGEN_NATS_URL")
	setString(&c.Providers.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&c.Providers.Anthropic.BaseURL, "ANTHROPIC_BASE_URL")
	setString(&c.Providers.Anthropic.Model, "PROFILEGEN_ANTHROPIC_MODEL")
	setString(&c.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.Providers.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Providers.OpenAI.Model, "PROFILEGEN_OPENAI_MODEL")

	if err := setInt(&c.Generation.MaxThreads, "PROFILEGEN_MAX_THREADS"); err != nil {
		return err
	}
	if err := setInt(&c.Generation.MaxRetries, "PROFILEGEN_MAX_RETRIES"); err != nil {
		return err
	}
	if err := setBool(&c.Generation.Sequential, "PROFILEGEN_SEQUENTIAL"); err != nil {
		return err
	}
	if err := setBool(&c.Log.Development, "PROFILEGEN_LOG_DEVELOPMENT"); err != nil {
		return err
	}
	for key, dst := range map[string]*time.Duration{
		"PROFILEGEN_POLL_INTERVAL": &c.Server.PollInterval,
		"PROFILEGEN_GRACE_PERIOD":  &c.Server.GracePeriod,
		"PROFILEGEN_BACKOFF_BASE":  &c.Generation.BackoffBase,
		"PROFILEGEN_BACKOFF_CAP":   &c.Generation.BackoffCap,
		"PROFILEGEN_SESSION_TTL":   &c.Session.TTL,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks ranges and required values.
func (c *Config) Validate() error {
	var errs []error
	if c.Generation.MaxThreads < 1 {
		errs = append(errs, fmt.Errorf("generation.maxThreads must be at least 1"))
	}
	if c.Generation.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("generation.maxRetries must not be negative"))
	}
	if c.Generation.BackoffBase <= 0 {
		errs = append(errs, fmt.Errorf("generation.backoffBase must be positive"))
	}
	if c.Generation.BackoffCap < c.Generation.BackoffBase {
		errs = append(errs, fmt.Errorf("generation.backoffCap must be at least backoffBase"))
	}
	if c.Server.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.pollInterval must be positive"))
	}
	if c.Server.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("server.gracePeriod must not be negative"))
	}
	for name, p := range map[string]ProviderConfig{"anthropic": c.Providers.Anthropic, "openai": c.Providers.OpenAI} {
		if p.RequestsPerSecond < 0 {
			errs = append(errs, fmt.Errorf("providers.%s.requestsPerSecond must not be negative", name))
		}
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session.ttl must be positive"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}

// ProviderSettings converts the provider blocks into llm factory settings.
func (c *Config) ProviderSettings() map[llm.Provider]llm.Settings {
	conv := func(p ProviderConfig) llm.Settings {
		return llm.Settings{
			APIKey:    p.APIKey,
			BaseURL:   p.BaseURL,
			Model:     p.Model,
			MaxTokens: p.MaxTokens,
			Timeout:   p.Timeout,

			RequestsPerSecond: p.RequestsPerSecond,
			Burst:             p.Burst,
		}
	}
	return map[llm.Provider]llm.Settings{
		llm.ProviderAnthropic: conv(c.Providers.Anthropic),
		llm.ProviderOpenAI:    conv(c.Providers.OpenAI),
	}
}

// Executor builds the retry policy described by the generation block.
func (c *Config) Executor() *retry.Executor {
	backoff := retry.DefaultBackoff()
	backoff.Base = c.Generation.BackoffBase
	backoff.Cap = c.Generation.BackoffCap
	return retry.NewExecutor(c.Generation.MaxRetries, backoff)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
