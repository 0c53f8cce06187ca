package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/config"
	"github.com/dusk-indust/profilegen/internal/llm"
	"github.com/dusk-indust/profilegen/internal/logging"
	"github.com/dusk-indust/profilegen/internal/metrics"
	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/prompt"
)

// app holds the components every subcommand shares.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *prompt.FSCatalog
	factory *llm.Factory
	metrics *metrics.Collector
}

func newApp() (*app, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Logs go to stderr; stdout carries command output or the MCP transport.
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	catalog := prompt.Default()
	if cfg.Prompts.Dir != "" {
		catalog = prompt.NewDirCatalog(cfg.Prompts.Dir)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog,
		factory: llm.NewFactory(cfg.ProviderSettings()),
		metrics: metrics.New(),
	}, nil
}

func (a *app) orchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(a.catalog, a.factory,
		orchestrator.WithLogger(a.logger),
		orchestrator.WithRetry(a.cfg.Executor()),
		orchestrator.WithMaxThreads(a.cfg.Generation.MaxThreads),
		orchestrator.WithDefaultPublisher(a.metrics),
		orchestrator.WithRetryHook(a.metrics.OnRetry),
		orchestrator.WithObserver(a.metrics),
	)
}

func (a *app) close() {
	_ = a.logger.Sync()
}
