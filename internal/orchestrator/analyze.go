package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/llm"
	"github.com/dusk-indust/profilegen/internal/profile"
	"github.com/dusk-indust/profilegen/internal/prompt"
	"github.com/dusk-indust/profilegen/internal/retry"
)

// FileAnalyzer produces the file analysis section from attached documents.
// The file analysis prompt is sent verbatim, without subject substitution.
type FileAnalyzer struct {
	Catalog prompt.Catalog
	Clients ClientSource

	// Retry wraps the call when set.
	Retry  *retry.Executor
	Logger *zap.Logger
}

// Analyze sends the file analysis prompt followed by blocks and returns the
// resulting section.
func (a *FileAnalyzer) Analyze(ctx context.Context, subject *profile.Subject, blocks []llm.PromptBlock) (profile.Section, error) {
	if !subject.Valid() {
		return profile.Section{}, InvalidSubjectError{}
	}
	if len(blocks) == 0 {
		return profile.Section{}, &profile.ValidationError{Field: "files", Message: "at least one document is required"}
	}

	tmpl, err := a.Catalog.Load(prompt.FileAnalysis)
	if err != nil {
		return profile.Section{}, fmt.Errorf("file analysis: load prompt: %w", err)
	}
	client, err := a.Clients.ClientFor(tmpl.Config)
	if err != nil {
		return profile.Section{}, fmt.Errorf("file analysis: resolve client: %w", err)
	}

	full := make([]llm.PromptBlock, 0, len(blocks)+1)
	full = append(full, llm.TextBlock(tmpl.Content))
	full = append(full, blocks...)

	exec := a.Retry
	if exec == nil {
		exec = &retry.Executor{MaxRetries: 0}
	}

	start := time.Now()
	content, err := retry.Do(ctx, exec, func(ctx context.Context) (string, error) {
		return client.GenerateFileAnalysis(ctx, full, subject.Name())
	})
	if err != nil {
		return profile.Section{}, fmt.Errorf("file analysis: generate: %w", err)
	}
	if a.Logger != nil {
		a.Logger.Debug("file analysis generated",
			zap.Int("documents", len(blocks)),
			zap.Duration("elapsed", time.Since(start)))
	}
	return profile.NewSection(prompt.FileAnalysis, content, time.Now()), nil
}
