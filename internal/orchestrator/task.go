package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/llm"
	"github.com/dusk-indust/profilegen/internal/profile"
	"github.com/dusk-indust/profilegen/internal/prompt"
)

// ClientSource resolves a prompt's routing config to an LLM client.
// *llm.Factory satisfies it.
type ClientSource interface {
	ClientFor(config map[string]any) (llm.Client, error)
}

// placeholders are replaced by the subject name in system prompts.
var placeholders = []string{"[Company Name]", "[COMPANY NAME]", "[COMPANY_NAME]", "[Company]", "[company]"}

// SectionTask generates one named section for one subject. It does not
// retry; schedulers wrap it in a retry.Executor.
type SectionTask struct {
	Catalog prompt.Catalog
	Clients ClientSource
	Logger  *zap.Logger

	// Now stamps generated sections. Nil means time.Now.
	Now func() time.Time
}

// Call loads the prompt for sectionName, resolves its client, and returns
// the generated section. Errors from the catalog, the factory and the
// client are wrapped with %w so they stay classifiable. The section name
// is kept out of the wrapped message so it cannot match a transient
// marker.
func (t *SectionTask) Call(ctx context.Context, subject *profile.Subject, sectionName string) (profile.Section, error) {
	tmpl, err := t.Catalog.Load(sectionName)
	if err != nil {
		return profile.Section{}, fmt.Errorf("section task: load prompt: %w", err)
	}

	client, err := t.Clients.ClientFor(tmpl.Config)
	if err != nil {
		return profile.Section{}, fmt.Errorf("section task: resolve client: %w", err)
	}

	system := SystemPrompt(tmpl.Content, subject, sectionName)
	user := UserPrompt(subject)

	start := t.now()
	content, err := client.Generate(ctx, user, system, llm.GenerateContext{
		Subject: subject.Name(),
		Section: sectionName,
	})
	elapsed := t.now().Sub(start)
	if err != nil {
		t.logger().Debug("section generation failed",
			zap.String("section", sectionName),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return profile.Section{}, fmt.Errorf("section task: generate: %w", err)
	}
	t.logger().Debug("section generated",
		zap.String("section", sectionName),
		zap.Duration("elapsed", elapsed),
		zap.Int("chars", len(content)))

	return profile.NewSection(sectionName, content, t.now()), nil
}

// SystemPrompt substitutes the subject name for every placeholder in
// template. The file analysis prompt is returned unchanged.
func SystemPrompt(template string, subject *profile.Subject, sectionName string) string {
	if sectionName == prompt.FileAnalysis {
		return template
	}
	pairs := make([]string, 0, 2*len(placeholders))
	for _, p := range placeholders {
		pairs = append(pairs, p, subject.Name())
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// UserPrompt describes the subject to the model.
func UserPrompt(subject *profile.Subject) string {
	var sb strings.Builder
	sb.WriteString("Subject Name: ")
	sb.WriteString(subject.Name())
	if w := subject.Website(); w != "" {
		sb.WriteString("\nSubject Website: ")
		sb.WriteString(w)
	}
	if code := subject.OutputLanguage(); code != "" {
		fmt.Fprintf(&sb, "\nRespond in %s (%s) unless otherwise instructed. Keep JSON output structure unchanged.",
			profile.LanguageLabel(code), code)
	}
	return sb.String()
}

func (t *SectionTask) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

func (t *SectionTask) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}
