package mcptools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
	"github.com/dusk-indust/profilegen/internal/profile"
)

// ProfileService handles MCP tool calls by delegating to an Orchestrator.
type ProfileService struct {
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
}

// NewProfileService creates a ProfileService.
func NewProfileService(orch *orchestrator.Orchestrator, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{orch: orch, logger: logger}
}

// GenerateProfile runs a full generation. Generation failures are
// reported in the output, not as tool errors.
func (s *ProfileService) GenerateProfile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateProfileInput,
) (*mcp.CallToolResult, GenerationOutput, error) {
	subject, err := profile.NewSubject(input.Name, input.Website, input.Language)
	if err != nil {
		return nil, errorOutput(err), nil
	}

	var opts []orchestrator.CallOption
	if input.Sequential {
		opts = append(opts, orchestrator.Sequential())
	}
	opts = append(opts, orchestrator.WithPublisher(s.progressLogger()))

	out := s.orch.Call(ctx, subject, input.Sections, opts...)
	return nil, s.toOutput(out), nil
}

// GenerateSection generates a single section with its own retry budget.
func (s *ProfileService) GenerateSection(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateSectionInput,
) (*mcp.CallToolResult, GenerationOutput, error) {
	if input.Section == "" {
		return nil, GenerationOutput{}, fmt.Errorf("section is required")
	}
	subject, err := profile.NewSubject(input.Name, input.Website, input.Language)
	if err != nil {
		return nil, errorOutput(err), nil
	}

	out := s.orch.GenerateSection(ctx, subject, input.Section, input.RetryAttempt,
		orchestrator.WithPublisher(s.progressLogger()))
	return nil, s.toOutput(out), nil
}

// ListPrompts returns the sections the catalog can generate, in canonical
// order.
func (s *ProfileService) ListPrompts(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListPromptsInput,
) (*mcp.CallToolResult, ListPromptsOutput, error) {
	names, err := s.orch.Catalog().Available()
	if err != nil {
		return nil, ListPromptsOutput{}, fmt.Errorf("list prompts: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return nil, ListPromptsOutput{Prompts: names}, nil
}

// progressLogger logs terminal section events. Stdout belongs to the MCP
// transport, so progress only goes to the logger.
func (s *ProfileService) progressLogger() orchestrator.Publisher {
	return orchestrator.PublisherFunc(func(ev orchestrator.ProgressEvent) {
		if !ev.Status.Terminal() {
			return
		}
		s.logger.Info(orchestrator.FormatProgress(ev))
	})
}

func (s *ProfileService) toOutput(out orchestrator.Outcome) GenerationOutput {
	if !out.OK() {
		return GenerationOutput{
			ErrorMessage:  out.Failure.ErrorMessage,
			ErrorKind:     out.Failure.ErrorKind,
			BacktraceHint: out.Failure.BacktraceHint,
			RetryAttempts: out.Failure.RetryAttempts,
		}
	}

	canonical, err := s.orch.Catalog().Available()
	if err != nil {
		canonical = nil
	}
	succ := out.Success
	res := GenerationOutput{
		OK:                true,
		SectionsGenerated: succ.SectionsGenerated,
		SectionsRequested: succ.SectionsRequested,
		DurationSeconds:   succ.DurationSeconds(),
	}
	if succ.Profile == nil {
		return res
	}
	if succ.Profile.Subject != nil {
		res.Subject = succ.Profile.Subject.Name()
	}
	for _, sec := range orchestrator.SortSections(succ.Profile.Sections, canonical) {
		res.Sections = append(res.Sections, SectionOutput{
			Prompt:      sec.PromptFile,
			Title:       sec.Name,
			Content:     sec.Content,
			GeneratedAt: sec.GeneratedAt.UTC().Format(time.RFC3339),
		})
	}
	return res
}

func errorOutput(err error) GenerationOutput {
	return GenerationOutput{
		ErrorMessage: err.Error(),
		ErrorKind:    orchestrator.ErrorKind(err),
	}
}
