// Package llm defines the LLM client contract used by section generation,
// the tagged upstream error it reports, and a provider factory with
// Anthropic and OpenAI adapters.
package llm

import "context"

// Client generates text for a single prompt.
type Client interface {
	// Generate returns the model's text for prompt under systemPrompt.
	Generate(ctx context.Context, prompt, systemPrompt string, gc GenerateContext) (string, error)

	// GenerateFileAnalysis sends multi-part content (instructions plus
	// attached documents) and returns the model's text.
	GenerateFileAnalysis(ctx context.Context, blocks []PromptBlock, subjectName string) (string, error)
}

// GenerateContext identifies what a Generate call is for. Adapters use it
// to annotate errors.
type GenerateContext struct {
	Subject string
	Section string
}

// BlockType distinguishes plain text from attached documents.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockDocument BlockType = "document"
)

// PromptBlock is one part of a multi-part prompt.
type PromptBlock struct {
	Type      BlockType
	Text      string // BlockText
	Filename  string // BlockDocument
	MediaType string // BlockDocument, e.g. "application/pdf"
	Data      []byte // BlockDocument raw bytes
}

// TextBlock returns a text PromptBlock.
func TextBlock(text string) PromptBlock {
	return PromptBlock{Type: BlockText, Text: text}
}
