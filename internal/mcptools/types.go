package mcptools

// --- MCP tool types for profile generation ---

// GenerateProfileInput is the input for the generate_profile MCP tool.
type GenerateProfileInput struct {
	Name       string   `json:"name" jsonschema:"name of the company or entity to profile"`
	Website    string   `json:"website,omitempty" jsonschema:"website of the subject; https is assumed when no scheme is given"`
	Language   string   `json:"language,omitempty" jsonschema:"output language as a locale code (fr, pt-BR) or a language name (French)"`
	Sections   []string `json:"sections,omitempty" jsonschema:"prompt names to generate (default: every available prompt)"`
	Sequential bool     `json:"sequential,omitempty" jsonschema:"generate one section at a time instead of in parallel"`
}

// GenerateSectionInput is the input for the generate_section MCP tool.
type GenerateSectionInput struct {
	Name         string `json:"name" jsonschema:"name of the company or entity to profile"`
	Website      string `json:"website,omitempty" jsonschema:"website of the subject"`
	Language     string `json:"language,omitempty" jsonschema:"output language as a locale code or a language name"`
	Section      string `json:"section" jsonschema:"prompt name of the section to generate"`
	RetryAttempt int    `json:"retryAttempt,omitempty" jsonschema:"attempt number to start counting retries from"`
}

// GenerationOutput is the result of the generate_profile and
// generate_section MCP tools. OK reports which half is filled in.
type GenerationOutput struct {
	OK                bool            `json:"ok"`
	Subject           string          `json:"subject,omitempty"`
	Sections          []SectionOutput `json:"sections,omitempty"`
	SectionsGenerated int             `json:"sectionsGenerated"`
	SectionsRequested int             `json:"sectionsRequested"`
	DurationSeconds   float64         `json:"durationSeconds"`

	ErrorMessage  string `json:"errorMessage,omitempty"`
	ErrorKind     string `json:"errorKind,omitempty"`
	BacktraceHint string `json:"backtraceHint,omitempty"`
	RetryAttempts int    `json:"retryAttempts,omitempty"`
}

// SectionOutput is one generated section.
type SectionOutput struct {
	Prompt      string `json:"prompt"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	GeneratedAt string `json:"generatedAt"`
}

// ListPromptsInput is the input for the list_prompts MCP tool.
type ListPromptsInput struct{}

// ListPromptsOutput is the result of the list_prompts MCP tool.
type ListPromptsOutput struct {
	Prompts []string `json:"prompts"`
}
