package llm

import (
	"context"
	"encoding/base64"
	"net/http"
)

const (
	openAIBaseURL      = "https://api.openai.com"
	openAIDefaultModel = "gpt-4o"
)

// OpenAI calls the OpenAI Chat Completions API.
type OpenAI struct {
	settings Settings
	hc       *http.Client
}

// NewOpenAI returns an OpenAI client. A nil hc uses http.DefaultClient.
func NewOpenAI(s Settings, hc *http.Client) *OpenAI {
	if hc == nil {
		hc = http.DefaultClient
	}
	if s.Model == "" {
		s.Model = openAIDefaultModel
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaultMaxTokens
	}
	return &OpenAI{settings: s, hc: hc}
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIPart struct {
	Type string      `json:"type"`
	Text string      `json:"text,omitempty"`
	File *openAIFile `json:"file,omitempty"`
}

type openAIFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate implements Client.
func (o *OpenAI) Generate(ctx context.Context, prompt, systemPrompt string, gc GenerateContext) (string, error) {
	var msgs []openAIMessage
	if systemPrompt != "" {
		msgs = append(msgs, openAIMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, openAIMessage{Role: "user", Content: prompt})
	return o.send(ctx, gc.Section, msgs)
}

// GenerateFileAnalysis implements Client. Documents are sent as inline
// file parts carrying a data URL.
func (o *OpenAI) GenerateFileAnalysis(ctx context.Context, blocks []PromptBlock, subjectName string) (string, error) {
	parts := make([]openAIPart, 0, len(blocks)+1)
	for _, b := range blocks {
		switch b.Type {
		case BlockDocument:
			mt := b.MediaType
			if mt == "" {
				mt = "application/pdf"
			}
			name := b.Filename
			if name == "" {
				name = "document"
			}
			parts = append(parts, openAIPart{
				Type: "file",
				File: &openAIFile{
					Filename: name,
					FileData: "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b.Data),
				},
			})
		default:
			parts = append(parts, openAIPart{Type: "text", Text: b.Text})
		}
	}
	parts = append(parts, openAIPart{Type: "text", Text: "Subject Name: " + subjectName})
	return o.send(ctx, "file_analysis", []openAIMessage{{Role: "user", Content: parts}})
}

func (o *OpenAI) send(ctx context.Context, section string, msgs []openAIMessage) (string, error) {
	headers := map[string]string{}
	if o.settings.APIKey != "" {
		headers["Authorization"] = "Bearer " + o.settings.APIKey
	}

	req := openAIRequest{
		Model:       o.settings.Model,
		Messages:    msgs,
		MaxTokens:   o.settings.MaxTokens,
		Temperature: o.settings.Temperature,
	}

	var resp openAIResponse
	url := joinURL(o.settings.BaseURL, openAIBaseURL, "/v1/chat/completions")
	if err := postJSON(ctx, o.hc, ProviderOpenAI, section, url, headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &APIError{Provider: ProviderOpenAI, StatusCode: http.StatusOK, Section: section, Message: "response has no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}
