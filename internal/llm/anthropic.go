package llm

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com"
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-sonnet-4-5"
	defaultMaxTokens      = 4096
)

// Anthropic calls the Anthropic Messages API.
type Anthropic struct {
	settings Settings
	hc       *http.Client
}

// NewAnthropic returns an Anthropic client. A nil hc uses http.DefaultClient.
func NewAnthropic(s Settings, hc *http.Client) *Anthropic {
	if hc == nil {
		hc = http.DefaultClient
	}
	if s.Model == "" {
		s.Model = anthropicDefaultModel
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaultMaxTokens
	}
	return &Anthropic{settings: s, hc: hc}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Generate implements Client.
func (a *Anthropic) Generate(ctx context.Context, prompt, systemPrompt string, gc GenerateContext) (string, error) {
	req := a.request(systemPrompt, prompt)
	return a.send(ctx, gc.Section, req)
}

// GenerateFileAnalysis implements Client. Documents are sent as base64
// document blocks followed by a line naming the subject.
func (a *Anthropic) GenerateFileAnalysis(ctx context.Context, blocks []PromptBlock, subjectName string) (string, error) {
	content := make([]anthropicContent, 0, len(blocks)+1)
	for _, b := range blocks {
		switch b.Type {
		case BlockDocument:
			mt := b.MediaType
			if mt == "" {
				mt = "application/pdf"
			}
			content = append(content, anthropicContent{
				Type: "document",
				Source: &anthropicSource{
					Type:      "base64",
					MediaType: mt,
					Data:      base64.StdEncoding.EncodeToString(b.Data),
				},
			})
		default:
			content = append(content, anthropicContent{Type: "text", Text: b.Text})
		}
	}
	content = append(content, anthropicContent{Type: "text", Text: "Subject Name: " + subjectName})

	req := a.request("", "")
	req.Messages = []anthropicMessage{{Role: "user", Content: content}}
	return a.send(ctx, "file_analysis", req)
}

func (a *Anthropic) request(system, prompt string) anthropicRequest {
	return anthropicRequest{
		Model:       a.settings.Model,
		MaxTokens:   a.settings.MaxTokens,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		Temperature: a.settings.Temperature,
	}
}

func (a *Anthropic) send(ctx context.Context, section string, req anthropicRequest) (string, error) {
	headers := map[string]string{"anthropic-version": anthropicVersion}
	if a.settings.APIKey != "" {
		headers["x-api-key"] = a.settings.APIKey
	}

	var resp anthropicResponse
	url := joinURL(a.settings.BaseURL, anthropicBaseURL, "/v1/messages")
	if err := postJSON(ctx, a.hc, ProviderAnthropic, section, url, headers, req, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String(), nil
}
