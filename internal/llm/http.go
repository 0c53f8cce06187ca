package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error response is kept in APIError.
const maxErrorBody = 2048

// postJSON sends body to url and decodes a 2xx response into out. Any
// transport failure or non-2xx status becomes an *APIError.
func postJSON(ctx context.Context, hc *http.Client, provider Provider, section, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create %s request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &APIError{Provider: provider, Section: section, Message: "connection error: " + err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Section: section, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Section: section, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Section: section, Message: "malformed response: " + err.Error()}
	}
	return nil
}

func joinURL(base, fallback, path string) string {
	if base == "" {
		base = fallback
	}
	return strings.TrimSuffix(base, "/") + path
}
