package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const anthropicBaseURL = "https://api.anthropic.com"

// Anthropic implements the Provider interface for the Anthropic Messages API.
type Anthropic struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

var _ Provider = (*Anthropic)(nil)

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(apiKey, model string) *Anthropic {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Anthropic{apiKey: apiKey, model: model, baseURL: anthropicBaseURL, client: http.DefaultClient}
}

func (a *Anthropic) Name() string {
	return fmt.Sprintf("Anthropic (%s)", a.model)
}

func (a *Anthropic) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	type apiMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		// The Messages API requires max_tokens.
		maxTokens = 1024
	}
	body := map[string]any{
		"model":       a.model,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
		"messages":    []apiMsg{{Role: "user", Content: req.User}},
	}
	if req.System != "" {
		body["system"] = req.System
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	}
	if err := postJSON(ctx, a.client, "anthropic", a.baseURL+"/v1/messages", headers, body, &result); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", NewTransientError(fmt.Errorf("anthropic returned no text content"))
	}
	return text.String(), nil
}
