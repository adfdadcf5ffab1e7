package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Ollama implements the Provider interface for local Ollama instances.
type Ollama struct {
	host   string
	model  string
	client *http.Client
}

var _ Provider = (*Ollama)(nil)

// NewOllama creates an Ollama provider.
func NewOllama(host, model string) *Ollama {
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &Ollama{host: strings.TrimRight(host, "/"), model: model, client: http.DefaultClient}
}

func (o *Ollama) Name() string {
	return fmt.Sprintf("Ollama (%s)", o.model)
}

func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	type chatMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	messages := make([]chatMsg, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMsg{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMsg{Role: "user", Content: req.User})

	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	body := map[string]any{
		"model":    o.model,
		"messages": messages,
		"stream":   false,
		"options":  options,
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := postJSON(ctx, o.client, "ollama", o.host+"/api/chat", nil, body, &result); err != nil {
		if IsTransient(err) {
			return "", fmt.Errorf("is Ollama running at %s? %w", o.host, err)
		}
		return "", err
	}

	if result.Message.Content == "" {
		return "", NewTransientError(fmt.Errorf("ollama returned empty response"))
	}
	return result.Message.Content, nil
}
