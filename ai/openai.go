package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAI implements Provider for OpenAI's Chat Completions API and any
// compatible endpoint (Groq, local gateways).
type OpenAI struct {
	client *openai.Client
	label  string
	model  string
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI provider. An empty baseURL uses api.openai.com.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	return newOpenAICompatible("OpenAI", apiKey, model, baseURL)
}

// NewGroq creates a provider for Groq's OpenAI-compatible API.
func NewGroq(apiKey, model string) *OpenAI {
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	return newOpenAICompatible("Groq", apiKey, model, GroqBaseURL)
}

func newOpenAICompatible(label, apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), label: label, model: model}
}

func (o *OpenAI) Name() string {
	return fmt.Sprintf("%s (%s)", o.label, o.model)
}

func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", o.classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", NewTransientError(fmt.Errorf("%s returned no choices", strings.ToLower(o.label)))
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) classify(ctx context.Context, err error) error {
	name := strings.ToLower(o.label)
	if ctx.Err() != nil {
		return fmt.Errorf("%s request: %w", name, ctx.Err())
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	wrapped := fmt.Errorf("%s API error: %w", name, err)
	if status == 0 || status == http.StatusTooManyRequests || status >= 500 {
		return NewTransientError(wrapped)
	}
	return NewFatalError(wrapped)
}
