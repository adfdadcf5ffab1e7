package ai

import (
	"context"
	"time"
)

// Placeholder is a mock AI provider for development. It never says "SI", so
// every turn takes the conversational path.
type Placeholder struct {
	delay time.Duration
}

var _ Provider = (*Placeholder)(nil)

func NewPlaceholder() *Placeholder {
	return &Placeholder{delay: 300 * time.Millisecond}
}

func (p *Placeholder) Name() string {
	return "placeholder"
}

func (p *Placeholder) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	// Simulate network latency
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if req.MaxTokens > 0 && req.MaxTokens <= 10 {
		return "NO", nil
	}
	return "🤖 [Placeholder IA]\n\nHola, soy AutoPic IA en modo de demostración. " +
		"Configura un proveedor real (OpenAI, Groq, Anthropic, Gemini u Ollama) " +
		"para consultar usuarios, vehículos y usos de la flota.", nil
}
