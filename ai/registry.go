package ai

import (
	"fmt"

	"github.com/equipoapa2-hub/autopic/config"
)

// SupportedProviders lists available provider names for display.
var SupportedProviders = []string{"openai", "groq", "anthropic", "gemini", "ollama", "placeholder"}

// NewProvider creates an AI provider from the application config.
func NewProvider(cfg config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not set. Set OPENAI_API_KEY env var or add it to %s", config.DisplayPath())
		}
		return NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL), nil

	case "groq":
		if cfg.Groq.APIKey == "" {
			return nil, fmt.Errorf("Groq API key not set. Set GROQ_API_KEY env var or add it to %s", config.DisplayPath())
		}
		return NewGroq(cfg.Groq.APIKey, cfg.Groq.Model), nil

	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key not set. Set ANTHROPIC_API_KEY env var or add it to %s", config.DisplayPath())
		}
		return NewAnthropic(cfg.Anthropic.APIKey, cfg.Anthropic.Model), nil

	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("Gemini API key not set. Set GEMINI_API_KEY env var or add it to %s", config.DisplayPath())
		}
		return NewGemini(cfg.Gemini.APIKey, cfg.Gemini.Model), nil

	case "ollama":
		return NewOllama(cfg.Ollama.Host, cfg.Ollama.Model), nil

	case "placeholder", "":
		return NewPlaceholder(), nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q. Supported: %v", cfg.Provider, SupportedProviders)
	}
}
