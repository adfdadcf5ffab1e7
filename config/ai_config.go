package config

// AIConfig holds the AI provider selection and credentials.
// API keys can also be set via environment variables (OPENAI_API_KEY,
// GROQ_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY).
type AIConfig struct {
	Provider  string          `json:"provider"` // "openai", "groq", "anthropic", "gemini", "ollama", "placeholder"
	OpenAI    OpenAIConfig    `json:"openai"`
	Groq      GroqConfig      `json:"groq"`
	Anthropic AnthropicConfig `json:"anthropic"`
	Gemini    GeminiConfig    `json:"gemini"`
	Ollama    OllamaConfig    `json:"ollama"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model"`
	// BaseURL points at an OpenAI-compatible gateway; empty means api.openai.com.
	BaseURL string `json:"base_url,omitempty"`
}

// GroqConfig holds Groq-specific settings.
type GroqConfig struct {
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model"`
}

// AnthropicConfig holds Anthropic-specific settings.
type AnthropicConfig struct {
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model"`
}

// GeminiConfig holds Google Gemini-specific settings.
type GeminiConfig struct {
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model"`
}

// OllamaConfig holds Ollama-specific settings.
type OllamaConfig struct {
	Host  string `json:"host"`
	Model string `json:"model"`
}

// DefaultAIConfig returns sensible defaults.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Provider: "placeholder",
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Groq: GroqConfig{
			Model: "llama-3.1-8b-instant",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Ollama: OllamaConfig{
			Host:  "http://localhost:11434",
			Model: "llama3.2",
		},
	}
}
