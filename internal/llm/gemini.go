package llm

import "fmt"

const (
	// GeminiBaseURL is Gemini's OpenAI-compatible endpoint
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	// DefaultGeminiModel is the free-tier model the monitor was tuned against
	DefaultGeminiModel = "gemini-2.5-flash-lite"
)

// NewGeminiProvider creates a provider that talks to Gemini through its
// OpenAI-compatible API
func NewGeminiProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = GeminiBaseURL
	}
	return newCompatProvider("gemini", DefaultGeminiModel, config), nil
}
