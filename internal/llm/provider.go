package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when a provider answers without any content
	ErrEmptyResponse = errors.New("llm: empty response")

	// ErrMalformedExtraction is returned when the response carries no decodable JSON object
	ErrMalformedExtraction = errors.New("llm: malformed extraction")
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a single prompt and returns the raw text answer
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for one extraction call
type CompletionRequest struct {
	// System is an optional system instruction
	System string

	// Prompt is the full user prompt, source text included
	Prompt string

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// CompletionResponse contains the provider's raw answer
type CompletionResponse struct {
	// Text is the untrusted model output
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "gemini", "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns the extraction defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "gemini",
		Model:     DefaultGeminiModel,
		Timeout:   60,
		MaxTokens: DefaultMaxTokens,
	}
}

// DefaultMaxTokens caps a single extraction answer
const DefaultMaxTokens = 2048

// systemInstruction is shared by every provider that accepts one
const systemInstruction = "You extract school calendar facts from emails and answer with a single JSON object only."

func resolveModel(req CompletionRequest, config Config, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if config.Model != "" {
		return config.Model
	}
	return fallback
}

func resolveMaxTokens(req CompletionRequest, config Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if config.MaxTokens > 0 {
		return config.MaxTokens
	}
	return DefaultMaxTokens
}

func resolveSystem(req CompletionRequest) string {
	if req.System != "" {
		return req.System
	}
	return systemInstruction
}
