package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/schoolmon/internal/cache"
	"github.com/ppiankov/schoolmon/internal/model"
)

// Waiter paces outbound calls; satisfied by worker.Limiter
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// Extractor turns a batch of mail into a candidate extraction using a
// provider, caching raw responses by prompt
type Extractor struct {
	provider Provider
	model    string
	cache    cache.Cache
	cacheTTL time.Duration
	limiter  Waiter
	logger   *slog.Logger
}

// ExtractorOption configures an Extractor
type ExtractorOption func(*Extractor)

// WithCache stores raw responses in c for ttl
func WithCache(c cache.Cache, ttl time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if c != nil {
			e.cache = c
			e.cacheTTL = ttl
		}
	}
}

// WithModel overrides the provider's configured model
func WithModel(name string) ExtractorOption {
	return func(e *Extractor) { e.model = name }
}

// WithLimiter paces provider calls under the "llm" key
func WithLimiter(w Waiter) ExtractorOption {
	return func(e *Extractor) { e.limiter = w }
}

// WithLogger sets the extractor logger
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an extractor around provider
func NewExtractor(provider Provider, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		provider: provider,
		cache:    cache.Nop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProviderName returns the underlying provider name
func (e *Extractor) ProviderName() string {
	return e.provider.Name()
}

// Extract asks the oracle about source on behalf of subject. roster is the
// full child list, used by the town prompt.
func (e *Extractor) Extract(ctx context.Context, subject model.Subject, roster []model.Subject, source string) (model.CandidateExtraction, error) {
	prompt, err := BuildPrompt(subject, roster, source)
	if err != nil {
		return model.CandidateExtraction{}, err
	}

	raw, err := e.complete(ctx, prompt)
	if err != nil {
		return model.CandidateExtraction{}, err
	}

	extraction, err := ParseExtraction(raw)
	if err != nil {
		e.logger.Warn("unparseable oracle output", "subject", subject.Name, "provider", e.provider.Name(), "error", err)
		return model.CandidateExtraction{}, err
	}

	e.logger.Debug("oracle extraction",
		"subject", subject.Name,
		"events", len(extraction.Events),
		"has_summary", extraction.Summary != nil,
	)
	return extraction, nil
}

func (e *Extractor) complete(ctx context.Context, prompt string) (string, error) {
	key := cache.Key(e.provider.Name(), e.model, prompt)
	if cached, ok := e.cache.Get(key); ok {
		e.logger.Debug("oracle cache hit", "provider", e.provider.Name())
		return string(cached), nil
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, "llm"); err != nil {
			return "", fmt.Errorf("wait for llm slot: %w", err)
		}
	}

	resp, err := e.provider.Complete(ctx, CompletionRequest{Prompt: prompt, Model: e.model})
	if err != nil {
		return "", err
	}

	// Only cache answers that parse; a malformed one deserves a retry next run
	if _, perr := ParseExtraction(resp.Text); perr == nil {
		if err := e.cache.Set(key, []byte(resp.Text), e.cacheTTL); err != nil {
			e.logger.Warn("cache write failed", "error", err)
		}
	}

	e.logger.Debug("oracle call", "provider", e.provider.Name(), "model", resp.Model, "tokens", resp.TokensUsed)
	return resp.Text, nil
}
