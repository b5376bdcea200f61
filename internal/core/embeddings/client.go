// Package embeddings provides text embedding generation with multi-provider support.
//
// The package supports multiple embedding providers with automatic fallback:
//   - OpenAI text-embedding-3-large / text-embedding-3-small
//   - Cohere embed-v3
//   - Ollama (local models such as nomic-embed-text)
//
// Features include:
//   - Circuit breaker pattern for provider resilience
//   - Dimension normalization across providers
//   - Rate limiting per provider
//   - A content-addressed cache and document chunking in Service
package embeddings

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client defines the interface for raw embedding operations.
type Client interface {
	// GetEmbedding generates an embedding for the given text.
	// Returns a vector with consistent dimensions (1536 by default).
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Ensure Registry implements Client interface.
var _ Client = (*Registry)(nil)

// Config holds configuration for creating an embedding client.
type Config struct {
	// OpenAI settings
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAIDimensions int
	OpenAIRateLimit  int

	// Cohere settings
	CohereAPIKey    string
	CohereModel     string
	CohereRateLimit int

	// Ollama settings; the provider is registered only when BaseURL is set.
	OllamaBaseURL string
	OllamaModel   string

	// Provider order (comma-separated: "openai,cohere,ollama,mock")
	ProviderOrder string

	// Circuit breaker settings
	CircuitBreakerConfig CircuitBreakerConfig

	// Target dimensions for output vectors
	TargetDimensions int

	// Per-request timeout for HTTP providers
	Timeout time.Duration
}

// NewClient creates a registry with every configured provider. A registry
// with no providers is returned as is; callers detect it through Available.
func NewClient(cfg Config, logger *zerolog.Logger) *Registry {
	if cfg.TargetDimensions == 0 {
		cfg.TargetDimensions = DefaultDimensions
	}

	registry := NewRegistry(cfg.TargetDimensions, logger)

	for _, provider := range parseProviderOrder(cfg.ProviderOrder) {
		switch ProviderName(provider) {
		case ProviderOpenAI:
			registerOpenAI(registry, cfg)
		case ProviderCohere:
			registerCohere(registry, cfg)
		case ProviderOllama:
			registerOllama(registry, cfg)
		case ProviderMock:
			registry.Register(NewMockProviderWithDimensions(cfg.TargetDimensions), cfg.CircuitBreakerConfig)
		default:
			logger.Warn().Str(logKeyProvider, provider).Msg("unknown embedding provider ignored")
		}
	}

	if registry.ProviderCount() == 0 {
		logger.Warn().Msg("no embedding providers configured, embedding tier disabled")
	}

	return registry
}

// parseProviderOrder parses the provider order string into a list.
func parseProviderOrder(order string) []string {
	if order == "" {
		return []string{string(ProviderOpenAI), string(ProviderCohere), string(ProviderOllama)}
	}

	var providers []string

	for _, p := range strings.Split(order, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			providers = append(providers, strings.ToLower(p))
		}
	}

	return providers
}

func registerOpenAI(registry *Registry, cfg Config) {
	if cfg.OpenAIAPIKey != "" && cfg.OpenAIAPIKey != mockAPIKey {
		openaiProvider := NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			Dimensions: cfg.OpenAIDimensions,
			RateLimit:  cfg.OpenAIRateLimit,
		})
		registry.Register(openaiProvider, cfg.CircuitBreakerConfig)
	}
}

func registerCohere(registry *Registry, cfg Config) {
	if cfg.CohereAPIKey != "" {
		cohereProvider := NewCohereProvider(CohereConfig{
			APIKey:    cfg.CohereAPIKey,
			Model:     cfg.CohereModel,
			RateLimit: cfg.CohereRateLimit,
			Timeout:   cfg.Timeout,
		})
		registry.Register(cohereProvider, cfg.CircuitBreakerConfig)
	}
}

func registerOllama(registry *Registry, cfg Config) {
	if cfg.OllamaBaseURL != "" {
		registry.Register(NewOllamaProvider(OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaModel,
			Timeout: cfg.Timeout,
		}), cfg.CircuitBreakerConfig)
	}
}
