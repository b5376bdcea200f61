package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAI model constants.
const (
	ModelTextEmbedding3Large = "text-embedding-3-large"
	ModelTextEmbedding3Small = "text-embedding-3-small"

	openaiRateLimiterBurst = 5
)

// Native output sizes; both v3 models accept a smaller size in the request.
var openaiModelDimensions = map[string]int{
	ModelTextEmbedding3Large: 3072,
	ModelTextEmbedding3Small: 1536,
}

// OpenAI errors.
var (
	ErrOpenAIEmptyResponse = errors.New("empty embedding response from OpenAI")
	// ErrOpenAIUnauthorized disables the provider until restart.
	ErrOpenAIUnauthorized = errors.New("openai rejected the API key")
)

// OpenAIProvider embeds text through the OpenAI API or a compatible endpoint.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	dimensions  int
	rateLimiter *rate.Limiter
	available   atomic.Bool
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // Optional, for OpenAI-compatible endpoints
	Model      string // Default: text-embedding-3-small
	Dimensions int    // Requested output size; 0 keeps DefaultDimensions
	RateLimit  int    // Requests per second
}

// NewOpenAIProvider creates an OpenAI provider. It reports unavailable
// without a real API key.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = ModelTextEmbedding3Small
	}

	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	p := &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), openaiRateLimiterBurst),
	}
	p.available.Store(cfg.APIKey != "" && cfg.APIKey != mockAPIKey)

	return p
}

func (p *OpenAIProvider) Name() ProviderName { return ProviderOpenAI }

func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Priority() int { return PriorityPrimary }

// Dimensions returns the configured output size.
func (p *OpenAIProvider) Dimensions() int { return p.dimensions }

// IsAvailable is false without a key or after the API rejected the key.
func (p *OpenAIProvider) IsAvailable() bool { return p.available.Load() }

// GetEmbedding embeds one text. For the v3 models the configured size is
// requested from the API so no local truncation is needed.
func (p *OpenAIProvider) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return EmbeddingResult{}, fmt.Errorf(errRateLimiterFmt, err)
	}

	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	}

	if native, ok := openaiModelDimensions[p.model]; ok && p.dimensions > 0 && p.dimensions < native {
		req.Dimensions = p.dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
			p.available.Store(false)
			return EmbeddingResult{}, fmt.Errorf("openai embeddings: %w: %w", ErrOpenAIUnauthorized, err)
		}

		return EmbeddingResult{}, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return EmbeddingResult{}, ErrOpenAIEmptyResponse
	}

	vec := resp.Data[0].Embedding

	return EmbeddingResult{Vector: vec, Dimensions: len(vec), Provider: ProviderOpenAI}, nil
}
