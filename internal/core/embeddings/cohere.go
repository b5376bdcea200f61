package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Cohere API constants.
const (
	CohereAPIEndpoint   = "https://api.cohere.com/v2/embed"
	ModelEmbedEnglishV3 = "embed-english-v3.0"

	cohereDefaultDimensions = 1024
	cohereRateLimiterBurst  = 5
	cohereDefaultTimeout    = 30 * time.Second

	// Sentences are compared with each other rather than against queries.
	cohereInputType = "clustering"
	// Over-long input is cut at the end instead of failing the request.
	cohereTruncate = "END"

	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Native output sizes of the v3 models.
var cohereModelDimensions = map[string]int{
	"embed-english-v3.0":            1024,
	"embed-multilingual-v3.0":       1024,
	"embed-english-light-v3.0":      384,
	"embed-multilingual-light-v3.0": 384,
}

// Cohere errors.
var (
	ErrCohereEmptyResponse = errors.New("empty embedding response from Cohere")
	ErrCohereAPIFailure    = errors.New("cohere API error")
	// ErrCohereUnauthorized disables the provider until restart.
	ErrCohereUnauthorized = errors.New("cohere rejected the API key")
)

// CohereProvider embeds text through the Cohere v2 embed endpoint.
type CohereProvider struct {
	apiKey      string
	endpoint    string
	model       string
	dimensions  int
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	available   atomic.Bool
}

// CohereConfig holds configuration for the Cohere provider.
type CohereConfig struct {
	APIKey    string
	Endpoint  string // Default: CohereAPIEndpoint
	Model     string // Default: embed-english-v3.0
	RateLimit int    // Requests per second
	Timeout   time.Duration
}

type cohereEmbedRequest struct {
	Texts          []string `json:"texts"`
	Model          string   `json:"model"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
	Truncate       string   `json:"truncate"`
}

type cohereEmbedResponse struct {
	ID         string `json:"id"`
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

type cohereErrorResponse struct {
	Message string `json:"message"`
}

// NewCohereProvider creates a Cohere provider. It reports unavailable without an API key.
func NewCohereProvider(cfg CohereConfig) *CohereProvider {
	if cfg.Model == "" {
		cfg.Model = ModelEmbedEnglishV3
	}

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = cohereDefaultTimeout
	}

	if cfg.Endpoint == "" {
		cfg.Endpoint = CohereAPIEndpoint
	}

	dims, ok := cohereModelDimensions[cfg.Model]
	if !ok {
		dims = cohereDefaultDimensions
	}

	p := &CohereProvider{
		apiKey:      cfg.APIKey,
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		dimensions:  dims,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cohereRateLimiterBurst),
	}
	p.available.Store(cfg.APIKey != "")

	return p
}

func (p *CohereProvider) Name() ProviderName { return ProviderCohere }

func (p *CohereProvider) Model() string { return p.model }

func (p *CohereProvider) Priority() int { return PriorityFallback }

// Dimensions returns the native output size of the configured model.
func (p *CohereProvider) Dimensions() int { return p.dimensions }

// IsAvailable is false without a key or after the API rejected the key.
func (p *CohereProvider) IsAvailable() bool { return p.available.Load() }

// GetEmbedding embeds one text.
func (p *CohereProvider) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return EmbeddingResult{}, fmt.Errorf(errRateLimiterFmt, err)
	}

	body, err := p.post(ctx, cohereEmbedRequest{
		Texts:          []string{text},
		Model:          p.model,
		InputType:      cohereInputType,
		EmbeddingTypes: []string{"float"},
		Truncate:       cohereTruncate,
	})
	if err != nil {
		return EmbeddingResult{}, err
	}

	var resp cohereEmbedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return EmbeddingResult{}, fmt.Errorf("decode cohere response: %w", err)
	}

	if len(resp.Embeddings.Float) == 0 || len(resp.Embeddings.Float[0]) == 0 {
		return EmbeddingResult{}, ErrCohereEmptyResponse
	}

	vec := resp.Embeddings.Float[0]

	return EmbeddingResult{Vector: vec, Dimensions: len(vec), Provider: ProviderCohere}, nil
}

func (p *CohereProvider) post(ctx context.Context, payload cohereEmbedRequest) ([]byte, error) {
	data, err := json.Marshal(payload) //nolint:errchkjson // payload contains only strings
	if err != nil {
		return nil, fmt.Errorf("marshal cohere request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create cohere request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cohere request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cohere response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		p.available.Store(false)
		return nil, fmt.Errorf("%w: %w", ErrCohereAPIFailure, ErrCohereUnauthorized)
	default:
		return nil, cohereAPIError(body, resp.StatusCode)
	}
}

func cohereAPIError(body []byte, status int) error {
	var errResp cohereErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("%w (%d): %s", ErrCohereAPIFailure, status, errResp.Message)
	}

	return fmt.Errorf("%w: status %d", ErrCohereAPIFailure, status)
}
