package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ollama API constants.
const (
	OllamaDefaultBaseURL = "http://localhost:11434"
	ModelNomicEmbedText  = "nomic-embed-text"

	// nomic-embed-text produces 768-dimensional vectors.
	ollamaDimensions = 768

	ollamaDefaultTimeout = 30 * time.Second
)

// Ollama errors.
var ErrOllamaAPIFailure = errors.New("ollama API error")

// OllamaProvider implements the embedding Provider interface for a local Ollama server.
type OllamaProvider struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

// OllamaConfig holds configuration for the Ollama provider.
type OllamaConfig struct {
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaProvider creates a new Ollama embedding provider.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OllamaDefaultBaseURL
	}

	if cfg.Model == "" {
		cfg.Model = ModelNomicEmbedText
	}

	if cfg.Dimensions == 0 {
		cfg.Dimensions = ollamaDimensions
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = ollamaDefaultTimeout
	}

	return &OllamaProvider{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() ProviderName {
	return ProviderOllama
}

// Model returns the embedding model name.
func (p *OllamaProvider) Model() string {
	return p.model
}

// Priority returns the provider priority.
func (p *OllamaProvider) Priority() int {
	return PriorityLocal
}

// Dimensions returns the native output dimensions.
func (p *OllamaProvider) Dimensions() int {
	return p.dimensions
}

// IsAvailable returns true; reachability is checked per request.
func (p *OllamaProvider) IsAvailable() bool {
	return true
}

// GetEmbedding generates an embedding using the Ollama embeddings API.
func (p *OllamaProvider) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	jsonData, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text}) //nolint:errchkjson // strings only
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return EmbeddingResult{}, fmt.Errorf("%w (%d): %s", ErrOllamaAPIFailure, resp.StatusCode, bytes.TrimSpace(body))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return EmbeddingResult{}, fmt.Errorf("decode response: %w", err)
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}

	return EmbeddingResult{
		Vector:     vec,
		Dimensions: len(vec),
		Provider:   ProviderOllama,
	}, nil
}

// Ping checks that the server is reachable without running inference.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping status %d", ErrOllamaAPIFailure, resp.StatusCode)
	}

	return nil
}
