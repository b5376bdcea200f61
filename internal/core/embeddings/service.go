package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/platform/observability"
)

// Service defaults.
const (
	DefaultCacheSize = 10000
	DefaultMaxTokens = 512

	charsPerToken = 4
	pingText      = "embedding service connectivity check"

	cacheResultHit  = "hit"
	cacheResultMiss = "miss"
)

// ServiceConfig configures the embedding service.
type ServiceConfig struct {
	CacheSize int
	MaxTokens int
}

// Service turns text into L2-normalized vectors. Results are cached by the
// SHA-256 of the input text, so identical text is embedded once per process.
// Documents longer than the token budget are chunked; chunk vectors are
// averaged and renormalized.
type Service struct {
	client    Client
	cache     *vectorCache
	maxTokens int
	logger    *zerolog.Logger
}

// NewService wraps a raw embedding client.
func NewService(client Client, cfg ServiceConfig, logger *zerolog.Logger) *Service {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	return &Service{
		client:    client,
		cache:     newVectorCache(cfg.CacheSize),
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// Ping verifies that the embedding tier can produce a vector.
func (s *Service) Ping(ctx context.Context) error {
	if r, ok := s.client.(interface{ Available() bool }); ok && !r.Available() {
		return ErrNoProvidersAvailable
	}

	if _, err := s.embed(ctx, pingText); err != nil {
		return fmt.Errorf("embedding ping: %w", err)
	}

	return nil
}

// EmbedSentence returns the normalized embedding of one sentence.
func (s *Service) EmbedSentence(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, text)
}

// EmbedDocument returns the normalized embedding of a whole document.
func (s *Service) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	chunks := ChunkText(text, s.maxTokens*charsPerToken)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty document", apperrors.ErrInvalidInput)
	}

	if len(chunks) == 1 {
		return s.embed(ctx, chunks[0])
	}

	var sum []float32

	for i, chunk := range chunks {
		vec, err := s.embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d/%d: %w", i+1, len(chunks), err)
		}

		if sum == nil {
			sum = make([]float32, len(vec))
		}

		if len(vec) != len(sum) {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, want %d",
				apperrors.ErrEmbeddingDimension, i+1, len(vec), len(sum))
		}

		for j, v := range vec {
			sum[j] += v
		}
	}

	for j := range sum {
		sum[j] /= float32(len(chunks))
	}

	return Normalize(sum)
}

// Similarity is the dot product of two normalized vectors.
func (s *Service) Similarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}

	return sum
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vec, ok := s.cache.get(key); ok {
		observability.EmbeddingCacheLookups.WithLabelValues(cacheResultHit).Inc()
		return vec, nil
	}

	observability.EmbeddingCacheLookups.WithLabelValues(cacheResultMiss).Inc()

	raw, err := s.client.GetEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	vec, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	s.cache.put(key, vec)

	return vec, nil
}

// Normalize returns a unit-length copy of vec. Empty, zero and non-finite
// vectors are rejected as malformed.
func Normalize(vec []float32) ([]float32, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", apperrors.ErrEmbeddingDimension)
	}

	var sum float64

	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: non-finite component", apperrors.ErrEmbeddingDimension)
		}

		sum += f * f
	}

	if sum == 0 {
		return nil, fmt.Errorf("%w: zero vector", apperrors.ErrEmbeddingDimension)
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))

	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}

	return out, nil
}

// ChunkText splits text on whitespace into pieces of at most maxChars
// characters. A single word longer than maxChars becomes its own chunk.
func ChunkText(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		chunks  []string
		current strings.Builder
	)

	for _, w := range words {
		if current.Len() > 0 && current.Len()+1+len(w) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}

		if current.Len() > 0 {
			current.WriteByte(' ')
		}

		current.WriteString(w)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// vectorCache is a bounded FIFO map safe for concurrent use.
type vectorCache struct {
	mu    sync.Mutex
	max   int
	items map[string][]float32
	order []string
}

func newVectorCache(size int) *vectorCache {
	return &vectorCache{max: size, items: make(map[string][]float32, size)}
}

func (c *vectorCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.items[key]

	return v, ok
}

func (c *vectorCache) put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; ok {
		return
	}

	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}

	c.items[key] = vec
	c.order = append(c.order, key)
}

func (c *vectorCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
