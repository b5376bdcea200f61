package embeddings

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/lueurxax/dupcheck/internal/core/shingle"
)

// MockProvider is an offline provider for tests and local runs. It hashes the
// sentence shingles into a fixed number of signed buckets, so identical text
// gets identical vectors and texts sharing most shingles land close together.
type MockProvider struct {
	dimensions int
}

// NewMockProvider creates a mock provider with the default dimensions.
func NewMockProvider() *MockProvider {
	return NewMockProviderWithDimensions(DefaultDimensions)
}

// NewMockProviderWithDimensions creates a mock provider with custom dimensions.
func NewMockProviderWithDimensions(dims int) *MockProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}

	return &MockProvider{dimensions: dims}
}

func (p *MockProvider) Name() ProviderName { return ProviderMock }

func (p *MockProvider) Model() string { return string(ProviderMock) }

func (p *MockProvider) Priority() int { return PriorityMock }

func (p *MockProvider) Dimensions() int { return p.dimensions }

func (p *MockProvider) IsAvailable() bool { return true }

// GetEmbedding returns the unit-length feature-hashed vector of text.
func (p *MockProvider) GetEmbedding(_ context.Context, text string) (EmbeddingResult, error) {
	features := shingle.Extract(text)
	if len(features) == 0 {
		features = []string{text}
	}

	vec := make([]float32, p.dimensions)

	for _, f := range features {
		h := xxhash.Sum64String(f)
		idx := h % uint64(p.dimensions)

		// The top bit picks the sign so unrelated features cancel out on average.
		if h>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	if isZero(vec) {
		vec[xxhash.Sum64String(text)%uint64(p.dimensions)] = 1
	}

	return EmbeddingResult{
		Vector:     unitLength(vec),
		Dimensions: p.dimensions,
		Provider:   ProviderMock,
	}, nil
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}

	return true
}

func unitLength(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	if sum == 0 {
		return vec
	}

	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}

	return vec
}
