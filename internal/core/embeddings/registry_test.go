package embeddings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
)

var errProviderDown = errors.New("provider down")

type fakeProvider struct {
	mu        sync.Mutex
	name      ProviderName
	priority  int
	vector    []float32
	err       error
	available bool
	calls     int
}

func (p *fakeProvider) Name() ProviderName { return p.name }
func (p *fakeProvider) Model() string      { return "fake-model" }
func (p *fakeProvider) Priority() int      { return p.priority }
func (p *fakeProvider) Dimensions() int    { return len(p.vector) }
func (p *fakeProvider) IsAvailable() bool  { return p.available }

func (p *fakeProvider) GetEmbedding(_ context.Context, _ string) (EmbeddingResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++

	if p.err != nil {
		return EmbeddingResult{}, p.err
	}

	return EmbeddingResult{Vector: p.vector, Dimensions: len(p.vector), Provider: p.name}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls
}

func TestRegistry_PriorityAndFallback(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(4, &logger)

	primary := &fakeProvider{name: ProviderOpenAI, priority: PriorityPrimary, err: errProviderDown, available: true}
	fallback := &fakeProvider{name: ProviderCohere, priority: PriorityFallback, vector: []float32{1, 2}, available: true}

	r.Register(fallback, DefaultCircuitBreakerConfig())
	r.Register(primary, DefaultCircuitBreakerConfig())

	assert.Equal(t, []ProviderName{ProviderOpenAI, ProviderCohere}, r.ProviderNames())

	vec, err := r.GetEmbedding(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 0, 0}, vec)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
}

func TestRegistry_AllFail(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(2, &logger)
	r.Register(&fakeProvider{name: ProviderOpenAI, err: errProviderDown, available: true}, DefaultCircuitBreakerConfig())

	_, err := r.GetEmbedding(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.ErrorIs(t, err, apperrors.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, errProviderDown)
}

func TestRegistry_EmptyVectorIsFailure(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(2, &logger)
	r.Register(&fakeProvider{name: ProviderOpenAI, available: true}, DefaultCircuitBreakerConfig())

	_, err := r.GetEmbedding(context.Background(), "text")
	assert.ErrorIs(t, err, apperrors.ErrEmptyResponse)
}

func TestRegistry_NoProviders(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(2, &logger)

	assert.False(t, r.Available())

	_, err := r.GetEmbedding(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNoProvidersAvailable)

	r.Register(&fakeProvider{name: ProviderMock, available: false}, DefaultCircuitBreakerConfig())
	assert.False(t, r.Available())
}

func TestRegistry_CircuitBreakerOpens(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(2, &logger)
	p := &fakeProvider{name: ProviderOpenAI, err: errProviderDown, available: true}
	r.Register(p, CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour})

	for i := 0; i < 2; i++ {
		_, err := r.GetEmbedding(context.Background(), "text")
		require.Error(t, err)
	}

	assert.False(t, r.Available())

	_, err := r.GetEmbedding(context.Background(), "text")
	assert.ErrorIs(t, err, apperrors.ErrCircuitBreakerOpen)
	assert.Equal(t, 2, p.callCount())
}

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Hour}, nil)
	assert.True(t, cb.CanAttempt())

	cb.RecordFailure(ProviderOpenAI)
	assert.True(t, cb.IsOpen())
	assert.False(t, cb.CanAttempt())

	cb.Reset()
	assert.False(t, cb.IsOpen())

	cb.RecordSuccess()
	assert.True(t, cb.CanAttempt())
}

func TestCircuitBreaker_HalfOpenSingleTrial(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Minute}, nil)
	cb.now = func() time.Time { return now }

	cb.RecordFailure(ProviderCohere)
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure(ProviderCohere)
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.CanAttempt())

	now = now.Add(2 * time.Minute)
	assert.False(t, cb.IsOpen())
	assert.True(t, cb.CanAttempt())
	assert.False(t, cb.CanAttempt(), "only one trial while half-open")
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// A failed trial reopens without waiting for the threshold.
	cb.RecordFailure(ProviderCohere)
	assert.True(t, cb.IsOpen())

	now = now.Add(2 * time.Minute)
	require.True(t, cb.CanAttempt())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.CanAttempt())
	assert.True(t, cb.CanAttempt())
}

func TestNewClient_ProviderSelection(t *testing.T) {
	logger := zerolog.Nop()

	r := NewClient(Config{ProviderOrder: "mock", TargetDimensions: 8}, &logger)
	assert.Equal(t, []ProviderName{ProviderMock}, r.ProviderNames())

	r = NewClient(Config{}, &logger)
	assert.Equal(t, 0, r.ProviderCount())

	r = NewClient(Config{ProviderOrder: "openai, ollama", OpenAIAPIKey: "sk-test", OllamaBaseURL: "http://localhost:1"}, &logger)
	assert.Equal(t, []ProviderName{ProviderOpenAI, ProviderOllama}, r.ProviderNames())

	// The mock key never registers a real OpenAI provider.
	r = NewClient(Config{ProviderOrder: "openai", OpenAIAPIKey: mockAPIKey}, &logger)
	assert.Equal(t, 0, r.ProviderCount())
}

func TestFitDimensions(t *testing.T) {
	assert.Equal(t, []float32{1, 2}, FitDimensions([]float32{1, 2, 3}, 2))
	assert.Equal(t, []float32{1, 0, 0}, FitDimensions([]float32{1}, 3))
	assert.Equal(t, []float32{1}, FitDimensions([]float32{1}, 1))
	assert.Equal(t, []float32{1, 2}, FitDimensions([]float32{1, 2}, 0))

	src := []float32{1, 2, 3}
	out := FitDimensions(src, 2)
	out[0] = 9
	assert.Equal(t, float32(1), src[0], "truncation must not alias the provider slice")
}

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProviderWithDimensions(16)

	a, err := p.GetEmbedding(context.Background(), "same text")
	require.NoError(t, err)

	b, err := p.GetEmbedding(context.Background(), "same text")
	require.NoError(t, err)

	c, err := p.GetEmbedding(context.Background(), "other text")
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector)
	assert.NotEqual(t, a.Vector, c.Vector)
	assert.Len(t, a.Vector, 16)
}

func TestMockProvider_NearDuplicatesAreClose(t *testing.T) {
	p := NewMockProviderWithDimensions(256)
	embed := func(text string) []float32 {
		res, err := p.GetEmbedding(context.Background(), text)
		require.NoError(t, err)

		return res.Vector
	}

	base := embed("The quick brown fox jumps over the lazy dog near the river")
	near := embed("The quick brown fox leaps over the lazy dog near the river")
	far := embed("Stock markets closed lower on Friday after weak earnings")

	var nearSim, farSim float32
	for i := range base {
		nearSim += base[i] * near[i]
		farSim += base[i] * far[i]
	}

	assert.Greater(t, nearSim, float32(0.6))
	assert.Greater(t, nearSim, farSim)
}

func TestEstimateEmbeddingCost(t *testing.T) {
	assert.InDelta(t, 0.02, estimateEmbeddingCost(ModelTextEmbedding3Small, 1_000_000), 1e-9)
	assert.InDelta(t, 0.0, estimateEmbeddingCost(ModelNomicEmbedText, 1_000_000), 1e-9)
	assert.Equal(t, 3, estimateTokens("123456789"))
}
