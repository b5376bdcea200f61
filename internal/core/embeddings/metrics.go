package embeddings

import (
	"time"

	"github.com/lueurxax/dupcheck/internal/platform/observability"
)

// Metric status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	usdToMillicents  = 100000.0
	tokensPerMillion = 1000000.0
)

// Approximate USD price per 1M input tokens. Local and mock models are free.
var modelPricePer1M = map[string]float64{
	ModelTextEmbedding3Large:        0.13,
	ModelTextEmbedding3Small:        0.02,
	"embed-english-v3.0":            0.10,
	"embed-multilingual-v3.0":       0.10,
	"embed-english-light-v3.0":      0.10,
	"embed-multilingual-light-v3.0": 0.10,
}

// RecordEmbeddingRequest counts one provider call.
func RecordEmbeddingRequest(provider, model string, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	observability.EmbeddingRequests.WithLabelValues(provider, model, status).Inc()
}

// RecordEmbeddingTokens records estimated token usage and its cost.
func RecordEmbeddingTokens(provider, model string, tokens int) {
	if tokens <= 0 {
		return
	}

	observability.EmbeddingTokens.WithLabelValues(provider, model).Add(float64(tokens))

	if cost := estimateEmbeddingCost(model, tokens); cost > 0 {
		observability.EmbeddingEstimatedCost.WithLabelValues(provider, model).Add(cost * usdToMillicents)
	}
}

func RecordEmbeddingLatency(provider, model string, duration time.Duration) {
	observability.EmbeddingLatency.WithLabelValues(provider, model).Observe(duration.Seconds())
}

func RecordEmbeddingFallback(fromProvider, toProvider string) {
	observability.EmbeddingFallbacks.WithLabelValues(fromProvider, toProvider).Inc()
}

// SetEmbeddingProviderAvailable publishes provider availability as 0 or 1.
func SetEmbeddingProviderAvailable(provider string, available bool) {
	value := 0.0
	if available {
		value = 1.0
	}

	observability.EmbeddingProviderAvailable.WithLabelValues(provider).Set(value)
}

// estimateEmbeddingCost returns the estimated USD cost; unknown models cost nothing.
func estimateEmbeddingCost(model string, tokens int) float64 {
	return float64(tokens) / tokensPerMillion * modelPricePer1M[model]
}

// estimateTokens applies the same chars-per-token estimate Service uses for chunking.
func estimateTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}
