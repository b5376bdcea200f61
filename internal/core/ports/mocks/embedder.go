package mocks

import (
	"context"
	"sync"
)

// Embedder returns fixed vectors per text. Texts without a registered
// vector get Fallback.
type Embedder struct {
	mu        sync.Mutex
	Sentences map[string][]float32
	Documents map[string][]float32
	Fallback  []float32

	// EmbedSentenceFn allows overriding EmbedSentence behavior.
	EmbedSentenceFn func(ctx context.Context, text string) ([]float32, error)

	// EmbedDocumentFn allows overriding EmbedDocument behavior.
	EmbedDocumentFn func(ctx context.Context, text string) ([]float32, error)

	sentenceCalls int
	documentCalls int
}

// NewEmbedder creates an embedder whose unknown texts map to fallback.
func NewEmbedder(fallback []float32) *Embedder {
	return &Embedder{
		Sentences: map[string][]float32{},
		Documents: map[string][]float32{},
		Fallback:  fallback,
	}
}

// EmbedSentence returns the registered sentence vector.
func (e *Embedder) EmbedSentence(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.sentenceCalls++
	fn := e.EmbedSentenceFn
	vec, ok := e.Sentences[text]
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	if !ok {
		return e.Fallback, nil
	}

	return vec, nil
}

// EmbedDocument returns the registered document vector.
func (e *Embedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.documentCalls++
	fn := e.EmbedDocumentFn
	vec, ok := e.Documents[text]
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	if !ok {
		return e.Fallback, nil
	}

	return vec, nil
}

// SentenceCalls returns how many sentence embeddings were requested.
func (e *Embedder) SentenceCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.sentenceCalls
}

// DocumentCalls returns how many document embeddings were requested.
func (e *Embedder) DocumentCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.documentCalls
}
