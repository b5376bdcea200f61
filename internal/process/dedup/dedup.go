// Package dedup is the embedding verification tier: it compares dense
// vectors of incoming sentences and documents against the embeddings stored
// in the corpus cache.
package dedup

import (
	"github.com/rs/zerolog"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
)

// Log key constants for deduplication.
const (
	logKeyDocumentID  = "document_id"
	logKeyDuplicateOf = "duplicate_of"
	logKeySimilarity  = "similarity"
)

// Verifier finds stored embeddings close to a query vector. Vectors are
// expected to be L2-normalized, so similarity is a dot product.
type Verifier struct {
	sentenceThreshold float32
	documentThreshold float32
	earlyExit         float32
	logger            *zerolog.Logger
}

// NewVerifier creates a verifier. An earlyExit of 0 disables early exit.
func NewVerifier(sentenceThreshold, documentThreshold, earlyExit float32, logger *zerolog.Logger) *Verifier {
	return &Verifier{
		sentenceThreshold: sentenceThreshold,
		documentThreshold: documentThreshold,
		earlyExit:         earlyExit,
		logger:            logger,
	}
}

// BestSentenceMatch scans stored sentence embeddings owned by other
// documents in insertion order and returns the most similar one when it
// reaches the sentence threshold. Scanning stops once a candidate reaches
// the early exit threshold. Stored vectors of a different dimension are skipped.
func (v *Verifier) BestSentenceMatch(c *corpus.Cache, query []float32, documentID string) (domain.EmbeddingMatch, bool) {
	if len(query) == 0 {
		return domain.EmbeddingMatch{}, false
	}

	var (
		best    string
		highest float32 = -1
	)

	for _, hash := range c.EmbeddingOrder {
		if c.SentenceDocument[hash] == documentID {
			continue
		}

		stored := c.SentenceEmbeddings[hash]
		if len(stored) != len(query) {
			continue
		}

		s := Dot(query, stored)
		if s > highest {
			highest = s
			best = hash
		}

		if v.earlyExit > 0 && s >= v.earlyExit {
			break
		}
	}

	if best == "" || highest < v.sentenceThreshold {
		return domain.EmbeddingMatch{}, false
	}

	text, doc, _ := c.Sentence(best)

	return domain.EmbeddingMatch{
		SentenceHash: best,
		DocumentID:   doc,
		Text:         text,
		Similarity:   float64(highest),
	}, true
}

// CheckDocument compares a whole-document embedding against every other
// stored document embedding and reports the closest one at or above the
// document threshold.
func (v *Verifier) CheckDocument(c *corpus.Cache, query []float32, documentID string) (domain.DocumentMatch, bool) {
	if len(query) == 0 {
		return domain.DocumentMatch{}, false
	}

	var (
		best    string
		highest float32 = -1
	)

	for _, id := range c.DocumentOrder {
		if id == documentID {
			continue
		}

		stored := c.DocumentEmbeddings[id]
		if len(stored) != len(query) {
			continue
		}

		if s := Dot(query, stored); s > highest {
			highest = s
			best = id
		}
	}

	if best == "" || highest < v.documentThreshold {
		return domain.DocumentMatch{}, false
	}

	if v.logger != nil {
		v.logger.Debug().
			Str(logKeyDocumentID, documentID).
			Str(logKeyDuplicateOf, best).
			Float32(logKeySimilarity, highest).
			Msg("Document embedding matches stored document")
	}

	return domain.DocumentMatch{DocumentID: best, Similarity: float64(highest)}, true
}

// Dot returns the dot product of two equal-length vectors, or 0 otherwise.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}

	return sum
}
