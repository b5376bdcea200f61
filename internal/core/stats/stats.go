// Package stats accumulates the tuning statistics exposed by the statistics
// query API: the duplicate-ratio histogram, agreement between the signature
// and embedding tiers, and document outcomes.
package stats

import (
	"math"
	"strconv"
	"time"
)

// RoundRatio rounds a ratio to two decimals, the histogram bucket resolution.
func RoundRatio(ratio float64) float64 {
	return math.Round(ratio*100) / 100
}

// RatioKey is the histogram key for a ratio, e.g. "0.40".
func RatioKey(ratio float64) string {
	return strconv.FormatFloat(RoundRatio(ratio), 'f', 2, 64)
}

// RatioHistogram counts processed documents per rounded duplicate ratio.
type RatioHistogram map[string]int

// Add counts one document with the given ratio.
func (h RatioHistogram) Add(ratio float64) {
	h[RatioKey(ratio)]++
}

// TierAgreement tracks how often the signature tier and the embedding tier
// agreed on sentences the embedding tier actually checked.
type TierAgreement struct {
	Verifications      int   `json:"verifications"`
	BothDuplicate      int   `json:"both_duplicate"`
	LSHOnly            int   `json:"lsh_only"`
	EmbeddingOnly      int   `json:"embedding_only"`
	NeitherDuplicate   int   `json:"neither_duplicate"`
	EmbeddingSkipped   int   `json:"embedding_skipped"`
	EmbeddingFailures  int   `json:"embedding_failures"`
	DocumentRejections int   `json:"document_rejections"`
	EmbeddingMillis    int64 `json:"embedding_millis"`
}

// AvgEmbeddingMillis is the mean embedding verification latency.
func (t TierAgreement) AvgEmbeddingMillis() float64 {
	if t.Verifications == 0 {
		return 0
	}

	return float64(t.EmbeddingMillis) / float64(t.Verifications)
}

// Outcomes counts document decisions and the stage responsible for each rejection.
type Outcomes struct {
	Processed int            `json:"processed"`
	Accepted  int            `json:"accepted"`
	Rejected  int            `json:"rejected"`
	ByReason  map[string]int `json:"by_reason"`
}

// Stats is the full statistics record persisted with the corpus snapshot.
type Stats struct {
	Ratios   RatioHistogram `json:"ratios"`
	Tiers    TierAgreement  `json:"tiers"`
	Outcomes Outcomes       `json:"outcomes"`
}

// New returns empty statistics.
func New() *Stats {
	return &Stats{
		Ratios:   RatioHistogram{},
		Outcomes: Outcomes{ByReason: map[string]int{}},
	}
}

// ensure initialises maps left nil by decoding an older snapshot.
func (s *Stats) ensure() {
	if s.Ratios == nil {
		s.Ratios = RatioHistogram{}
	}

	if s.Outcomes.ByReason == nil {
		s.Outcomes.ByReason = map[string]int{}
	}
}

// RecordVerification counts one sentence checked by the embedding tier.
func (s *Stats) RecordVerification(lshDuplicate, embeddingDuplicate bool, elapsed time.Duration) {
	s.Tiers.Verifications++
	s.Tiers.EmbeddingMillis += elapsed.Milliseconds()

	switch {
	case lshDuplicate && embeddingDuplicate:
		s.Tiers.BothDuplicate++
	case lshDuplicate:
		s.Tiers.LSHOnly++
	case embeddingDuplicate:
		s.Tiers.EmbeddingOnly++
	default:
		s.Tiers.NeitherDuplicate++
	}
}

// RecordSkipped counts a sentence the embedding tier did not check because
// the signature tier had already flagged it.
func (s *Stats) RecordSkipped() {
	s.Tiers.EmbeddingSkipped++
}

// RecordFailure counts an embedding call that failed open.
func (s *Stats) RecordFailure() {
	s.Tiers.EmbeddingFailures++
}

// RecordRatio adds a scored document to the ratio histogram.
func (s *Stats) RecordRatio(ratio float64) {
	s.ensure()
	s.Ratios.Add(ratio)
}

// RecordDocument counts a finished document. The reason is ignored for
// accepted documents.
func (s *Stats) RecordDocument(accepted bool, reason string) {
	s.ensure()
	s.Outcomes.Processed++

	if accepted {
		s.Outcomes.Accepted++
		return
	}

	s.Outcomes.Rejected++
	s.Outcomes.ByReason[reason]++
}

// RecordDocumentRejection counts a rejection by whole-document embedding similarity.
func (s *Stats) RecordDocumentRejection() {
	s.Tiers.DocumentRejections++
}

// Clone returns a deep copy safe to hand to callers.
func (s *Stats) Clone() *Stats {
	out := New()
	out.Tiers = s.Tiers
	out.Outcomes.Processed = s.Outcomes.Processed
	out.Outcomes.Accepted = s.Outcomes.Accepted
	out.Outcomes.Rejected = s.Outcomes.Rejected

	for k, v := range s.Ratios {
		out.Ratios[k] = v
	}

	for k, v := range s.Outcomes.ByReason {
		out.Outcomes.ByReason[k] = v
	}

	return out
}

// Reset clears all counters.
func (s *Stats) Reset() {
	*s = *New()
}

// Normalize repairs nil maps after decoding.
func (s *Stats) Normalize() {
	s.ensure()
}
