package pipeline

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	"github.com/lueurxax/dupcheck/internal/core/minhash"
	"github.com/lueurxax/dupcheck/internal/core/shingle"
	"github.com/lueurxax/dupcheck/internal/platform/observability"
)

// document holds the per-sentence working state of one ProcessDocument call.
type document struct {
	id         string
	text       string
	lines      []string
	signatures []minhash.Signature
	lshMatches []*domain.LSHMatch
	embMatches []*domain.EmbeddingMatch
	embeddings [][]float32
	results    []domain.SentenceResult
}

func (doc *document) flags() []bool {
	out := make([]bool, len(doc.results))
	for i, r := range doc.results {
		out[i] = r.Verdict.IsDuplicate()
	}

	return out
}

// SplitSentences returns the non-blank lines of text, trimmed.
func SplitSentences(text string) []string {
	var lines []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lines = append(lines, line)
	}

	return lines
}

func (d *Detector) prepare(documentID, text string) *document {
	lines := SplitSentences(text)
	doc := &document{
		id:         documentID,
		text:       strings.Join(lines, "\n"),
		lines:      lines,
		signatures: make([]minhash.Signature, len(lines)),
		lshMatches: make([]*domain.LSHMatch, len(lines)),
		embMatches: make([]*domain.EmbeddingMatch, len(lines)),
		embeddings: make([][]float32, len(lines)),
		results:    make([]domain.SentenceResult, len(lines)),
	}

	for i, line := range lines {
		doc.results[i] = domain.SentenceResult{
			Index:   i,
			Text:    line,
			Hash:    corpus.ContentHash(line),
			Verdict: domain.NotDuplicate{},
			Exempt:  d.settings.CitationPattern != nil && d.settings.CitationPattern.MatchString(line),
		}
	}

	return doc
}

// checkDocument embeds the whole document and compares it with stored
// document vectors. A nil vector means the tier failed for this document.
func (d *Detector) checkDocument(ctx context.Context, doc *document) ([]float32, *domain.DocumentMatch) {
	vec, err := d.documentEmbedding(ctx, doc)
	if err != nil {
		d.stats.RecordFailure()
		observability.EmbeddingTierFailures.WithLabelValues(stageDocument).Inc()
		d.logger.Warn().Err(err).Str(LogFieldDocumentID, doc.id).Msg("document embedding failed, continuing with signature tier")

		return nil, nil
	}

	match, ok := d.verifier.CheckDocument(d.cache, vec, doc.id)
	if !ok {
		return vec, nil
	}

	d.logger.Info().
		Str(LogFieldDocumentID, doc.id).
		Str(LogFieldMatchedDoc, match.DocumentID).
		Float64(LogFieldSimilarity, match.Similarity).
		Msg("Document rejected by document-level similarity")

	return vec, &match
}

// documentEmbedding returns the corpus vector of a resubmitted document or
// asks the embedder for a new one.
func (d *Detector) documentEmbedding(ctx context.Context, doc *document) ([]float32, error) {
	if vec, ok := d.cache.DocumentEmbeddings[doc.id]; ok {
		return vec, nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.settings.EmbeddingTimeout)
	defer cancel()

	return d.embedder.EmbedDocument(ctx, doc.text)
}

// runLSH computes signatures and the signature-tier verdict of every sentence.
func (d *Detector) runLSH(doc *document) {
	for i, line := range doc.lines {
		sig := d.hasher.Sign(shingle.Extract(line))
		doc.signatures[i] = sig

		if doc.results[i].Exempt {
			continue
		}

		match, ok := d.index.BestMatch(d.cache, sig, doc.results[i].Hash, doc.id)
		if !ok {
			continue
		}

		doc.lshMatches[i] = &match
		doc.results[i].Verdict = domain.Combine(&match, nil)

		d.logger.Debug().
			Str(LogFieldDocumentID, doc.id).
			Int(LogFieldSentence, i).
			Str(LogFieldMatchedDoc, match.DocumentID).
			Float64(LogFieldSimilarity, match.Similarity).
			Msg("sentence matched by signature")
	}
}

type embedOutcome struct {
	vec     []float32
	err     error
	elapsed time.Duration
}

// runEmbedding embeds the sentences that still need a semantic check, in
// batches of BatchSize with at most MaxConcurrent calls in flight, and folds
// the results into the sentence verdicts. It reports whether any embedding
// call succeeded.
func (d *Detector) runEmbedding(ctx context.Context, doc *document) bool {
	var pending []int

	for i, r := range doc.results {
		switch {
		case r.Exempt:
		case doc.lshMatches[i] != nil && !d.settings.VerifyAll:
			d.stats.RecordSkipped()
		default:
			pending = append(pending, i)
		}
	}

	outcomes := make([]embedOutcome, len(doc.lines))

	// Vectors already in the corpus are never recomputed.
	var missing []int

	for _, idx := range pending {
		if vec, ok := d.cache.SentenceEmbeddings[doc.results[idx].Hash]; ok {
			outcomes[idx] = embedOutcome{vec: vec}
			continue
		}

		missing = append(missing, idx)
	}

	for startIdx := 0; startIdx < len(missing); startIdx += d.settings.BatchSize {
		end := min(startIdx+d.settings.BatchSize, len(missing))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.settings.MaxConcurrent)

		for _, idx := range missing[startIdx:end] {
			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(gctx, d.settings.EmbeddingTimeout)
				defer cancel()

				began := time.Now()
				vec, err := d.embedder.EmbedSentence(callCtx, doc.lines[idx])
				outcomes[idx] = embedOutcome{vec: vec, err: err, elapsed: time.Since(began)}

				// Failures stay per sentence; the group is never cancelled.
				return nil
			})
		}

		_ = g.Wait()
	}

	ran := false

	for _, idx := range pending {
		out := outcomes[idx]
		if out.err != nil {
			d.stats.RecordFailure()
			observability.EmbeddingTierFailures.WithLabelValues(stageSentence).Inc()
			d.logger.Warn().Err(out.err).
				Str(LogFieldDocumentID, doc.id).
				Int(LogFieldSentence, idx).
				Msg("sentence embedding failed, keeping signature verdict")

			continue
		}

		ran = true
		doc.embeddings[idx] = out.vec
		doc.results[idx].EmbeddingChecked = true

		if match, ok := d.verifier.BestSentenceMatch(d.cache, out.vec, doc.id); ok {
			doc.embMatches[idx] = &match
		}

		d.stats.RecordVerification(doc.lshMatches[idx] != nil, doc.embMatches[idx] != nil, out.elapsed)
		doc.results[idx].Verdict = domain.Combine(doc.lshMatches[idx], doc.embMatches[idx])
	}

	return ran
}
