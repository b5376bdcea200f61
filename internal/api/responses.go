package api

import (
	"github.com/lueurxax/dupcheck/internal/core/domain"
	"github.com/lueurxax/dupcheck/internal/core/stats"
)

// SentenceResponse is the wire form of one sentence verdict.
type SentenceResponse struct {
	Index             int     `json:"index"`
	Text              string  `json:"text"`
	Hash              string  `json:"hash"`
	Method            string  `json:"method"`
	MatchedDocumentID string  `json:"matched_document_id,omitempty"`
	MatchedSentence   string  `json:"matched_sentence,omitempty"`
	Similarity        float64 `json:"similarity,omitempty"`
	Exempt            bool    `json:"exempt,omitempty"`
	EmbeddingChecked  bool    `json:"embedding_checked"`
}

// ResultResponse is the wire form of a processing result. The CLI prints it for --json.
type ResultResponse struct {
	DocumentID       string                `json:"document_id"`
	Accepted         bool                  `json:"accepted"`
	Reason           string                `json:"reason,omitempty"`
	Score            float64               `json:"score"`
	Ratio            float64               `json:"ratio"`
	DocumentMatch    *domain.DocumentMatch `json:"document_match,omitempty"`
	Sentences        []SentenceResponse    `json:"sentences"`
	UniqueHashes     []string              `json:"unique_hashes,omitempty"`
	Handle           string                `json:"handle,omitempty"`
	EmbeddingTierRan bool                  `json:"embedding_tier_ran"`
	DurationMillis   int64                 `json:"duration_ms"`
	Error            string                `json:"error,omitempty"`
}

// NewResultResponse converts a result; err, when set, is reported in Error.
func NewResultResponse(res domain.Result, err error) ResultResponse {
	out := ResultResponse{
		DocumentID:       res.DocumentID,
		Accepted:         res.Accepted,
		Reason:           string(res.Reason),
		Score:            res.Score,
		Ratio:            res.Ratio,
		DocumentMatch:    res.DocumentMatch,
		Sentences:        make([]SentenceResponse, 0, len(res.Sentences)),
		UniqueHashes:     res.UniqueHashes,
		Handle:           res.Handle,
		EmbeddingTierRan: res.EmbeddingTierRan,
		DurationMillis:   res.Duration.Milliseconds(),
	}

	if err != nil {
		out.Error = err.Error()
	}

	for _, s := range res.Sentences {
		out.Sentences = append(out.Sentences, NewSentenceResponse(s))
	}

	return out
}

func NewSentenceResponse(s domain.SentenceResult) SentenceResponse {
	out := SentenceResponse{
		Index:            s.Index,
		Text:             s.Text,
		Hash:             s.Hash,
		Method:           domain.MethodNone,
		Exempt:           s.Exempt,
		EmbeddingChecked: s.EmbeddingChecked,
	}

	if s.Verdict != nil {
		out.Method = s.Verdict.Method()
	}

	// Report the strongest evidence for the verdict.
	switch v := s.Verdict.(type) {
	case domain.DuplicateViaLSH:
		out.MatchedDocumentID, out.MatchedSentence, out.Similarity = v.Match.DocumentID, v.Match.Text, v.Match.Similarity
	case domain.DuplicateViaEmbedding:
		out.MatchedDocumentID, out.MatchedSentence, out.Similarity = v.Match.DocumentID, v.Match.Text, v.Match.Similarity
	case domain.DuplicateViaBoth:
		out.MatchedDocumentID, out.MatchedSentence, out.Similarity = v.LSH.DocumentID, v.LSH.Text, v.LSH.Similarity
	}

	return out
}

// StatsResponse is the wire form of the detection statistics.
type StatsResponse struct {
	Ratios             stats.RatioHistogram `json:"ratios"`
	Tiers              stats.TierAgreement  `json:"tiers"`
	AvgEmbeddingMillis float64              `json:"avg_embedding_ms"`
	Outcomes           stats.Outcomes       `json:"outcomes"`
}

func NewStatsResponse(s *stats.Stats) StatsResponse {
	return StatsResponse{
		Ratios:             s.Ratios,
		Tiers:              s.Tiers,
		AvgEmbeddingMillis: s.Tiers.AvgEmbeddingMillis(),
		Outcomes:           s.Outcomes,
	}
}
