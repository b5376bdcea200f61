package domain

import "time"

// Verdict methods reported in results and metrics.
const (
	MethodNone      = "none"
	MethodLSH       = "lsh"
	MethodEmbedding = "embedding"
	MethodBoth      = "both"
)

// LSHMatch is the best signature match found among LSH candidates.
type LSHMatch struct {
	SentenceHash string  `json:"sentence_hash"`
	DocumentID   string  `json:"document_id"`
	Text         string  `json:"text"`
	Similarity   float64 `json:"similarity"`
}

// EmbeddingMatch is the best stored sentence embedding above the sentence threshold.
type EmbeddingMatch struct {
	SentenceHash string  `json:"sentence_hash"`
	DocumentID   string  `json:"document_id"`
	Text         string  `json:"text"`
	Similarity   float64 `json:"similarity"`
}

// DocumentMatch is a stored document whose embedding is close to the query document.
type DocumentMatch struct {
	DocumentID string  `json:"document_id"`
	Similarity float64 `json:"similarity"`
}

// Verdict is the per-sentence duplicate outcome. The concrete type records
// which tiers flagged the sentence and carries only the fields they produce.
type Verdict interface {
	IsDuplicate() bool
	Method() string
	verdict()
}

// NotDuplicate means no tier flagged the sentence.
type NotDuplicate struct{}

// DuplicateViaLSH means only the signature tier flagged the sentence.
type DuplicateViaLSH struct {
	Match LSHMatch `json:"lsh"`
}

// DuplicateViaEmbedding means only the embedding tier flagged the sentence.
type DuplicateViaEmbedding struct {
	Match EmbeddingMatch `json:"embedding"`
}

// DuplicateViaBoth means both tiers flagged the sentence.
type DuplicateViaBoth struct {
	LSH       LSHMatch       `json:"lsh"`
	Embedding EmbeddingMatch `json:"embedding"`
}

func (NotDuplicate) IsDuplicate() bool          { return false }
func (DuplicateViaLSH) IsDuplicate() bool       { return true }
func (DuplicateViaEmbedding) IsDuplicate() bool { return true }
func (DuplicateViaBoth) IsDuplicate() bool      { return true }

func (NotDuplicate) Method() string          { return MethodNone }
func (DuplicateViaLSH) Method() string       { return MethodLSH }
func (DuplicateViaEmbedding) Method() string { return MethodEmbedding }
func (DuplicateViaBoth) Method() string      { return MethodBoth }

func (NotDuplicate) verdict()          {}
func (DuplicateViaLSH) verdict()       {}
func (DuplicateViaEmbedding) verdict() {}
func (DuplicateViaBoth) verdict()      {}

// Combine builds the verdict variant for the tiers that produced a match.
func Combine(lsh *LSHMatch, emb *EmbeddingMatch) Verdict {
	switch {
	case lsh != nil && emb != nil:
		return DuplicateViaBoth{LSH: *lsh, Embedding: *emb}
	case lsh != nil:
		return DuplicateViaLSH{Match: *lsh}
	case emb != nil:
		return DuplicateViaEmbedding{Match: *emb}
	default:
		return NotDuplicate{}
	}
}

// RejectionReason identifies the stage that rejected a document.
type RejectionReason string

const (
	ReasonNone         RejectionReason = ""
	ReasonDocument     RejectionReason = "document"
	ReasonLSH          RejectionReason = "lsh"
	ReasonFinal        RejectionReason = "final"
	ReasonStorageError RejectionReason = "storage_error"
)

// SentenceResult is the outcome for one input line.
type SentenceResult struct {
	Index   int
	Text    string
	Hash    string
	Verdict Verdict
	// Exempt is set when the sentence matched the citation exemption rule.
	Exempt bool
	// EmbeddingChecked is false when the embedding tier did not run or failed.
	EmbeddingChecked bool
}

// Result describes how a document was processed.
type Result struct {
	DocumentID       string
	Accepted         bool
	Reason           RejectionReason
	Score            float64
	Ratio            float64
	Sentences        []SentenceResult
	DocumentMatch    *DocumentMatch
	UniqueHashes     []string
	Handle           string
	EmbeddingTierRan bool
	Duration         time.Duration
}

// DuplicateCount returns the number of sentences flagged by any tier.
func (r Result) DuplicateCount() int {
	n := 0

	for _, s := range r.Sentences {
		if s.Verdict != nil && s.Verdict.IsDuplicate() {
			n++
		}
	}

	return n
}

// ArchivedDocument is what the archive collaborator persists for an accepted document.
type ArchivedDocument struct {
	DocumentID string
	Handle     string
	Hashes     []string
	Embedding  []float32
	CreatedAt  time.Time
}

// StoredDocument is an archived document re-expanded through the sentence table.
type StoredDocument struct {
	DocumentID string   `json:"document_id"`
	Handle     string   `json:"handle"`
	Hashes     []string `json:"hashes"`
	Sentences  []string `json:"sentences"`
}
