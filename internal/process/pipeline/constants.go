package pipeline

import "time"

// Log field constants
const (
	LogFieldDocumentID    = "document_id"
	LogFieldCorrelationID = "correlation_id"
	LogFieldSentence      = "sentence_index"
	LogFieldRatio         = "ratio"
	LogFieldScore         = "score"
	LogFieldReason        = "reason"
	LogFieldMethod        = "method"
	LogFieldMatchedDoc    = "matched_document_id"
	LogFieldSimilarity    = "similarity"
	LogFieldSentences     = "sentences"
	LogFieldUnique        = "unique"
)

// Embedding failure stages for metrics.
const (
	stageSentence = "sentence"
	stageDocument = "document"
)

// Outcome labels for metrics.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
)

// UnknownSentence replaces archived hashes missing from the sentence table.
const UnknownSentence = "[unknown sentence]"

// Defaults for detection settings.
const (
	DefaultNumHashes          = 20
	DefaultNumBands           = 10
	DefaultLSHThreshold       = 0.4
	DefaultSentenceThreshold  = 0.8
	DefaultDocumentThreshold  = 0.85
	DefaultEarlyExitThreshold = 0.98
	DefaultEmbeddingTimeout   = 30 * time.Second
	DefaultBatchSize          = 10
	DefaultMaxConcurrent      = 5
)
