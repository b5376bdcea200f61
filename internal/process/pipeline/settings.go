package pipeline

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/process/scoring"
)

// Settings is the immutable detection configuration, resolved once at startup.
type Settings struct {
	NumHashes    int
	NumBands     int
	LSHThreshold float64

	Policy scoring.Policy

	EmbeddingEnabled   bool
	SentenceThreshold  float32
	DocumentThreshold  float32
	EarlyExitThreshold float32
	DocumentCheck      bool
	// VerifyAll runs the embedding tier on sentences the signature tier
	// already flagged, which yields DuplicateViaBoth verdicts.
	VerifyAll        bool
	EmbeddingTimeout time.Duration
	BatchSize        int
	MaxConcurrent    int

	// CitationPattern exempts matching sentences from duplicate checks. Nil disables it.
	CitationPattern *regexp.Regexp
}

// DefaultSettings returns the balanced defaults.
func DefaultSettings() Settings {
	return Settings{
		NumHashes:          DefaultNumHashes,
		NumBands:           DefaultNumBands,
		LSHThreshold:       DefaultLSHThreshold,
		Policy:             scoring.DefaultPolicy(),
		EmbeddingEnabled:   true,
		SentenceThreshold:  DefaultSentenceThreshold,
		DocumentThreshold:  DefaultDocumentThreshold,
		EarlyExitThreshold: DefaultEarlyExitThreshold,
		DocumentCheck:      true,
		EmbeddingTimeout:   DefaultEmbeddingTimeout,
		BatchSize:          DefaultBatchSize,
		MaxConcurrent:      DefaultMaxConcurrent,
	}
}

// Validate reports every invalid field.
func (s Settings) Validate() error {
	var errs []error

	if s.NumHashes <= 0 || s.NumBands <= 0 {
		errs = append(errs, fmt.Errorf("hash functions (%d) and bands (%d) must be positive", s.NumHashes, s.NumBands))
	} else if s.NumHashes%s.NumBands != 0 {
		errs = append(errs, fmt.Errorf("%d hash functions are not divisible into %d bands", s.NumHashes, s.NumBands))
	}

	errs = appendRange(errs, "lsh threshold", s.LSHThreshold)
	errs = appendRange(errs, "sentence threshold", float64(s.SentenceThreshold))
	errs = appendRange(errs, "document threshold", float64(s.DocumentThreshold))
	errs = appendRange(errs, "early exit threshold", float64(s.EarlyExitThreshold))

	if err := s.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}

	if s.EmbeddingEnabled {
		if s.EmbeddingTimeout <= 0 {
			errs = append(errs, fmt.Errorf("embedding timeout must be positive, got %s", s.EmbeddingTimeout))
		}

		if s.BatchSize <= 0 || s.MaxConcurrent <= 0 {
			errs = append(errs, fmt.Errorf("batch size (%d) and concurrency (%d) must be positive", s.BatchSize, s.MaxConcurrent))
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, errors.Join(errs...))
}

func appendRange(errs []error, name string, v float64) []error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return append(errs, fmt.Errorf("%s %v must be within [0, 1]", name, v))
	}

	return errs
}
