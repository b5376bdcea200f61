// Package scoring turns ordered per-sentence duplicate flags into a
// run-length weighted score and an accept/reject decision.
package scoring

import (
	"fmt"
	"math"

	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
)

// Defaults for the acceptance policy.
const (
	DefaultMaxRatio        = 0.3
	DefaultConsecutiveBase = 3.0
)

// Policy holds the acceptance parameters.
type Policy struct {
	MaxRatio        float64
	ConsecutiveBase float64
}

// DefaultPolicy returns the policy with default parameters.
func DefaultPolicy() Policy {
	return Policy{MaxRatio: DefaultMaxRatio, ConsecutiveBase: DefaultConsecutiveBase}
}

// Validate reports unusable parameters.
func (p Policy) Validate() error {
	if p.MaxRatio < 0 || math.IsNaN(p.MaxRatio) {
		return fmt.Errorf("%w: max ratio %v must be non-negative", apperrors.ErrInvalidConfig, p.MaxRatio)
	}

	if p.ConsecutiveBase < 1 || math.IsNaN(p.ConsecutiveBase) {
		return fmt.Errorf("%w: consecutive base %v must be at least 1", apperrors.ErrInvalidConfig, p.ConsecutiveBase)
	}

	return nil
}

// Decision is the outcome of evaluating one document.
type Decision struct {
	Score  float64
	Ratio  float64
	Accept bool
}

// Score sums base^(n-1) over every maximal run of n > 1 consecutive
// duplicates and 1 for every isolated duplicate. A document with any
// duplicate never scores below 1.
func (p Policy) Score(duplicates []bool) float64 {
	var (
		score float64
		run   int
		found bool
	)

	flush := func() {
		switch {
		case run > 1:
			score += math.Pow(p.ConsecutiveBase, float64(run-1))
		case run == 1:
			score++
		}

		run = 0
	}

	for _, dup := range duplicates {
		if dup {
			run++
			found = true

			continue
		}

		flush()
	}

	flush()

	if found && score == 0 {
		score = 1
	}

	return score
}

// Ratio divides a score by the sentence count; an empty document has ratio 0.
func Ratio(score float64, sentences int) float64 {
	if sentences <= 0 {
		return 0
	}

	return score / float64(sentences)
}

// Exceeds reports whether a ratio is above the acceptance limit.
func (p Policy) Exceeds(ratio float64) bool {
	return ratio > p.MaxRatio
}

// Monotonic reports whether flagging one more sentence can never lower the
// score. Joining two isolated duplicates turns 1+1 into base^2, which only
// holds for a base of at least √2.
func (p Policy) Monotonic() bool {
	return p.ConsecutiveBase >= math.Sqrt2
}

// Evaluate scores the flags and decides acceptance.
func (p Policy) Evaluate(duplicates []bool) Decision {
	score := p.Score(duplicates)
	ratio := Ratio(score, len(duplicates))

	return Decision{Score: score, Ratio: ratio, Accept: !p.Exceeds(ratio)}
}
