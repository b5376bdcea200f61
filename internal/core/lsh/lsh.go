// Package lsh implements banded locality-sensitive hashing over MinHash
// signatures: band hashing, candidate lookup and best-match selection
// against a corpus cache.
package lsh

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/minhash"
)

// Bander splits signatures into NumBands contiguous bands of Rows slots.
type Bander struct {
	numHashes int
	numBands  int
	rows      int
}

// NewBander validates that numHashes divides evenly into numBands.
func NewBander(numHashes, numBands int) (*Bander, error) {
	if numHashes <= 0 || numBands <= 0 {
		return nil, fmt.Errorf("%w: hash functions (%d) and bands (%d) must be positive",
			apperrors.ErrInvalidConfig, numHashes, numBands)
	}

	if numHashes%numBands != 0 {
		return nil, fmt.Errorf("%w: %d hash functions are not divisible into %d bands",
			apperrors.ErrInvalidConfig, numHashes, numBands)
	}

	return &Bander{numHashes: numHashes, numBands: numBands, rows: numHashes / numBands}, nil
}

// NumHashes is the signature length this bander expects.
func (b *Bander) NumHashes() int { return b.numHashes }

// NumBands is the number of bands per signature.
func (b *Bander) NumBands() int { return b.numBands }

// Rows is the number of signature slots per band.
func (b *Bander) Rows() int { return b.rows }

// BandSlice returns the slots of band i.
func (b *Bander) BandSlice(sig minhash.Signature, i int) minhash.Signature {
	return sig[i*b.rows : (i+1)*b.rows]
}

// BandHashes hashes every band of sig. The signature must have NumHashes slots.
func (b *Bander) BandHashes(sig minhash.Signature) []uint64 {
	out := make([]uint64, b.numBands)
	buf := make([]byte, 0, b.rows*17)

	for i := range out {
		buf = buf[:0]

		for j, v := range b.BandSlice(sig, i) {
			if j > 0 {
				buf = append(buf, ',')
			}

			buf = strconv.AppendUint(buf, v, 10)
		}

		out[i] = xxhash.Sum64(buf)
	}

	return out
}

// CandidateProbability is the chance that a pair with Jaccard similarity s
// shares at least one band: 1-(1-s^rows)^bands.
func CandidateProbability(s float64, rows, bands int) float64 {
	return 1 - math.Pow(1-math.Pow(s, float64(rows)), float64(bands))
}

// Index performs lookups against the band postings of a corpus cache.
type Index struct {
	bander    *Bander
	threshold float64
}

// NewIndex returns an index reporting matches with similarity >= threshold.
func NewIndex(bander *Bander, threshold float64) *Index {
	return &Index{bander: bander, threshold: threshold}
}

// Bander returns the band layout used by the index.
func (ix *Index) Bander() *Bander { return ix.bander }

// Threshold returns the minimum reported similarity.
func (ix *Index) Threshold() float64 { return ix.threshold }

// Entry prepares a corpus entry for sig, computing its band hashes.
func (ix *Index) Entry(hash, text, documentID string, sig minhash.Signature) (corpus.Entry, error) {
	if len(sig) != ix.bander.numHashes {
		return corpus.Entry{}, fmt.Errorf("%w: signature length %d, want %d",
			apperrors.ErrInvalidInput, len(sig), ix.bander.numHashes)
	}

	return corpus.Entry{
		Hash:       hash,
		Text:       text,
		DocumentID: documentID,
		Signature:  sig,
		BandHashes: ix.bander.BandHashes(sig),
	}, nil
}

// Insert adds a sentence to the cache under every band.
func (ix *Index) Insert(c *corpus.Cache, hash, text, documentID string, sig minhash.Signature) error {
	e, err := ix.Entry(hash, text, documentID, sig)
	if err != nil {
		return err
	}

	return c.Add(e)
}

// Candidates returns stored sentences sharing at least one band with sig,
// in first-seen order (band order, then posting order). The querying
// sentence is excluded only when both its hash and its document match, so
// the same text stored by another document is still a candidate.
func (ix *Index) Candidates(c *corpus.Cache, sig minhash.Signature, hash, documentID string) []string {
	if len(sig) != ix.bander.numHashes {
		return nil
	}

	seen := make(map[string]struct{})

	var out []string

	for band, bh := range ix.bander.BandHashes(sig) {
		for _, candidate := range c.Postings(band, bh) {
			if _, ok := seen[candidate]; ok {
				continue
			}

			seen[candidate] = struct{}{}

			if candidate == hash && c.SentenceDocument[candidate] == documentID {
				continue
			}

			out = append(out, candidate)
		}
	}

	return out
}

// BestMatch scores every candidate by exact signature similarity and returns
// the highest one if it reaches the threshold. Ties keep the first candidate.
func (ix *Index) BestMatch(c *corpus.Cache, sig minhash.Signature, hash, documentID string) (domain.LSHMatch, bool) {
	var (
		best    string
		highest float64
	)

	for _, candidate := range ix.Candidates(c, sig, hash, documentID) {
		s := minhash.Similarity(sig, c.Signatures[candidate])
		if s > highest {
			highest = s
			best = candidate
		}
	}

	if best == "" || highest < ix.threshold {
		return domain.LSHMatch{}, false
	}

	text, doc, _ := c.Sentence(best)

	return domain.LSHMatch{
		SentenceHash: best,
		DocumentID:   doc,
		Text:         text,
		Similarity:   highest,
	}, true
}
