// Package minhash computes fixed-length MinHash signatures over shingle sets
// and estimates Jaccard similarity from them.
package minhash

import (
	"errors"
	"fmt"
)

// MaxSafeInteger bounds every per-function hash value (2^53 - 1). Signature
// slots start at this value, so an empty shingle set yields a signature of
// MaxSafeInteger in every slot.
const MaxSafeInteger uint64 = 1<<53 - 1

// DefaultNumHashes is the default signature length.
const DefaultNumHashes = 20

// ErrInvalidTables is returned when the multiplier or salt table is unusable.
var ErrInvalidTables = errors.New("invalid minhash tables")

var defaultMultipliers = []uint64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71,
	73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131, 137, 139, 149, 151,
}

var defaultSalts = []uint64{
	0x9e3779b9, 0x85ebca6b, 0xc2b2ae3d, 0x27d4eb2f, 0x165667b1, 0x9a8b7c6d,
	0xf1e2d3c4, 0x5a4b3c2d, 0x1e2f3a4b, 0x6c5d4e3f, 0xa9b8c7d6, 0x2d1e3f4a,
	0x8b7c6d5e, 0x4f3e2d1c, 0xd6c5b4a3, 0x1a2b3c4d, 0x7e6f5a4b, 0x3c2d1e4f,
	0xb9a8c7d6, 0x5e4f3a2b,
}

// Signature is an ordered list of per-hash-function minima.
type Signature []uint64

// Clone returns an independent copy of the signature.
func (s Signature) Clone() Signature {
	out := make(Signature, len(s))
	copy(out, s)

	return out
}

// Hasher holds the parallel multiplier and salt tables. Tables shorter than
// the number of hash functions are cycled.
type Hasher struct {
	numHashes   int
	multipliers []uint64
	salts       []uint64
}

// NewHasher returns a Hasher using the built-in prime and salt tables.
func NewHasher(numHashes int) *Hasher {
	if numHashes <= 0 {
		numHashes = DefaultNumHashes
	}

	return &Hasher{
		numHashes:   numHashes,
		multipliers: defaultMultipliers,
		salts:       defaultSalts,
	}
}

// NewHasherWithTables returns a Hasher using caller-supplied tables.
func NewHasherWithTables(numHashes int, multipliers, salts []uint64) (*Hasher, error) {
	if numHashes <= 0 {
		return nil, fmt.Errorf("%w: hash count must be positive, got %d", ErrInvalidTables, numHashes)
	}

	if len(multipliers) == 0 || len(salts) == 0 {
		return nil, fmt.Errorf("%w: tables must not be empty", ErrInvalidTables)
	}

	for i, m := range multipliers {
		if m == 0 {
			return nil, fmt.Errorf("%w: multiplier %d is zero", ErrInvalidTables, i)
		}
	}

	return &Hasher{
		numHashes:   numHashes,
		multipliers: append([]uint64(nil), multipliers...),
		salts:       append([]uint64(nil), salts...),
	}, nil
}

// NumHashes returns the signature length produced by this hasher.
func (h *Hasher) NumHashes() int {
	return h.numHashes
}

// Hash is the i-th simulated hash function applied to one shingle. It is a
// pure function of (i, shingle): XOR each rune into the state, multiply by the
// function's prime and reduce modulo MaxSafeInteger.
func (h *Hasher) Hash(i int, shingle string) uint64 {
	value := h.salts[i%len(h.salts)]
	prime := h.multipliers[i%len(h.multipliers)]

	for _, r := range shingle {
		value = ((value ^ uint64(r)) * prime) % MaxSafeInteger
	}

	return value
}

// Sign computes the MinHash signature of a shingle set. The result does not
// depend on the iteration order of shingles.
func (h *Hasher) Sign(shingles []string) Signature {
	sig := make(Signature, h.numHashes)
	for i := range sig {
		sig[i] = MaxSafeInteger
	}

	for _, s := range shingles {
		for i := 0; i < h.numHashes; i++ {
			if v := h.Hash(i, s); v < sig[i] {
				sig[i] = v
			}
		}
	}

	return sig
}

// Similarity returns the fraction of positions at which a and b agree, the
// MinHash estimate of Jaccard similarity. Signatures of different or zero
// length have similarity 0.
func Similarity(a, b Signature) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	matches := 0

	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(a))
}
