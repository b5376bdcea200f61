package minhash

import (
	"errors"
	"math"
	"testing"

	"github.com/lueurxax/dupcheck/internal/core/shingle"
)

const testErrSimilarity = "Similarity() = %v, want %v"

func TestSign_Deterministic(t *testing.T) {
	h := NewHasher(DefaultNumHashes)
	shingles := shingle.Extract("The committee approved the budget after a long debate.")

	first := h.Sign(shingles)
	second := h.Sign(shingles)

	if len(first) != DefaultNumHashes {
		t.Fatalf("signature length = %d, want %d", len(first), DefaultNumHashes)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestSign_OrderIndependent(t *testing.T) {
	h := NewHasher(DefaultNumHashes)
	forward := []string{"alpha", "beta", "gamma", "delta"}
	reversed := []string{"delta", "gamma", "beta", "alpha"}

	if Similarity(h.Sign(forward), h.Sign(reversed)) != 1 {
		t.Fatal("signature must not depend on shingle order")
	}
}

func TestSign_EmptySet(t *testing.T) {
	sig := NewHasher(4).Sign(nil)

	for i, v := range sig {
		if v != MaxSafeInteger {
			t.Errorf("slot %d = %d, want MaxSafeInteger", i, v)
		}
	}
}

func TestHash_Bounded(t *testing.T) {
	h := NewHasher(40)

	for i := 0; i < 40; i++ {
		if v := h.Hash(i, "a long shingle with ünïcödé"); v >= MaxSafeInteger {
			t.Fatalf("hash %d out of range: %d", i, v)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b Signature
		want float64
	}{
		{name: "identical", a: Signature{1, 5, 3, 9}, b: Signature{1, 5, 3, 9}, want: 1},
		{name: "three of four", a: Signature{1, 5, 3, 9}, b: Signature{1, 5, 3, 10}, want: 0.75},
		{name: "disjoint", a: Signature{1, 2}, b: Signature{3, 4}, want: 0},
		{name: "length mismatch", a: Signature{1, 2}, b: Signature{1}, want: 0},
		{name: "empty", a: Signature{}, b: Signature{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf(testErrSimilarity, got, tt.want)
			}
		})
	}
}

func TestSimilarity_SelfIsOne(t *testing.T) {
	h := NewHasher(DefaultNumHashes)
	sig := h.Sign(shingle.Extract("Any sentence at all."))

	if got := Similarity(sig, sig); got != 1 {
		t.Errorf(testErrSimilarity, got, 1.0)
	}
}

func TestSimilarity_NearDuplicatesScoreHigher(t *testing.T) {
	h := NewHasher(120)
	base := h.Sign(shingle.Extract("The central bank raised interest rates by half a percentage point on Tuesday."))
	near := h.Sign(shingle.Extract("The central bank raised interest rates by half a percentage point on Wednesday."))
	far := h.Sign(shingle.Extract("Volcanic ash grounded flights across northern Europe for a week."))

	if Similarity(base, near) <= Similarity(base, far) {
		t.Errorf("near duplicate should be more similar: near=%v far=%v", Similarity(base, near), Similarity(base, far))
	}
}

func TestNewHasherWithTables(t *testing.T) {
	if _, err := NewHasherWithTables(0, []uint64{3}, []uint64{1}); !errors.Is(err, ErrInvalidTables) {
		t.Errorf("zero hashes: err = %v, want ErrInvalidTables", err)
	}

	if _, err := NewHasherWithTables(4, nil, []uint64{1}); !errors.Is(err, ErrInvalidTables) {
		t.Errorf("empty multipliers: err = %v, want ErrInvalidTables", err)
	}

	if _, err := NewHasherWithTables(4, []uint64{0}, []uint64{1}); !errors.Is(err, ErrInvalidTables) {
		t.Errorf("zero multiplier: err = %v, want ErrInvalidTables", err)
	}

	h, err := NewHasherWithTables(6, []uint64{3, 5}, []uint64{7})
	if err != nil {
		t.Fatalf("NewHasherWithTables() error = %v", err)
	}

	if h.Hash(0, "x") != h.Hash(2, "x") {
		t.Error("tables shorter than hash count must cycle")
	}
}
