package corpus

import (
	"fmt"

	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
)

// Batch collects the unique sentences of one accepted document so they can
// be committed together.
type Batch struct {
	DocumentID        string
	Entries           []Entry
	DocumentEmbedding []float32

	seen map[string]struct{}
}

// NewBatch starts a batch for a document.
func NewBatch(documentID string) *Batch {
	return &Batch{DocumentID: documentID, seen: map[string]struct{}{}}
}

// Add queues an entry. Repeated hashes within the batch are dropped; the
// return value reports whether the entry was queued.
func (b *Batch) Add(e Entry) bool {
	if b.seen == nil {
		b.seen = map[string]struct{}{}
	}

	if _, ok := b.seen[e.Hash]; ok {
		return false
	}

	b.seen[e.Hash] = struct{}{}
	b.Entries = append(b.Entries, e)

	return true
}

// Hashes returns the queued sentence hashes in order.
func (b *Batch) Hashes() []string {
	out := make([]string, 0, len(b.Entries))
	for _, e := range b.Entries {
		out = append(out, e.Hash)
	}

	return out
}

type postingRef struct {
	band int
	key  uint64
}

// Apply commits a batch. Every entry is checked before anything is written,
// so a malformed batch leaves the cache untouched. The returned function
// reverts the commit and must be called before any other mutation.
func (c *Cache) Apply(b *Batch) (undo func(), err error) {
	for _, e := range b.Entries {
		if err := c.check(e); err != nil {
			return nil, fmt.Errorf("applying batch for document %s: %w", b.DocumentID, err)
		}
	}

	var (
		added      []string
		postings   []postingRef
		embeddings int
		documents  int
	)

	for _, e := range b.Entries {
		if c.Has(e.Hash) {
			continue
		}

		for band, bh := range e.BandHashes {
			before := len(c.Bands[band][bh])
			c.Bands[band][bh] = appendUnique(c.Bands[band][bh], e.Hash)

			if len(c.Bands[band][bh]) > before {
				postings = append(postings, postingRef{band: band, key: bh})
			}
		}

		c.Sentences[e.Hash] = e.Text
		c.Signatures[e.Hash] = e.Signature.Clone()
		c.SentenceDocument[e.Hash] = e.DocumentID

		if c.PutSentenceEmbedding(e.Hash, e.Embedding) {
			embeddings++
		}

		added = append(added, e.Hash)
	}

	if c.PutDocumentEmbedding(b.DocumentID, b.DocumentEmbedding) {
		documents++
	}

	undo = func() {
		for i := len(postings) - 1; i >= 0; i-- {
			p := postings[i]
			list := c.Bands[p.band][p.key]

			if len(list) <= 1 {
				delete(c.Bands[p.band], p.key)
				continue
			}

			c.Bands[p.band][p.key] = list[:len(list)-1]
		}

		for _, h := range added {
			delete(c.Sentences, h)
			delete(c.Signatures, h)
			delete(c.SentenceDocument, h)
		}

		for i := 0; i < embeddings; i++ {
			last := c.EmbeddingOrder[len(c.EmbeddingOrder)-1]
			delete(c.SentenceEmbeddings, last)
			c.EmbeddingOrder = c.EmbeddingOrder[:len(c.EmbeddingOrder)-1]
		}

		if documents > 0 {
			delete(c.DocumentEmbeddings, b.DocumentID)
			c.DocumentOrder = c.DocumentOrder[:len(c.DocumentOrder)-1]
		}
	}

	return undo, nil
}

// Validate checks the cross-table invariants of a loaded cache: every stored
// sentence has text, owner and a signature of numHashes slots, and appears in
// exactly one posting per band.
func (c *Cache) Validate(numHashes int) error {
	c.ensure()

	if len(c.Bands) != c.NumBands {
		return fmt.Errorf("%w: %d band tables, want %d", apperrors.ErrCorruptSnapshot, len(c.Bands), c.NumBands)
	}

	if len(c.Signatures) != len(c.Sentences) || len(c.SentenceDocument) != len(c.Sentences) {
		return fmt.Errorf("%w: %d sentences, %d signatures, %d owners", apperrors.ErrCorruptSnapshot,
			len(c.Sentences), len(c.Signatures), len(c.SentenceDocument))
	}

	for hash := range c.Sentences {
		sig, ok := c.Signatures[hash]
		if !ok {
			return fmt.Errorf("%w: sentence %s has no signature", apperrors.ErrCorruptSnapshot, hash)
		}

		if len(sig) != numHashes {
			return fmt.Errorf("%w: sentence %s signature length %d, want %d",
				apperrors.ErrCorruptSnapshot, hash, len(sig), numHashes)
		}

		if _, ok := c.SentenceDocument[hash]; !ok {
			return fmt.Errorf("%w: sentence %s has no owner", apperrors.ErrCorruptSnapshot, hash)
		}
	}

	for band, table := range c.Bands {
		count := 0

		for _, list := range table {
			for _, h := range list {
				if !c.Has(h) {
					return fmt.Errorf("%w: band %d references unknown sentence %s", apperrors.ErrCorruptSnapshot, band, h)
				}
			}

			count += len(list)
		}

		if count != len(c.Sentences) {
			return fmt.Errorf("%w: band %d holds %d postings, want %d", apperrors.ErrCorruptSnapshot, band, count, len(c.Sentences))
		}
	}

	if len(c.EmbeddingOrder) != len(c.SentenceEmbeddings) || len(c.DocumentOrder) != len(c.DocumentEmbeddings) {
		return fmt.Errorf("%w: embedding order does not match embedding tables", apperrors.ErrCorruptSnapshot)
	}

	return nil
}
