// Package corpus holds the mutable index state that every detection tier
// reads from: sentence text and ownership, MinHash signatures, LSH band
// postings and stored embeddings.
//
// A Cache is not safe for concurrent use. The document pipeline serialises
// all access to it.
package corpus

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/minhash"
)

// Entry is one unique sentence ready for insertion.
type Entry struct {
	Hash       string
	Text       string
	DocumentID string
	Signature  minhash.Signature
	BandHashes []uint64
	Embedding  []float32
}

// Cache is the aggregate owner of all corpus records.
type Cache struct {
	NumBands int `json:"num_bands"`

	// Bands[i] maps a band hash to the sentence hashes sharing it, in insertion order.
	Bands []map[uint64][]string `json:"bands"`

	Sentences        map[string]string            `json:"sentences"`
	Signatures       map[string]minhash.Signature `json:"signatures"`
	SentenceDocument map[string]string            `json:"sentence_document"`

	SentenceEmbeddings map[string][]float32 `json:"sentence_embeddings"`
	EmbeddingOrder     []string             `json:"embedding_order"`

	DocumentEmbeddings map[string][]float32 `json:"document_embeddings"`
	DocumentOrder      []string             `json:"document_order"`
}

// New returns an empty cache with numBands band tables.
func New(numBands int) *Cache {
	c := &Cache{NumBands: numBands}
	c.ensure()

	return c
}

func (c *Cache) ensure() {
	if len(c.Bands) < c.NumBands {
		bands := make([]map[uint64][]string, c.NumBands)
		copy(bands, c.Bands)
		c.Bands = bands
	}

	for i := range c.Bands {
		if c.Bands[i] == nil {
			c.Bands[i] = map[uint64][]string{}
		}
	}

	if c.Sentences == nil {
		c.Sentences = map[string]string{}
	}

	if c.Signatures == nil {
		c.Signatures = map[string]minhash.Signature{}
	}

	if c.SentenceDocument == nil {
		c.SentenceDocument = map[string]string{}
	}

	if c.SentenceEmbeddings == nil {
		c.SentenceEmbeddings = map[string][]float32{}
	}

	if c.DocumentEmbeddings == nil {
		c.DocumentEmbeddings = map[string][]float32{}
	}
}

// Len returns the number of stored sentences.
func (c *Cache) Len() int {
	return len(c.Sentences)
}

// Has reports whether a sentence hash is stored.
func (c *Cache) Has(hash string) bool {
	_, ok := c.Sentences[hash]
	return ok
}

// Sentence returns the stored text and owning document of a sentence hash.
func (c *Cache) Sentence(hash string) (text, documentID string, ok bool) {
	text, ok = c.Sentences[hash]
	if !ok {
		return "", "", false
	}

	return text, c.SentenceDocument[hash], true
}

// Postings returns the sentence hashes stored under one band hash.
func (c *Cache) Postings(band int, bandHash uint64) []string {
	if band < 0 || band >= len(c.Bands) {
		return nil
	}

	return c.Bands[band][bandHash]
}

// Add inserts one sentence into every table, or into none. Adding a hash
// that is already stored is a no-op.
func (c *Cache) Add(e Entry) error {
	if err := c.check(e); err != nil {
		return err
	}

	if c.Has(e.Hash) {
		return nil
	}

	c.insert(e)

	return nil
}

func (c *Cache) check(e Entry) error {
	if e.Hash == "" {
		return fmt.Errorf("%w: empty sentence hash", apperrors.ErrInvalidInput)
	}

	if len(e.BandHashes) != c.NumBands {
		return fmt.Errorf("%w: sentence %s has %d band hashes, want %d",
			apperrors.ErrInvalidInput, e.Hash, len(e.BandHashes), c.NumBands)
	}

	return nil
}

func (c *Cache) insert(e Entry) {
	c.Sentences[e.Hash] = e.Text
	c.Signatures[e.Hash] = e.Signature.Clone()
	c.SentenceDocument[e.Hash] = e.DocumentID

	for band, bh := range e.BandHashes {
		c.Bands[band][bh] = appendUnique(c.Bands[band][bh], e.Hash)
	}

	if len(e.Embedding) > 0 {
		c.PutSentenceEmbedding(e.Hash, e.Embedding)
	}
}

// PutSentenceEmbedding stores a sentence embedding. An existing embedding is never replaced.
func (c *Cache) PutSentenceEmbedding(hash string, vec []float32) bool {
	if _, ok := c.SentenceEmbeddings[hash]; ok || len(vec) == 0 {
		return false
	}

	c.SentenceEmbeddings[hash] = append([]float32(nil), vec...)
	c.EmbeddingOrder = append(c.EmbeddingOrder, hash)

	return true
}

// PutDocumentEmbedding stores a document embedding. An existing embedding is never replaced.
func (c *Cache) PutDocumentEmbedding(documentID string, vec []float32) bool {
	if _, ok := c.DocumentEmbeddings[documentID]; ok || len(vec) == 0 {
		return false
	}

	c.DocumentEmbeddings[documentID] = append([]float32(nil), vec...)
	c.DocumentOrder = append(c.DocumentOrder, documentID)

	return true
}

func appendUnique(list []string, hash string) []string {
	for _, h := range list {
		if h == hash {
			return list
		}
	}

	return append(list, hash)
}

// ContentHash is the stable identifier of a sentence: 0x-prefixed hex of
// the Keccak-256 digest of the raw text.
func ContentHash(text string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(text))

	return "0x" + hex.EncodeToString(h.Sum(nil))
}
