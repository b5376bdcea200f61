// Package storetest holds the behaviour every ports.Store backend must share.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/ports"
	"github.com/lueurxax/dupcheck/internal/core/stats"
)

// Run exercises a backend created by open. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) ports.Store) {
	t.Helper()

	t.Run("snapshot", func(t *testing.T) {
		testSnapshot(t, open(t))
	})

	t.Run("archive", func(t *testing.T) {
		testArchive(t, open(t))
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, open(t).Ping(context.Background()))
	})
}

func testSnapshot(t *testing.T, s ports.Store) {
	ctx := context.Background()

	_, err := s.LoadSnapshot(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	c := corpus.New(2)
	require.NoError(t, c.Add(corpus.Entry{
		Hash:       "0xaa",
		Text:       "first sentence",
		DocumentID: "d1",
		Signature:  []uint64{1, 2, 3, 4},
		BandHashes: []uint64{11, 12},
		Embedding:  []float32{0.6, 0.8},
	}))

	st := stats.New()
	st.RecordRatio(0.25)

	require.NoError(t, s.SaveSnapshot(ctx, corpus.Snapshot{Cache: c, Stats: st}))

	got, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)

	text, doc, ok := got.Cache.Sentence("0xaa")
	assert.True(t, ok)
	assert.Equal(t, "first sentence", text)
	assert.Equal(t, "d1", doc)
	assert.Equal(t, []string{"0xaa"}, got.Cache.Postings(1, 12))
	assert.Equal(t, 1, got.Stats.Ratios["0.25"])

	// A second save replaces the first.
	c2 := corpus.New(2)
	require.NoError(t, s.SaveSnapshot(ctx, corpus.Snapshot{Cache: c2, Stats: stats.New()}))

	got, err = s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.Cache.Len())
}

func testArchive(t *testing.T, s ports.Store) {
	ctx := context.Background()

	n, err := s.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	hashes := []string{"0xa", "0xb"}

	handle, err := s.StoreDocument(ctx, domain.ArchivedDocument{
		DocumentID: "d1",
		Hashes:     hashes,
		Embedding:  []float32{1, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, ports.ContentHandle(hashes), handle)

	again, err := s.StoreDocument(ctx, domain.ArchivedDocument{DocumentID: "d1", Hashes: hashes})
	require.NoError(t, err)
	assert.Equal(t, handle, again)

	_, err = s.StoreDocument(ctx, domain.ArchivedDocument{DocumentID: "empty"})
	require.NoError(t, err)

	n, err = s.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", doc.DocumentID)
	assert.Equal(t, handle, doc.Handle)
	assert.Equal(t, hashes, doc.Hashes)
	assert.False(t, doc.CreatedAt.IsZero())

	empty, err := s.GetDocument(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, empty.Hashes)
	assert.Equal(t, ports.ContentHandle(nil), empty.Handle)

	_, err = s.GetDocument(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
