package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/ports"
	"github.com/lueurxax/dupcheck/internal/core/ports/mocks"
)

var uniqueSentences = []string{
	"The river crossing was closed after the spring flood damaged the bridge supports.",
	"Engineers expect repairs to continue until the middle of autumn.",
	"Local farmers now drive forty kilometres around the valley to reach the market.",
	"A temporary ferry service started operating on Monday morning.",
	"Ticket prices for the ferry are subsidised by the regional council.",
	"School buses follow a new timetable while the bridge remains shut.",
	"Several shops near the old crossing reported falling revenue.",
	"The council promised compensation for businesses hit by the closure.",
	"Volunteers organised a weekly convoy delivering groceries to elderly residents.",
	"Traffic police increased patrols on the detour through the northern hills.",
}

func lines(s ...string) string {
	return strings.Join(s, "\n")
}

func lshOnlySettings() Settings {
	s := DefaultSettings()
	s.EmbeddingEnabled = false
	s.DocumentCheck = false

	return s
}

func newDetector(t *testing.T, settings Settings, embedder *mocks.Embedder) (*Detector, *mocks.Store) {
	t.Helper()

	store := mocks.NewStore()
	opts := Options{Snapshots: store, Archive: store}

	if embedder != nil {
		opts.Embedder = embedder
		opts.EmbeddingAvailable = true
	}

	d, err := New(settings, opts)
	require.NoError(t, err)

	return d, store
}

func TestNew_InvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.NumBands = 3

	_, err := New(s, Options{Archive: mocks.NewStore()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
}

func TestNew_EmbeddingTierNeedsCapability(t *testing.T) {
	store := mocks.NewStore()

	d, err := New(DefaultSettings(), Options{Archive: store, Embedder: mocks.NewEmbedder([]float32{1})})
	require.NoError(t, err)
	assert.False(t, d.EmbeddingTierAvailable())

	d, err = New(DefaultSettings(), Options{Archive: store, Embedder: mocks.NewEmbedder([]float32{1}), EmbeddingAvailable: true})
	require.NoError(t, err)
	assert.True(t, d.EmbeddingTierAvailable())
}

func TestProcessDocument_AllUniqueAccepted(t *testing.T) {
	d, store := newDetector(t, lshOnlySettings(), nil)

	res, err := d.ProcessDocument(context.Background(), "doc-1", lines(uniqueSentences...))
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, domain.ReasonNone, res.Reason)
	assert.Zero(t, res.Score)
	assert.Zero(t, res.Ratio)
	assert.Len(t, res.UniqueHashes, len(uniqueSentences))
	assert.Equal(t, ports.ContentHandle(res.UniqueHashes), res.Handle)
	assert.Equal(t, len(uniqueSentences), d.CorpusSize())
	assert.Equal(t, 1, store.DocumentWrites())
	assert.Equal(t, 1, store.SnapshotSaves())

	for i, s := range res.Sentences {
		assert.Equal(t, uniqueSentences[i], s.Text)
		assert.Equal(t, corpus.ContentHash(uniqueSentences[i]), s.Hash)
		assert.IsType(t, domain.NotDuplicate{}, s.Verdict)
	}

	st := d.Stats()
	assert.Equal(t, 1, st.Outcomes.Accepted)
	assert.Equal(t, 1, st.Ratios["0.00"])
}

func TestProcessDocument_BlankLinesDiscarded(t *testing.T) {
	d, _ := newDetector(t, lshOnlySettings(), nil)

	res, err := d.ProcessDocument(context.Background(), "doc-1", "\n  first line here  \n\n\t\nsecond line there\n")
	require.NoError(t, err)
	require.Len(t, res.Sentences, 2)
	assert.Equal(t, "first line here", res.Sentences[0].Text)
	assert.Equal(t, "second line there", res.Sentences[1].Text)
}

func TestProcessDocument_EmptyDocumentAccepted(t *testing.T) {
	for _, text := range []string{"", "\n   \n\t"} {
		d, store := newDetector(t, DefaultSettings(), mocks.NewEmbedder([]float32{1, 0}))

		res, err := d.ProcessDocument(context.Background(), "empty", text)
		require.NoError(t, err)

		assert.True(t, res.Accepted)
		assert.Zero(t, res.Ratio)
		assert.Empty(t, res.UniqueHashes)
		assert.Equal(t, ports.ContentHandle(nil), res.Handle)
		assert.Equal(t, 1, store.DocumentWrites())
	}
}

func TestProcessDocument_InvalidID(t *testing.T) {
	d, store := newDetector(t, lshOnlySettings(), nil)

	_, err := d.ProcessDocument(context.Background(), "", "text")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidID))
	assert.Zero(t, store.SnapshotSaves())
}

func TestProcessDocument_LSHRejection(t *testing.T) {
	embedder := mocks.NewEmbedder([]float32{1, 0})
	settings := DefaultSettings()
	settings.DocumentCheck = false

	d, store := newDetector(t, settings, embedder)
	ctx := context.Background()

	_, err := d.ProcessDocument(ctx, "doc-1", lines(uniqueSentences[:3]...))
	require.NoError(t, err)

	callsBefore := embedder.SentenceCalls()

	res, err := d.ProcessDocument(ctx, "doc-2", lines(uniqueSentences[:3]...))
	require.NoError(t, err)

	assert.False(t, res.Accepted)
	assert.Equal(t, domain.ReasonLSH, res.Reason)
	assert.InDelta(t, 9.0, res.Score, 1e-9)
	assert.InDelta(t, 3.0, res.Ratio, 1e-9)
	assert.Equal(t, 3, res.DuplicateCount())
	assert.Equal(t, callsBefore, embedder.SentenceCalls(), "embedding tier must not run after an early rejection")

	for _, s := range res.Sentences {
		v, ok := s.Verdict.(domain.DuplicateViaLSH)
		require.True(t, ok)
		assert.Equal(t, "doc-1", v.Match.DocumentID)
		assert.InDelta(t, 1.0, v.Match.Similarity, 1e-9)
	}

	assert.Equal(t, 3, d.CorpusSize())
	assert.Equal(t, 1, store.DocumentWrites())
	assert.Equal(t, 2, store.SnapshotSaves(), "statistics are saved after a rejection")
}

func TestProcessDocument_IdempotentRejection(t *testing.T) {
	d, _ := newDetector(t, lshOnlySettings(), nil)
	ctx := context.Background()

	_, err := d.ProcessDocument(ctx, "doc-1", lines(uniqueSentences[:5]...))
	require.NoError(t, err)

	text := lines(uniqueSentences[0], uniqueSentences[1], "An entirely new closing remark about the weather today.")

	first, err := d.ProcessDocument(ctx, "doc-2", text)
	require.NoError(t, err)
	require.False(t, first.Accepted)

	size := d.CorpusSize()

	second, err := d.ProcessDocument(ctx, "doc-2", text)
	require.NoError(t, err)

	assert.False(t, second.Accepted)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Ratio, second.Ratio)
	assert.Equal(t, size, d.CorpusSize())
}

func TestProcessDocument_SelfExclusionOnResubmit(t *testing.T) {
	d, _ := newDetector(t, lshOnlySettings(), nil)
	ctx := context.Background()

	_, err := d.ProcessDocument(ctx, "doc-1", lines(uniqueSentences[:4]...))
	require.NoError(t, err)

	res, err := d.ProcessDocument(ctx, "doc-1", lines(uniqueSentences[:4]...))
	require.NoError(t, err)
	assert.True(t, res.Accepted, "a document never matches its own sentences")
	assert.Equal(t, 4, d.CorpusSize())
}

func TestProcessDocument_DocumentLevelRejection(t *testing.T) {
	embedder := mocks.NewEmbedder([]float32{0, 1})
	first := lines(uniqueSentences[:3]...)
	second := lines(uniqueSentences[5:8]...)
	embedder.Documents[first] = []float32{1, 0}
	embedder.Documents[second] = []float32{0.9, float32(math.Sqrt(1 - 0.81))}

	d, store := newDetector(t, DefaultSettings(), embedder)
	ctx := context.Background()

	_, err := d.ProcessDocument(ctx, "doc-1", first)
	require.NoError(t, err)

	sentenceCalls := embedder.SentenceCalls()
	saves := store.SnapshotSaves()

	res, err := d.ProcessDocument(ctx, "doc-2", second)
	require.NoError(t, err)

	assert.False(t, res.Accepted)
	assert.Equal(t, domain.ReasonDocument, res.Reason)
	require.NotNil(t, res.DocumentMatch)
	assert.Equal(t, "doc-1", res.DocumentMatch.DocumentID)
	assert.InDelta(t, 0.9, res.DocumentMatch.Similarity, 1e-6)
	assert.Equal(t, sentenceCalls, embedder.SentenceCalls(), "no sentence work after a document match")
	assert.Equal(t, saves+1, store.SnapshotSaves())

	st := d.Stats()
	assert.Equal(t, 1, st.Tiers.DocumentRejections)
	assert.Equal(t, 1, st.Outcomes.ByReason[string(domain.ReasonDocument)])
	assert.Equal(t, 1, st.Ratios["0.00"], "document rejections do not enter the ratio histogram")
}

func TestProcessDocument_SentenceEmbeddingFailureFallsBack(t *testing.T) {
	embedder := mocks.NewEmbedder(nil)
	failing := uniqueSentences[1]

	vectors := map[string][]float32{
		uniqueSentences[0]: {1, 0, 0},
		uniqueSentences[2]: {0, 1, 0},
		uniqueSentences[3]: {0, 0, 1},
	}

	embedder.EmbedSentenceFn = func(_ context.Context, text string) ([]float32, error) {
		if text == failing {
			return nil, apperrors.ErrEmbeddingUnavailable
		}

		return vectors[text], nil
	}

	settings := DefaultSettings()
	settings.DocumentCheck = false

	d, _ := newDetector(t, settings, embedder)

	res, err := d.ProcessDocument(context.Background(), "doc-1", lines(uniqueSentences[:4]...))
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.True(t, res.EmbeddingTierRan)
	assert.False(t, res.Sentences[1].EmbeddingChecked)
	assert.IsType(t, domain.NotDuplicate{}, res.Sentences[1].Verdict)

	for _, i := range []int{0, 2, 3} {
		assert.True(t, res.Sentences[i].EmbeddingChecked)
	}

	st := d.Stats()
	assert.Equal(t, 1, st.Tiers.EmbeddingFailures)
	assert.Equal(t, 3, st.Tiers.Verifications)

	assert.NotContains(t, d.cache.SentenceEmbeddings, corpus.ContentHash(failing))
	assert.Contains(t, d.cache.SentenceEmbeddings, corpus.ContentHash(uniqueSentences[0]))
	assert.Equal(t, 4, d.CorpusSize())
}

func TestProcessDocument_EmbeddingDuplicate(t *testing.T) {
	embedder := mocks.NewEmbedder(nil)
	original := "The committee approved the annual budget after a long debate."
	paraphrase := "After lengthy discussion the panel signed off on this year's spending plan."
	embedder.Sentences[original] = []float32{0.6, 0.8}
	embedder.Sentences[paraphrase] = []float32{0.6, 0.8}

	settings := DefaultSettings()
	settings.DocumentCheck = false

	d, _ := newDetector(t, settings, embedder)
	ctx := context.Background()

	_, err := d.ProcessDocument(ctx, "doc-1", original)
	require.NoError(t, err)

	res, err := d.ProcessDocument(ctx, "doc-2", paraphrase)
	require.NoError(t, err)

	assert.False(t, res.Accepted)
	assert.Equal(t, domain.ReasonFinal, res.Reason)

	v, ok := res.Sentences[0].Verdict.(domain.DuplicateViaEmbedding)
	require.True(t, ok)
	assert.Equal(t, "doc-1", v.Match.DocumentID)
	assert.Equal(t, original, v.Match.Text)

	st := d.Stats()
	assert.Equal(t, 1, st.Tiers.EmbeddingOnly)
	assert.Equal(t, 1, st.Outcomes.ByReason[string(domain.ReasonFinal)])
}

func TestProcessDocument_VerifyAllYieldsBoth(t *testing.T) {
	sentence := "Heavy snowfall closed the mountain pass for the third day in a row."
	embedder := mocks.NewEmbedder([]float32{1, 0})

	settings := DefaultSettings()
	settings.DocumentCheck = false
	settings.VerifyAll = true
	settings.Policy.MaxRatio = 1

	d, _ := newDetector(t, settings, embedder)
	ctx := context.Background()

	_, err := d.ProcessDocument(ctx, "doc-1", sentence)
	require.NoError(t, err)

	res, err := d.ProcessDocument(ctx, "doc-2", sentence)
	require.NoError(t, err)

	both, ok := res.Sentences[0].Verdict.(domain.DuplicateViaBoth)
	require.True(t, ok)
	assert.Equal(t, "doc-1", both.LSH.DocumentID)
	assert.Equal(t, "doc-1", both.Embedding.DocumentID)
	assert.Equal(t, 1, d.Stats().Tiers.BothDuplicate)
}

func TestProcessDocument_LSHPositivesSkipEmbedding(t *testing.T) {
	embedder := mocks.NewEmbedder([]float32{1, 0})

	settings := DefaultSettings()
	settings.DocumentCheck = false
	settings.Policy.MaxRatio = 1

	d, _ := newDetector(t, settings, embedder)
	ctx := context.Background()

	_, err := d.ProcessDocument(ctx, "doc-1", uniqueSentences[0])
	require.NoError(t, err)

	before := embedder.SentenceCalls()

	res, err := d.ProcessDocument(ctx, "doc-2", lines(uniqueSentences[0], uniqueSentences[9], uniqueSentences[8], uniqueSentences[7]))
	require.NoError(t, err)

	assert.IsType(t, domain.DuplicateViaLSH{}, res.Sentences[0].Verdict)
	assert.False(t, res.Sentences[0].EmbeddingChecked)
	assert.Equal(t, before+3, embedder.SentenceCalls())
	assert.Equal(t, 1, d.Stats().Tiers.EmbeddingSkipped)
}

func basis(dims, i int) []float32 {
	vec := make([]float32, dims)
	vec[i] = 1

	return vec
}

func TestProcessDocument_NoEarlyRejectWhenScoreCanDrop(t *testing.T) {
	original := "The committee approved the annual budget after a long debate."
	paraphrase := "After lengthy discussion the panel signed off on this year's spending plan."

	embedder := mocks.NewEmbedder(nil)
	embedder.Sentences[uniqueSentences[0]] = basis(5, 0)
	embedder.Sentences[uniqueSentences[1]] = basis(5, 1)
	embedder.Sentences[original] = basis(5, 2)
	embedder.Sentences[paraphrase] = basis(5, 2)
	embedder.Sentences[uniqueSentences[5]] = basis(5, 3)
	embedder.Sentences[uniqueSentences[6]] = basis(5, 4)

	settings := DefaultSettings()
	settings.DocumentCheck = false
	settings.Policy.ConsecutiveBase = 1

	d, _ := newDetector(t, settings, embedder)
	ctx := context.Background()

	res, err := d.ProcessDocument(ctx, "doc-1", lines(uniqueSentences[0], original, uniqueSentences[1]))
	require.NoError(t, err)
	require.True(t, res.Accepted)

	// Signature flags TFTFF score 2 (ratio 0.4); the paraphrase joins them
	// into one run TTTFF that scores 1 (ratio 0.2).
	res, err = d.ProcessDocument(ctx, "doc-2", lines(
		uniqueSentences[0], paraphrase, uniqueSentences[1], uniqueSentences[5], uniqueSentences[6]))
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, domain.ReasonNone, res.Reason)
	assert.InDelta(t, 0.2, res.Ratio, 1e-9)
	assert.IsType(t, domain.DuplicateViaEmbedding{}, res.Sentences[1].Verdict)
}

func TestProcessDocument_EarlyRejectWithoutEmbeddingTier(t *testing.T) {
	settings := lshOnlySettings()
	settings.Policy.ConsecutiveBase = 1

	d, _ := newDetector(t, settings, nil)
	ctx := context.Background()

	_, err := d.ProcessDocument(ctx, "doc-1", lines(uniqueSentences[0], uniqueSentences[1]))
	require.NoError(t, err)

	res, err := d.ProcessDocument(ctx, "doc-2", lines(
		uniqueSentences[0], uniqueSentences[2], uniqueSentences[1], uniqueSentences[3], uniqueSentences[4]))
	require.NoError(t, err)

	assert.False(t, res.Accepted)
	assert.Equal(t, domain.ReasonLSH, res.Reason)
	assert.InDelta(t, 0.4, res.Ratio, 1e-9)
}

func TestProcessDocument_ReusesCorpusEmbeddingsAfterLoad(t *testing.T) {
	store := mocks.NewStore()
	ctx := context.Background()
	sentence := uniqueSentences[3]

	settings := DefaultSettings()
	settings.VerifyAll = true
	settings.Policy.MaxRatio = 1

	first := mocks.NewEmbedder([]float32{1, 0})
	d, err := Load(ctx, settings, Options{Snapshots: store, Archive: store, Embedder: first, EmbeddingAvailable: true})
	require.NoError(t, err)

	res, err := d.ProcessDocument(ctx, "doc-1", sentence)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	// A fresh embedder would give an orthogonal vector for every text.
	fresh := mocks.NewEmbedder([]float32{0, 1})
	restored, err := Load(ctx, settings, Options{Snapshots: store, Archive: store, Embedder: fresh, EmbeddingAvailable: true})
	require.NoError(t, err)
	require.Contains(t, restored.cache.SentenceEmbeddings, corpus.ContentHash(sentence))

	res, err = restored.ProcessDocument(ctx, "doc-2", sentence)
	require.NoError(t, err)

	assert.Zero(t, fresh.SentenceCalls())
	assert.IsType(t, domain.DuplicateViaBoth{}, res.Sentences[0].Verdict)
	assert.Equal(t, 1, fresh.DocumentCalls())

	_, err = restored.ProcessDocument(ctx, "doc-1", sentence)
	require.NoError(t, err)

	assert.Zero(t, fresh.SentenceCalls())
	assert.Equal(t, 1, fresh.DocumentCalls())
}

func TestProcessDocument_SurroundingWhitespaceIgnored(t *testing.T) {
	d, _ := newDetector(t, lshOnlySettings(), nil)
	ctx := context.Background()

	res, err := d.ProcessDocument(ctx, "doc-1", "  \t"+uniqueSentences[4]+"   ")
	require.NoError(t, err)
	require.True(t, res.Accepted)
	assert.Equal(t, uniqueSentences[4], res.Sentences[0].Text)
	assert.Equal(t, []string{corpus.ContentHash(uniqueSentences[4])}, res.UniqueHashes)

	res, err = d.ProcessDocument(ctx, "doc-2", uniqueSentences[4])
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, corpus.ContentHash(uniqueSentences[4]), res.Sentences[0].Hash)
}

func TestProcessDocument_CitationExemption(t *testing.T) {
	cited := "Earlier trials reported the same effect in mice [12]."

	settings := lshOnlySettings()
	settings.CitationPattern = regexp.MustCompile(`\[\d+\]`)

	d, _ := newDetector(t, settings, nil)
	ctx := context.Background()

	_, err := d.ProcessDocument(ctx, "doc-1", cited)
	require.NoError(t, err)

	res, err := d.ProcessDocument(ctx, "doc-2", cited)
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.True(t, res.Sentences[0].Exempt)
	assert.IsType(t, domain.NotDuplicate{}, res.Sentences[0].Verdict)
}

func TestProcessDocument_ArchiveFailure(t *testing.T) {
	d, store := newDetector(t, lshOnlySettings(), nil)
	store.StoreDocumentFn = func(context.Context, domain.ArchivedDocument) (string, error) {
		return "", errors.New("disk full")
	}

	res, err := d.ProcessDocument(context.Background(), "doc-1", lines(uniqueSentences[:3]...))
	require.Error(t, err)

	assert.True(t, errors.Is(err, apperrors.ErrStorage))
	assert.False(t, res.Accepted)
	assert.Equal(t, domain.ReasonStorageError, res.Reason)
	assert.Zero(t, d.CorpusSize())
	assert.Equal(t, 1, d.Stats().Outcomes.ByReason[string(domain.ReasonStorageError)])

	snap, err := store.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.Cache.Len())
	assert.Zero(t, snap.Stats.Outcomes.Accepted)
}

func TestProcessDocument_SnapshotFailureRollsBack(t *testing.T) {
	embedder := mocks.NewEmbedder([]float32{1, 0})
	d, store := newDetector(t, DefaultSettings(), embedder)
	store.SaveSnapshotFn = func(context.Context, corpus.Snapshot) error {
		return errors.New("connection reset")
	}

	ctx := context.Background()
	text := lines(uniqueSentences[:3]...)

	res, err := d.ProcessDocument(ctx, "doc-1", text)
	require.Error(t, err)

	assert.True(t, errors.Is(err, apperrors.ErrPersist))
	assert.False(t, res.Accepted)
	assert.Zero(t, d.CorpusSize())
	assert.Empty(t, d.cache.EmbeddingOrder)
	assert.Empty(t, d.cache.DocumentOrder)
	assert.Zero(t, d.Stats().Outcomes.Accepted)
	assert.Zero(t, store.DocumentWrites())

	_, err = d.GetStoredDocument(ctx, "doc-1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	count, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	store.SaveSnapshotFn = nil

	res, err = d.ProcessDocument(ctx, "doc-1", text)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 3, d.CorpusSize())
	assert.Equal(t, 1, store.DocumentWrites())
}

func TestProcessDocument_SaveFailureAfterRejection(t *testing.T) {
	d, store := newDetector(t, lshOnlySettings(), nil)
	ctx := context.Background()

	_, err := d.ProcessDocument(ctx, "doc-1", uniqueSentences[0])
	require.NoError(t, err)

	store.SaveSnapshotFn = func(context.Context, corpus.Snapshot) error {
		return errors.New("timeout")
	}

	res, err := d.ProcessDocument(ctx, "doc-2", uniqueSentences[0])
	require.Error(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, domain.ReasonLSH, res.Reason)
}

func TestGetStoredDocument_RoundTrip(t *testing.T) {
	d, _ := newDetector(t, lshOnlySettings(), nil)
	ctx := context.Background()

	text := lines(uniqueSentences[2], uniqueSentences[4], uniqueSentences[2], uniqueSentences[6])

	res, err := d.ProcessDocument(ctx, "doc-1", text)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	stored, err := d.GetStoredDocument(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, res.Handle, stored.Handle)
	assert.Equal(t, []string{uniqueSentences[2], uniqueSentences[4], uniqueSentences[6]}, stored.Sentences)

	_, err = d.GetStoredDocument(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = d.GetStoredDocument(ctx, "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidID))
}

func TestGetStoredDocument_UnknownHash(t *testing.T) {
	d, store := newDetector(t, lshOnlySettings(), nil)
	ctx := context.Background()

	_, err := store.StoreDocument(ctx, domain.ArchivedDocument{DocumentID: "legacy", Hashes: []string{"0xdead"}})
	require.NoError(t, err)

	stored, err := d.GetStoredDocument(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, []string{UnknownSentence}, stored.Sentences)
}

func TestLoad_RestoresCorpus(t *testing.T) {
	store := mocks.NewStore()
	ctx := context.Background()
	opts := Options{Snapshots: store, Archive: store}

	d, err := Load(ctx, lshOnlySettings(), opts)
	require.NoError(t, err)
	assert.Zero(t, d.CorpusSize())

	_, err = d.ProcessDocument(ctx, "doc-1", lines(uniqueSentences[:5]...))
	require.NoError(t, err)

	restored, err := Load(ctx, lshOnlySettings(), opts)
	require.NoError(t, err)
	assert.Equal(t, 5, restored.CorpusSize())
	assert.Equal(t, 1, restored.Stats().Outcomes.Accepted)

	res, err := restored.ProcessDocument(ctx, "doc-2", lines(uniqueSentences[:5]...))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
}

func TestLoad_BandMismatch(t *testing.T) {
	store := mocks.NewStore()
	ctx := context.Background()
	opts := Options{Snapshots: store, Archive: store}

	d, err := Load(ctx, lshOnlySettings(), opts)
	require.NoError(t, err)

	_, err = d.ProcessDocument(ctx, "doc-1", uniqueSentences[0])
	require.NoError(t, err)

	settings := lshOnlySettings()
	settings.NumBands = 5

	_, err = Load(ctx, settings, opts)
	assert.True(t, errors.Is(err, apperrors.ErrCorruptSnapshot))
}

func TestResetStats(t *testing.T) {
	d, store := newDetector(t, lshOnlySettings(), nil)
	ctx := context.Background()

	for i := range 3 {
		_, err := d.ProcessDocument(ctx, fmt.Sprintf("doc-%d", i), uniqueSentences[i])
		require.NoError(t, err)
	}

	require.Equal(t, 3, d.Stats().Outcomes.Processed)
	saves := store.SnapshotSaves()

	require.NoError(t, d.ResetStats(ctx))
	assert.Zero(t, d.Stats().Outcomes.Processed)
	assert.Empty(t, d.Stats().Ratios)
	assert.Equal(t, saves+1, store.SnapshotSaves())
	assert.Equal(t, 3, d.CorpusSize(), "resetting statistics keeps the corpus")
}

func TestSplitSentences(t *testing.T) {
	assert.Nil(t, SplitSentences(""))
	assert.Equal(t, []string{"a", "b c"}, SplitSentences(" a \r\n\n b c \n"))
}
