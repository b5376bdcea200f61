// Package pipeline runs incoming documents through the detection tiers and
// commits accepted documents to the corpus.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/lsh"
	"github.com/lueurxax/dupcheck/internal/core/minhash"
	"github.com/lueurxax/dupcheck/internal/core/ports"
	"github.com/lueurxax/dupcheck/internal/core/stats"
	"github.com/lueurxax/dupcheck/internal/platform/observability"
	"github.com/lueurxax/dupcheck/internal/process/dedup"
)

// Embedder produces L2-normalized vectors. Implementations must be
// idempotent for identical text.
type Embedder interface {
	EmbedSentence(ctx context.Context, text string) ([]float32, error)
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// Options carries the collaborators of a Detector.
type Options struct {
	Embedder Embedder
	// EmbeddingAvailable is resolved once at startup; false disables the
	// embedding tier without touching Settings.
	EmbeddingAvailable bool
	Snapshots          ports.SnapshotStore
	Archive            ports.Archive
	Logger             *zerolog.Logger
}

// Detector processes one document at a time against a corpus cache.
type Detector struct {
	mu sync.Mutex

	settings Settings
	hasher   *minhash.Hasher
	index    *lsh.Index
	verifier *dedup.Verifier

	cache *corpus.Cache
	stats *stats.Stats

	embedder           Embedder
	embeddingAvailable bool
	snapshots          ports.SnapshotStore
	archive            ports.Archive
	logger             *zerolog.Logger
}

// New creates a detector over an empty corpus.
func New(settings Settings, opts Options) (*Detector, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	if opts.Archive == nil {
		return nil, fmt.Errorf("%w: archive is required", apperrors.ErrInvalidConfig)
	}

	bander, err := lsh.NewBander(settings.NumHashes, settings.NumBands)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	d := &Detector{
		settings: settings,
		hasher:   minhash.NewHasher(settings.NumHashes),
		index:    lsh.NewIndex(bander, settings.LSHThreshold),
		verifier: dedup.NewVerifier(settings.SentenceThreshold, settings.DocumentThreshold,
			settings.EarlyExitThreshold, logger),
		cache:              corpus.New(settings.NumBands),
		stats:              stats.New(),
		embedder:           opts.Embedder,
		embeddingAvailable: opts.EmbeddingAvailable && opts.Embedder != nil && settings.EmbeddingEnabled,
		snapshots:          opts.Snapshots,
		archive:            opts.Archive,
		logger:             logger,
	}

	return d, nil
}

// Load creates a detector and restores the corpus from the snapshot store.
// A missing snapshot starts an empty corpus; a snapshot built with a
// different band layout or signature length is rejected.
func Load(ctx context.Context, settings Settings, opts Options) (*Detector, error) {
	d, err := New(settings, opts)
	if err != nil {
		return nil, err
	}

	if d.snapshots == nil {
		return d, nil
	}

	snap, err := d.snapshots.LoadSnapshot(ctx)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		d.logger.Info().Msg("No corpus snapshot found, starting empty")
		return d, nil
	}

	if err != nil {
		return nil, fmt.Errorf("load corpus snapshot: %w", err)
	}

	if snap.Cache.NumBands != settings.NumBands {
		return nil, fmt.Errorf("%w: snapshot has %d bands, configured %d",
			apperrors.ErrCorruptSnapshot, snap.Cache.NumBands, settings.NumBands)
	}

	if err := snap.Cache.Validate(settings.NumHashes); err != nil {
		return nil, err
	}

	d.cache = snap.Cache
	d.stats = snap.Stats
	d.updateCorpusGauges()

	d.logger.Info().
		Int(LogFieldSentences, d.cache.Len()).
		Int("documents", len(d.cache.DocumentOrder)).
		Msg("Corpus snapshot loaded")

	return d, nil
}

// EmbeddingTierAvailable reports whether the embedding tier runs.
func (d *Detector) EmbeddingTierAvailable() bool {
	return d.embeddingAvailable
}

// Settings returns the detection settings.
func (d *Detector) Settings() Settings {
	return d.settings
}

// CorpusSize returns the number of stored sentences.
func (d *Detector) CorpusSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.cache.Len()
}

// ProcessDocument decides whether a document is a near duplicate of the
// corpus and commits it when accepted. Duplication is reported through
// Result.Accepted and never as an error; a non-nil error means the document
// could not be committed (errors.ErrStorage or errors.ErrPersist) and is
// safe to retry in full.
func (d *Detector) ProcessDocument(ctx context.Context, documentID, text string) (domain.Result, error) {
	if documentID == "" {
		return domain.Result{}, fmt.Errorf("%w: empty document id", apperrors.ErrInvalidID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()

	res, err := d.process(ctx, documentID, text)
	res.Duration = time.Since(start)

	d.recordMetrics(res)

	return res, err
}

func (d *Detector) process(ctx context.Context, documentID, text string) (domain.Result, error) {
	doc := d.prepare(documentID, text)
	res := domain.Result{DocumentID: documentID, Sentences: doc.results}

	var docVec []float32

	if d.embeddingAvailable && d.settings.DocumentCheck && len(doc.lines) > 0 {
		var match *domain.DocumentMatch

		docVec, match = d.checkDocument(ctx, doc)
		res.EmbeddingTierRan = docVec != nil

		if match != nil {
			res.Reason = domain.ReasonDocument
			res.DocumentMatch = match
			d.stats.RecordDocumentRejection()
			d.stats.RecordDocument(false, string(domain.ReasonDocument))

			return res, d.saveAfterReject(ctx, documentID)
		}
	}

	d.runLSH(doc)

	// The early reject must agree with the final decision: either no later
	// tier can add flags or extra flags can only raise the score.
	checkpoint := !d.embeddingAvailable || d.settings.Policy.Monotonic()

	if decision := d.settings.Policy.Evaluate(doc.flags()); checkpoint && !decision.Accept {
		res.Score, res.Ratio = decision.Score, decision.Ratio
		res.Reason = domain.ReasonLSH
		d.stats.RecordRatio(decision.Ratio)
		d.stats.RecordDocument(false, string(domain.ReasonLSH))

		return res, d.saveAfterReject(ctx, documentID)
	}

	if d.embeddingAvailable {
		if ran := d.runEmbedding(ctx, doc); ran {
			res.EmbeddingTierRan = true
		}
	}

	decision := d.settings.Policy.Evaluate(doc.flags())
	res.Score, res.Ratio = decision.Score, decision.Ratio
	d.stats.RecordRatio(decision.Ratio)

	if !decision.Accept {
		res.Reason = domain.ReasonFinal
		d.stats.RecordDocument(false, string(domain.ReasonFinal))

		return res, d.saveAfterReject(ctx, documentID)
	}

	return d.commit(ctx, doc, docVec, res)
}

// saveAfterReject persists statistics for a rejected document. The corpus
// itself is unchanged, so a failure here does not alter the verdict.
func (d *Detector) saveAfterReject(ctx context.Context, documentID string) error {
	if err := d.save(ctx); err != nil {
		d.logger.Error().Err(err).Str(LogFieldDocumentID, documentID).Msg("failed to save statistics after rejection")
		return err
	}

	return nil
}

// commit applies the unique sentences to the cache, saves the snapshot and
// then archives the document. Any failure leaves the cache as it was before
// the call, and no archive record is written unless the snapshot holds the
// sentences it refers to.
func (d *Detector) commit(ctx context.Context, doc *document, docVec []float32, res domain.Result) (domain.Result, error) {
	batch, err := d.buildBatch(doc, docVec)
	if err != nil {
		return d.failCommit(ctx, res, err)
	}

	hashes := batch.Hashes()
	prevStats := d.stats.Clone()

	undo, err := d.cache.Apply(batch)
	if err != nil {
		return d.failCommit(ctx, res, fmt.Errorf("%w: %w", apperrors.ErrStorage, err))
	}

	rollback := func() {
		undo()

		d.stats = prevStats
	}

	d.stats.RecordDocument(true, "")

	if err := d.save(ctx); err != nil {
		rollback()

		return d.failCommit(ctx, res, fmt.Errorf("%w: %w", apperrors.ErrPersist, err))
	}

	handle, err := d.archive.StoreDocument(ctx, domain.ArchivedDocument{
		DocumentID: doc.id,
		Hashes:     hashes,
		Embedding:  docVec,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		// failCommit saves the rolled-back snapshot.
		rollback()

		return d.failCommit(ctx, res, fmt.Errorf("%w: archive document %s: %w", apperrors.ErrStorage, doc.id, err))
	}

	res.Accepted = true
	res.Reason = domain.ReasonNone
	res.UniqueHashes = hashes
	res.Handle = handle

	d.updateCorpusGauges()

	d.logger.Info().
		Str(LogFieldDocumentID, doc.id).
		Int(LogFieldSentences, len(doc.lines)).
		Int(LogFieldUnique, len(hashes)).
		Float64(LogFieldRatio, res.Ratio).
		Msg("Document accepted")

	return res, nil
}

func (d *Detector) failCommit(ctx context.Context, res domain.Result, err error) (domain.Result, error) {
	res.Accepted = false
	res.Reason = domain.ReasonStorageError
	d.stats.RecordDocument(false, string(domain.ReasonStorageError))

	if saveErr := d.save(ctx); saveErr != nil {
		d.logger.Warn().Err(saveErr).Str(LogFieldDocumentID, res.DocumentID).Msg("failed to save statistics after storage error")
	}

	d.logger.Error().Err(err).Str(LogFieldDocumentID, res.DocumentID).Msg("Document commit failed")

	return res, err
}

func (d *Detector) buildBatch(doc *document, docVec []float32) (*corpus.Batch, error) {
	batch := corpus.NewBatch(doc.id)
	batch.DocumentEmbedding = docVec

	for i, s := range doc.results {
		if s.Verdict.IsDuplicate() {
			continue
		}

		e, err := d.index.Entry(s.Hash, s.Text, doc.id, doc.signatures[i])
		if err != nil {
			return nil, err
		}

		e.Embedding = doc.embeddings[i]
		batch.Add(e)
	}

	return batch, nil
}

func (d *Detector) save(ctx context.Context) error {
	if d.snapshots == nil {
		return nil
	}

	if err := d.snapshots.SaveSnapshot(ctx, corpus.Snapshot{Cache: d.cache, Stats: d.stats}); err != nil {
		return fmt.Errorf("save corpus snapshot: %w", err)
	}

	return nil
}

func (d *Detector) recordMetrics(res domain.Result) {
	observability.DocumentProcessingDuration.Observe(res.Duration.Seconds())

	if res.Accepted {
		observability.DocumentsProcessed.WithLabelValues(outcomeAccepted).Inc()
	} else {
		observability.DocumentsProcessed.WithLabelValues(outcomeRejected).Inc()
		observability.DocumentRejections.WithLabelValues(string(res.Reason)).Inc()
	}

	if res.Reason != domain.ReasonDocument {
		observability.DuplicateRatio.Observe(res.Ratio)
	}

	for _, s := range res.Sentences {
		if s.Verdict != nil {
			observability.SentenceVerdicts.WithLabelValues(s.Verdict.Method()).Inc()
		}
	}
}

func (d *Detector) updateCorpusGauges() {
	observability.CorpusSentences.Set(float64(d.cache.Len()))
	observability.CorpusDocumentEmbeddings.Set(float64(len(d.cache.DocumentOrder)))
}
