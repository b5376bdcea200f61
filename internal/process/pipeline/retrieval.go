package pipeline

import (
	"context"
	"fmt"

	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/stats"
)

// GetStoredDocument resolves an archived document back to its sentences.
// Hashes no longer present in the sentence table map to UnknownSentence.
func (d *Detector) GetStoredDocument(ctx context.Context, documentID string) (domain.StoredDocument, error) {
	if documentID == "" {
		return domain.StoredDocument{}, fmt.Errorf("%w: empty document id", apperrors.ErrInvalidID)
	}

	archived, err := d.archive.GetDocument(ctx, documentID)
	if err != nil {
		return domain.StoredDocument{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	sentences := make([]string, len(archived.Hashes))

	for i, h := range archived.Hashes {
		text, _, ok := d.cache.Sentence(h)
		if !ok {
			text = UnknownSentence
		}

		sentences[i] = text
	}

	return domain.StoredDocument{
		DocumentID: archived.DocumentID,
		Handle:     archived.Handle,
		Hashes:     archived.Hashes,
		Sentences:  sentences,
	}, nil
}

// Stats returns a copy of the tuning statistics.
func (d *Detector) Stats() *stats.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stats.Clone()
}

// ResetStats clears the statistics and persists the cleared state.
func (d *Detector) ResetStats(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.stats.Clone()
	d.stats.Reset()

	if err := d.save(ctx); err != nil {
		d.stats = prev
		return fmt.Errorf("%w: %w", apperrors.ErrPersist, err)
	}

	d.logger.Info().Msg("Statistics reset")

	return nil
}
