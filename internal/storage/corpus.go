package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/ports"
	"github.com/lueurxax/dupcheck/internal/platform/observability"
)

// LoadSnapshot returns the current corpus snapshot.
func (db *DB) LoadSnapshot(ctx context.Context) (corpus.Snapshot, error) {
	var data []byte

	err := db.Pool.QueryRow(ctx, `
		SELECT payload FROM corpus_snapshots WHERE name = $1
	`, snapshotKey).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return corpus.Snapshot{}, apperrors.ErrNotFound
		}

		return corpus.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	return corpus.Decode(data)
}

// SaveSnapshot replaces the current corpus snapshot.
func (db *DB) SaveSnapshot(ctx context.Context, snap corpus.Snapshot) error {
	start := time.Now()

	data, err := corpus.Encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO corpus_snapshots (name, version, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET version = EXCLUDED.version,
			payload = EXCLUDED.payload,
			updated_at = now()
	`, snapshotKey, corpus.SnapshotVersion, data)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	observability.SnapshotSaveDuration.WithLabelValues(backendName).Observe(time.Since(start).Seconds())
	observability.SnapshotBytes.Set(float64(len(data)))

	return nil
}

// StoreDocument upserts the archived hash list of an accepted document.
func (db *DB) StoreDocument(ctx context.Context, doc domain.ArchivedDocument) (string, error) {
	handle := ports.ContentHandle(doc.Hashes)

	hashes := doc.Hashes
	if hashes == nil {
		hashes = []string{}
	}

	var embedding any
	if len(doc.Embedding) > 0 {
		embedding = pgvector.NewVector(doc.Embedding)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO document_archives (document_id, handle, sentence_hashes, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document_id) DO UPDATE
		SET handle = EXCLUDED.handle,
			sentence_hashes = EXCLUDED.sentence_hashes,
			embedding = COALESCE(EXCLUDED.embedding, document_archives.embedding)
	`, doc.DocumentID, handle, hashes, embedding, createdAt)
	if err != nil {
		return "", fmt.Errorf("store document %s: %w", doc.DocumentID, err)
	}

	return handle, nil
}

// GetDocument loads an archived document.
func (db *DB) GetDocument(ctx context.Context, documentID string) (domain.ArchivedDocument, error) {
	var (
		doc       domain.ArchivedDocument
		embedding *pgvector.Vector
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT document_id, handle, sentence_hashes, embedding, created_at
		FROM document_archives
		WHERE document_id = $1
	`, documentID).Scan(&doc.DocumentID, &doc.Handle, &doc.Hashes, &embedding, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ArchivedDocument{}, fmt.Errorf("document %s: %w", documentID, apperrors.ErrNotFound)
		}

		return domain.ArchivedDocument{}, fmt.Errorf("get document %s: %w", documentID, err)
	}

	if embedding != nil {
		doc.Embedding = embedding.Slice()
	}

	return doc, nil
}

// CountDocuments returns the number of archived documents.
func (db *DB) CountDocuments(ctx context.Context) (int, error) {
	var n int

	if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM document_archives`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}

	return n, nil
}
