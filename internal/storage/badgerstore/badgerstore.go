// Package badgerstore keeps the corpus snapshot and the document archive in
// an embedded Badger key-value store.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/ports"
	"github.com/lueurxax/dupcheck/internal/platform/observability"
)

const (
	SnapshotKey      = "snapshot:current"
	ArchiveKeyPrefix = "archive:"

	backendName = "badger"
)

var _ ports.Store = (*Store)(nil)

// Store is a Badger-backed corpus store.
type Store struct {
	db     *badger.DB
	logger *zerolog.Logger
}

// Open opens or creates the store at path. An empty path keeps everything in memory.
func Open(path string, logger *zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(&badgerLogger{logger: logger})
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger at %q: %w", apperrors.ErrStorage, path, err)
	}

	return &Store{db: db, logger: logger}, nil
}

func archiveKey(documentID string) []byte {
	return []byte(ArchiveKeyPrefix + documentID)
}

// LoadSnapshot returns the current corpus snapshot.
func (s *Store) LoadSnapshot(_ context.Context) (corpus.Snapshot, error) {
	var data []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(SnapshotKey))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = slices.Clone(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return corpus.Snapshot{}, apperrors.ErrNotFound
	}

	if err != nil {
		return corpus.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	return corpus.Decode(data)
}

// SaveSnapshot replaces the current corpus snapshot.
func (s *Store) SaveSnapshot(_ context.Context, snap corpus.Snapshot) error {
	start := time.Now()

	data, err := corpus.Encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(SnapshotKey), data)
	}); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	observability.SnapshotSaveDuration.WithLabelValues(backendName).Observe(time.Since(start).Seconds())
	observability.SnapshotBytes.Set(float64(len(data)))

	return nil
}

type archiveRecord struct {
	DocumentID string    `json:"document_id"`
	Handle     string    `json:"handle"`
	Hashes     []string  `json:"hashes"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// StoreDocument upserts the archived hash list of an accepted document.
func (s *Store) StoreDocument(_ context.Context, doc domain.ArchivedDocument) (string, error) {
	rec := archiveRecord{
		DocumentID: doc.DocumentID,
		Handle:     ports.ContentHandle(doc.Hashes),
		Hashes:     doc.Hashes,
		Embedding:  doc.Embedding,
		CreatedAt:  doc.CreatedAt,
	}

	if rec.Hashes == nil {
		rec.Hashes = []string{}
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal document %s: %w", doc.DocumentID, err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(archiveKey(doc.DocumentID), body)
	}); err != nil {
		return "", fmt.Errorf("store document %s: %w", doc.DocumentID, err)
	}

	return rec.Handle, nil
}

// GetDocument loads an archived document.
func (s *Store) GetDocument(_ context.Context, documentID string) (domain.ArchivedDocument, error) {
	var rec archiveRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(archiveKey(documentID))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ArchivedDocument{}, fmt.Errorf("document %s: %w", documentID, apperrors.ErrNotFound)
	}

	if err != nil {
		return domain.ArchivedDocument{}, fmt.Errorf("get document %s: %w", documentID, err)
	}

	return domain.ArchivedDocument{
		DocumentID: rec.DocumentID,
		Handle:     rec.Handle,
		Hashes:     rec.Hashes,
		Embedding:  rec.Embedding,
		CreatedAt:  rec.CreatedAt,
	}, nil
}

// CountDocuments returns the number of archived documents.
func (s *Store) CountDocuments(_ context.Context) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(ArchiveKeyPrefix)
	opts.PrefetchValues = false

	n := 0

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}

	return n, nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("%w: badger store is closed", apperrors.ErrStorage)
	}

	return nil
}

// Close flushes and closes the store.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}

	return nil
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct {
	logger *zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Str("component", backendName).Msgf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Str("component", backendName).Msgf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Str("component", backendName).Msgf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Str("component", backendName).Msgf(format, args...)
}
