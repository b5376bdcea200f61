// Package memory is an in-process corpus store. Snapshots are kept encoded
// so a load always returns an independent copy.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/ports"
	"github.com/lueurxax/dupcheck/internal/platform/observability"
)

const backendName = "memory"

var _ ports.Store = (*Store)(nil)

// Store keeps the snapshot and archive in memory.
type Store struct {
	mu        sync.RWMutex
	snapshot  []byte
	documents map[string]domain.ArchivedDocument
}

// New returns an empty store.
func New() *Store {
	return &Store{documents: map[string]domain.ArchivedDocument{}}
}

// LoadSnapshot decodes the last saved snapshot.
func (s *Store) LoadSnapshot(_ context.Context) (corpus.Snapshot, error) {
	s.mu.RLock()
	data := s.snapshot
	s.mu.RUnlock()

	if data == nil {
		return corpus.Snapshot{}, apperrors.ErrNotFound
	}

	return corpus.Decode(data)
}

// SaveSnapshot replaces the stored snapshot.
func (s *Store) SaveSnapshot(_ context.Context, snap corpus.Snapshot) error {
	start := time.Now()

	data, err := corpus.Encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	s.snapshot = data
	s.mu.Unlock()

	observability.SnapshotSaveDuration.WithLabelValues(backendName).Observe(time.Since(start).Seconds())
	observability.SnapshotBytes.Set(float64(len(data)))

	return nil
}

// StoreDocument upserts an archived document.
func (s *Store) StoreDocument(_ context.Context, doc domain.ArchivedDocument) (string, error) {
	doc.Handle = ports.ContentHandle(doc.Hashes)
	doc.Hashes = append([]string(nil), doc.Hashes...)

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.documents[doc.DocumentID] = doc
	s.mu.Unlock()

	return doc.Handle, nil
}

// GetDocument returns an archived document.
func (s *Store) GetDocument(_ context.Context, documentID string) (domain.ArchivedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return domain.ArchivedDocument{}, fmt.Errorf("document %s: %w", documentID, apperrors.ErrNotFound)
	}

	doc.Hashes = append([]string(nil), doc.Hashes...)

	return doc, nil
}

// CountDocuments returns the number of archived documents.
func (s *Store) CountDocuments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.documents), nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
