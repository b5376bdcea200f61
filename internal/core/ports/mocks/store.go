package mocks

import (
	"context"
	"sync"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	"github.com/lueurxax/dupcheck/internal/core/ports"
	"github.com/lueurxax/dupcheck/internal/storage/memory"
)

var _ ports.Store = (*Store)(nil)

// Store wraps the in-memory backend with per-method overrides.
type Store struct {
	*memory.Store

	mu    sync.Mutex
	saves int
	puts  int

	// SaveSnapshotFn allows overriding SaveSnapshot behavior.
	SaveSnapshotFn func(ctx context.Context, snap corpus.Snapshot) error

	// StoreDocumentFn allows overriding StoreDocument behavior.
	StoreDocumentFn func(ctx context.Context, doc domain.ArchivedDocument) (string, error)
}

// NewStore creates an empty mock store.
func NewStore() *Store {
	return &Store{Store: memory.New()}
}

// SaveSnapshot counts the call and delegates unless overridden.
func (s *Store) SaveSnapshot(ctx context.Context, snap corpus.Snapshot) error {
	s.mu.Lock()
	s.saves++
	fn := s.SaveSnapshotFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, snap)
	}

	return s.Store.SaveSnapshot(ctx, snap)
}

// StoreDocument counts the call and delegates unless overridden.
func (s *Store) StoreDocument(ctx context.Context, doc domain.ArchivedDocument) (string, error) {
	s.mu.Lock()
	s.puts++
	fn := s.StoreDocumentFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, doc)
	}

	return s.Store.StoreDocument(ctx, doc)
}

// SnapshotSaves returns how many times SaveSnapshot was called.
func (s *Store) SnapshotSaves() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves
}

// DocumentWrites returns how many times StoreDocument was called.
func (s *Store) DocumentWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.puts
}
