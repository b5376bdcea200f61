// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing business logic to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
)

// HandlePrefix marks a content identifier derived from a document's hash list.
const HandlePrefix = "sha256:"

// SnapshotStore persists the whole corpus cache as one opaque snapshot.
type SnapshotStore interface {
	// LoadSnapshot returns the latest snapshot, or errors.ErrNotFound when none was saved.
	LoadSnapshot(ctx context.Context) (corpus.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap corpus.Snapshot) error
}

// Archive persists the unique-sentence hash list of accepted documents.
type Archive interface {
	// StoreDocument persists a document and returns its retrieval handle.
	// Storing the same document twice is idempotent.
	StoreDocument(ctx context.Context, doc domain.ArchivedDocument) (string, error)
	// GetDocument returns errors.ErrNotFound for unknown ids.
	GetDocument(ctx context.Context, documentID string) (domain.ArchivedDocument, error)
	CountDocuments(ctx context.Context) (int, error)
}

// Store is a backend that provides both collaborators.
type Store interface {
	SnapshotStore
	Archive
	Ping(ctx context.Context) error
	Close() error
}

// ContentHandle derives the retrieval handle of an ordered hash list:
// sha256 of its JSON encoding.
func ContentHandle(hashes []string) string {
	if hashes == nil {
		hashes = []string{}
	}

	raw, _ := json.Marshal(hashes) //nolint:errchkjson // []string always marshals
	sum := sha256.Sum256(raw)

	return HandlePrefix + hex.EncodeToString(sum[:])
}
