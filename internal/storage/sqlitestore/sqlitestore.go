// Package sqlitestore keeps the corpus snapshot and the document archive in
// a single SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/ports"
	"github.com/lueurxax/dupcheck/internal/platform/observability"
	"github.com/lueurxax/dupcheck/internal/storage/sqlitestore/migrations"
)

const (
	backendName = "sqlite"
	snapshotKey = "current"
)

var _ ports.Store = (*Store)(nil)

// Store is a SQLite-backed corpus store.
type Store struct {
	db     *sql.DB
	path   string
	logger *zerolog.Logger
}

// Open opens or creates the database file and applies migrations.
func Open(ctx context.Context, path string, logger *zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// WAL mode lets readers proceed while a snapshot is written.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", apperrors.ErrStorage, err)
	}

	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, logger: logger}

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		s.logger.Info().Str("migration", r.Source.Path).Dur("duration", r.Duration).Msg("applied sqlite migration")
	}

	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// LoadSnapshot returns the current corpus snapshot.
func (s *Store) LoadSnapshot(ctx context.Context) (corpus.Snapshot, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx, `SELECT payload FROM corpus_snapshots WHERE name = ?`, snapshotKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return corpus.Snapshot{}, apperrors.ErrNotFound
	}

	if err != nil {
		return corpus.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	return corpus.Decode(data)
}

// SaveSnapshot replaces the current corpus snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snap corpus.Snapshot) error {
	start := time.Now()

	data, err := corpus.Encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO corpus_snapshots (name, version, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET version = excluded.version,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, snapshotKey, corpus.SnapshotVersion, data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	observability.SnapshotSaveDuration.WithLabelValues(backendName).Observe(time.Since(start).Seconds())
	observability.SnapshotBytes.Set(float64(len(data)))

	return nil
}

// StoreDocument upserts the archived hash list of an accepted document.
func (s *Store) StoreDocument(ctx context.Context, doc domain.ArchivedDocument) (string, error) {
	handle := ports.ContentHandle(doc.Hashes)

	hashes := doc.Hashes
	if hashes == nil {
		hashes = []string{}
	}

	hashesJSON, err := json.Marshal(hashes)
	if err != nil {
		return "", fmt.Errorf("marshal hashes: %w", err)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO document_archives (document_id, handle, sentence_hashes, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (document_id) DO UPDATE
		SET handle = excluded.handle,
			sentence_hashes = excluded.sentence_hashes,
			embedding = COALESCE(excluded.embedding, document_archives.embedding)
	`, doc.DocumentID, handle, string(hashesJSON), encodeEmbedding(doc.Embedding), createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("store document %s: %w", doc.DocumentID, err)
	}

	return handle, nil
}

// GetDocument loads an archived document.
func (s *Store) GetDocument(ctx context.Context, documentID string) (domain.ArchivedDocument, error) {
	var (
		doc        domain.ArchivedDocument
		hashesJSON string
		embedding  []byte
		createdAt  string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT document_id, handle, sentence_hashes, embedding, created_at
		FROM document_archives
		WHERE document_id = ?
	`, documentID).Scan(&doc.DocumentID, &doc.Handle, &hashesJSON, &embedding, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ArchivedDocument{}, fmt.Errorf("document %s: %w", documentID, apperrors.ErrNotFound)
	}

	if err != nil {
		return domain.ArchivedDocument{}, fmt.Errorf("get document %s: %w", documentID, err)
	}

	if err := json.Unmarshal([]byte(hashesJSON), &doc.Hashes); err != nil {
		return domain.ArchivedDocument{}, fmt.Errorf("unmarshal hashes of %s: %w", documentID, err)
	}

	doc.Embedding = decodeEmbedding(embedding)

	if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.ArchivedDocument{}, fmt.Errorf("parse created_at of %s: %w", documentID, err)
	}

	return doc, nil
}

// CountDocuments returns the number of archived documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_archives`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}

	return n, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// encodeEmbedding packs a vector as little-endian float32s; nil stays NULL.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}

	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}

	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}

	return vec
}
