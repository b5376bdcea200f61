package corpus

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
	"github.com/lueurxax/dupcheck/internal/core/stats"
)

// SnapshotVersion is written into every encoded snapshot.
const SnapshotVersion = 1

// Snapshot is the opaque unit handed to the durable corpus store.
type Snapshot struct {
	Version int          `json:"version"`
	Cache   *Cache       `json:"cache"`
	Stats   *stats.Stats `json:"stats"`
}

// Encode serialises a snapshot as zstd-compressed JSON.
func Encode(s Snapshot) ([]byte, error) {
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()

	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

// Decode parses a snapshot produced by Encode and repairs nil tables.
func Decode(data []byte) (Snapshot, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: decompress: %v", apperrors.ErrCorruptSnapshot, err)
	}

	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: unmarshal: %v", apperrors.ErrCorruptSnapshot, err)
	}

	if s.Version > SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: unsupported version %d", apperrors.ErrCorruptSnapshot, s.Version)
	}

	if s.Cache == nil {
		return Snapshot{}, fmt.Errorf("%w: missing cache", apperrors.ErrCorruptSnapshot)
	}

	s.Cache.ensure()

	if s.Stats == nil {
		s.Stats = stats.New()
	}

	s.Stats.Normalize()

	return s, nil
}
