package db

import (
	"context"
	"fmt"

	apperrors "github.com/lueurxax/dupcheck/internal/core/errors"
)

// TryAcquireAdvisoryLock takes a session advisory lock on a dedicated
// connection. The returned release func unlocks and returns the connection
// to the pool. Returns errors.ErrStorage when another session holds the lock.
func (db *DB) TryAcquireAdvisoryLock(ctx context.Context, lockID int64) (func(), error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool

	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try acquire advisory lock: %w", err)
	}

	if !acquired {
		conn.Release()
		return nil, fmt.Errorf("%w: advisory lock %d is held by another process", apperrors.ErrStorage, lockID)
	}

	release := func() {
		//nolint:errcheck // lock is released on connection close anyway
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockID)
		conn.Release()
	}

	return release, nil
}
