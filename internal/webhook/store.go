package webhook

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/biznooks/biznooks/internal/platform/db"
)

// PGNonceStore persists nonces in Postgres; the unique constraint on the
// nonce column is the replay barrier.
type PGNonceStore struct {
	pool *pgxpool.Pool
}

// NewPGNonceStore constructs the store.
func NewPGNonceStore(pool *pgxpool.Pool) *PGNonceStore {
	return &PGNonceStore{pool: pool}
}

// Insert stores the nonce, returning ErrReplayedNonce when it was already
// consumed.
func (s *PGNonceStore) Insert(ctx context.Context, nonce string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO webhook_nonces (nonce, timestamp) VALUES ($1, $2)`, nonce, at)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrReplayedNonce
		}
		return err
	}
	return nil
}

// Cleanup removes nonces older than the retention window. Replay windows
// are bounded by the timestamp check, so aged nonces carry no risk.
func (s *PGNonceStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM webhook_nonces WHERE timestamp < $1`, cutoff)
	return err
}
