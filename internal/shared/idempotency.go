package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyStore reserves client-supplied request keys per scope. A key
// stays reserved until released or purged.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// Reserve claims key within scope. A key that is already held returns ErrIdempotencyConflict.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key string) error {
	if s == nil || s.pool == nil {
		return errors.New("idempotency store not initialised")
	}
	if scope == "" || key == "" {
		return errors.New("idempotency scope and key required")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (scope, key) VALUES ($1, $2)`, scope, key)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s %s: %w", scope, key, ErrIdempotencyConflict)
	}
	return err
}

// Release frees a key after the guarded operation failed so the client may retry.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE scope = $1 AND key = $2`, scope, key)
	return err
}

// Purge drops keys reserved before now minus olderThan and reports how many went.
func (s *IdempotencyStore) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
