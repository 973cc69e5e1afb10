package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supermart/supermart/internal/shared"
)

// DefaultLockTimeout bounds how long a transaction waits for a row lock.
const DefaultLockTimeout = 3 * time.Second

// Postgres error codes that indicate contention rather than a bad request.
const (
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
	codeUniqueViolation      = "23505"
)

// TxOptions tunes a transaction started by WithTx.
type TxOptions struct {
	LockTimeout time.Duration
}

// WithTx executes fn inside a ReadCommitted transaction. Row locks taken with
// SELECT ... FOR UPDATE make waiters re-read the committed row once the holder
// finishes. Lock contention errors are mapped to shared.ErrLockTimeout.
func WithTx(ctx context.Context, pool *pgxpool.Pool, opts TxOptions, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())); err != nil {
		return fmt.Errorf("platform/db: set lock_timeout: %w", err)
	}

	if err := fn(tx); err != nil {
		return MapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return MapError(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}

// MapError converts contention errors into shared.ErrLockTimeout and leaves
// everything else untouched.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
			return fmt.Errorf("%w: %s", shared.ErrLockTimeout, pgErr.Message)
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
