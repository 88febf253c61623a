package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	founders_errors "founders-chat/pkg/errors"
)

// DBTX abstracts *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// storeError maps driver errors onto the domain taxonomy. Domain errors pass
// through untouched; anything else is reported as a retryable store failure.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return founders_errors.ErrNotFound
	case isUniqueViolation(err):
		return founders_errors.ErrAlreadyExists
	case errors.Is(err, founders_errors.ErrNotFound),
		errors.Is(err, founders_errors.ErrForbidden),
		errors.Is(err, founders_errors.ErrInvalidInput),
		errors.Is(err, founders_errors.ErrAlreadyExists),
		errors.Is(err, founders_errors.ErrServiceUnavailable):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", founders_errors.ErrServiceUnavailable, err)
}

// WithTx executes fn inside a transaction, rolling back on error.
func WithTx(ctx context.Context, db *pgxpool.Pool, fn func(pgx.Tx) error) error {
	if db == nil {
		return fmt.Errorf("%w: database not initialized", founders_errors.ErrServiceUnavailable)
	}
	tx, err := db.Begin(ctx)
	if err != nil {
		return storeError(err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("tx error: %w (rollback error: %v)", storeError(err), rbErr)
		}
		return storeError(err)
	}
	return storeError(tx.Commit(ctx))
}

// NextTimestamp returns the creation time for a new message given the
// chat's current last message time. The result is strictly after last.
func NextTimestamp(now time.Time, last *time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if last != nil && !now.After(*last) {
		return last.UTC().Add(time.Microsecond)
	}
	return now
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
