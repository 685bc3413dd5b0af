package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coffeeshop/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// DefaultMaxRetries bounds how often a conflicting transaction is replayed.
const DefaultMaxRetries = 5

// Runner executes functions inside Postgres transactions, replaying them when
// Postgres aborts the transaction because of a concurrent writer.
type Runner struct {
	pool       *pgxpool.Pool
	maxRetries uint64
}

func NewRunner(pool *pgxpool.Pool, maxRetries int) *Runner {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Runner{pool: pool, maxRetries: uint64(maxRetries)}
}

// Pool exposes the underlying pool for plain reads.
func (r *Runner) Pool() *pgxpool.Pool {
	return r.pool
}

// InTx runs fn in a read-committed transaction. fn may run more than once and
// must not have side effects outside tx.
func (r *Runner) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), r.maxRetries),
		ctx,
	)
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := r.once(ctx, fn)
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil && IsRetryable(err) {
		return fmt.Errorf("%w: gave up after %d attempts: %v", domain.ErrConcurrencyConflict, attempts, err)
	}
	return err
}

func (r *Runner) once(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

// IsRetryable reports whether Postgres aborted the transaction because of a
// concurrent writer.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// IsUniqueViolation reports a unique constraint violation, optionally on a
// specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsForeignKeyViolation reports a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}
