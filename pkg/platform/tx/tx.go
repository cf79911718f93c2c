// Package tx carries a SQL transaction through context so independent stores
// can join the same unit of work without knowing about each other.
package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "zonegrid/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// TxRunner executes fn inside a single storage transaction. The transaction
// commits only when fn returns nil; any error rolls back every write fn made.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const defaultTxTimeout = 5 * time.Second

// Runner is the PostgreSQL TxRunner. The transaction is injected into the
// context handed to fn, where stores pick it up via From.
type Runner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRunner wraps a database handle in a transaction runner.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

// RunInTx begins a transaction, runs fn with the transaction in context, and
// commits or rolls back depending on fn's error. Nested calls reuse the
// caller's transaction instead of opening a second one.
func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}

// PassthroughRunner runs fn directly without a real transaction. In-memory
// stores used in unit tests take their own locks per call.
type PassthroughRunner struct{}

func (PassthroughRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}
