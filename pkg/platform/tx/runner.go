package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "vcanchor/pkg/domain-errors"
)

// Runner provides a transactional boundary for multi-row mutations.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const defaultTxTimeout = 5 * time.Second

// MemoryRunner serializes units of work against in-memory stores and undoes
// journaled writes when fn fails.
type MemoryRunner struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewMemoryRunner returns a Runner for in-memory stores.
func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (t *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := JournalFrom(ctx); ok {
		return fn(ctx)
	}

	ctx, cancel := withDefaultTimeout(ctx, t.timeout)
	defer cancel()

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	journal := &Journal{}
	if err := fn(WithJournal(ctx, journal)); err != nil {
		journal.Rollback()
		return err
	}
	return nil
}

// PostgresRunner wraps fn in a database/sql transaction.
type PostgresRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRunner returns a Runner backed by db.
func NewPostgresRunner(db *sql.DB) *PostgresRunner {
	return &PostgresRunner{db: db}
}

func (t *PostgresRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	ctx, cancel := withDefaultTimeout(ctx, t.timeout)
	defer cancel()

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
