// Package tx propagates a transaction handle through context so stores can
// join a unit of work started by a service.
//
// PostgreSQL-backed stores look for a *sql.Tx; in-memory stores look for a
// Journal and register compensating actions on it.
package tx

import (
	"context"
	"database/sql"
	"sync"
)

type (
	sqlTxKey   struct{}
	journalKey struct{}
)

// WithTx returns a context carrying tx.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, sqlTxKey{}, tx)
}

// From returns the transaction stored in ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Executor is the subset of *sql.DB and *sql.Tx used by stores.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ExecutorFor returns the ambient transaction when present, otherwise db.
func ExecutorFor(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// Journal records undo actions for in-memory writes made inside a unit of work.
type Journal struct {
	mu   sync.Mutex
	undo []func()
}

// WithJournal returns a context carrying j.
func WithJournal(ctx context.Context, j *Journal) context.Context {
	return context.WithValue(ctx, journalKey{}, j)
}

// JournalFrom returns the journal stored in ctx, if any.
func JournalFrom(ctx context.Context) (*Journal, bool) {
	j, ok := ctx.Value(journalKey{}).(*Journal)
	return j, ok && j != nil
}

// OnRollback registers fn to run if the unit of work fails.
func (j *Journal) OnRollback(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = append(j.undo, fn)
}

// Rollback runs registered undo actions in reverse order.
func (j *Journal) Rollback() {
	j.mu.Lock()
	undo := j.undo
	j.undo = nil
	j.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

// RecordUndo registers fn on the journal in ctx. Outside a unit of work it is a no-op.
func RecordUndo(ctx context.Context, fn func()) {
	if j, ok := JournalFrom(ctx); ok {
		j.OnRollback(fn)
	}
}
