// Package txn is the transaction manager: begin, commit,
// rollback, and named savepoints bound to a single borrowed connection,
// with a busy flag that rejects a second concurrent statement on the
// same transaction rather than silently interleaving them.
package txn

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ageclient/ageclient/internal/connpool"
	"github.com/ageclient/ageclient/internal/xerrors"
)

// Transaction is bound to exactly one connection for its whole
// lifetime. It is not safe to share across goroutines: the busy flag
// enforces that a transaction runs at most one statement at a time, but
// two goroutines racing to set it will get one TRANSACTION error
// ("transaction busy with another statement") rather than a silently
// corrupted interleaving.
type Transaction struct {
	mu   sync.Mutex
	busy bool
	done bool

	conn *connpool.Connection
	tx   pgx.Tx
}

// Begin starts a transaction on conn.
func Begin(ctx context.Context, conn *connpool.Connection) (*Transaction, error) {
	tx, err := conn.Raw().BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindTransaction, "begin transaction", err)
	}
	return &Transaction{conn: conn, tx: tx}, nil
}

func (t *Transaction) acquire() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return xerrors.New(xerrors.KindTransaction, "transaction already finished", nil, nil)
	}
	if t.busy {
		return xerrors.New(xerrors.KindTransaction, "transaction busy with another statement", nil, nil)
	}
	t.busy = true
	return nil
}

func (t *Transaction) release() {
	t.mu.Lock()
	t.busy = false
	t.mu.Unlock()
}

// Exec runs sql within the transaction. It goes through the pgx.Tx
// directly and does not update the owning connection's IDLE/ACTIVE/ERROR
// state.
func (t *Transaction) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if err := t.acquire(); err != nil {
		return pgconn.CommandTag{}, err
	}
	defer t.release()

	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return tag, xerrors.Wrap(connpool.ClassifyError(err), "execute statement", err)
	}
	return tag, nil
}

// Query runs sql within the transaction and returns rows.
func (t *Transaction) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()

	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, xerrors.Wrap(connpool.ClassifyError(err), "execute query", err)
	}
	return rows, nil
}

// QueryRow runs sql within the transaction and returns a single row.
func (t *Transaction) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if err := t.acquire(); err != nil {
		return errRow{err}
	}
	defer t.release()
	return t.tx.QueryRow(ctx, sql, args...)
}

// errRow lets QueryRow report a busy/done transaction through the
// normal pgx.Row.Scan error path instead of a separate return value.
type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

// Savepoint creates a named savepoint within the transaction.
func (t *Transaction) Savepoint(ctx context.Context, name string) error {
	_, err := t.Exec(ctx, fmt.Sprintf("SAVEPOINT %s", quoteIdent(name)))
	return err
}

// ReleaseSavepoint releases a named savepoint, folding it into the
// enclosing transaction.
func (t *Transaction) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := t.Exec(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", quoteIdent(name)))
	return err
}

// RollbackTo rolls the transaction back to a named savepoint without
// ending the transaction itself.
func (t *Transaction) RollbackTo(ctx context.Context, name string) error {
	_, err := t.Exec(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", quoteIdent(name)))
	return err
}

// Commit commits the transaction. It is an error to call Commit or
// Rollback twice.
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return xerrors.New(xerrors.KindTransaction, "transaction already finished", nil, nil)
	}
	t.done = true
	t.mu.Unlock()

	if err := t.tx.Commit(ctx); err != nil {
		return xerrors.Wrap(xerrors.KindTransaction, "commit transaction", err)
	}
	return nil
}

// Rollback rolls the whole transaction back.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return xerrors.New(xerrors.KindTransaction, "transaction already finished", nil, nil)
	}
	t.done = true
	t.mu.Unlock()

	if err := t.tx.Rollback(ctx); err != nil {
		return xerrors.Wrap(xerrors.KindTransaction, "rollback transaction", err)
	}
	return nil
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
