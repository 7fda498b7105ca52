package txn

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoActiveTransaction is returned by Commit and Rollback when no
// transaction scope is open.
var ErrNoActiveTransaction = errors.New("no active transaction")

type (
	// Conn is the connection handle a Manager wraps. *sql.Conn satisfies it.
	Conn interface {
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
		ExecContext(context.Context, string, ...any) (sql.Result, error)
		QueryContext(context.Context, string, ...any) (*sql.Rows, error)
		QueryRowContext(context.Context, string, ...any) *sql.Row
	}

	// Manager emulates nested transactions on a single connection.
	//
	// The outermost Begin opens a real database transaction. Every nested Begin
	// issues a savepoint named after the depth it was opened at (LEVEL1,
	// LEVEL2, ...). Committing a nested scope releases its savepoint, rolling
	// it back restores the savepoint and marks the whole transaction as
	// tainted: the eventual outermost Commit then performs a full rollback and
	// reports committed=false instead of silently persisting a partially
	// failed unit of work.
	//
	// All statements issued through the Manager (ExecContext, QueryContext,
	// QueryRowContext) run inside the open transaction when there is one, so
	// collaborators such as the schema builder and the ledger share the same
	// atomic scope.
	//
	// A Manager is not safe for concurrent use. It owns its connection for the
	// duration of a top-level Begin...Commit/Rollback span.
	//
	// Example usage:
	//
	//	conn, _ := db.Conn(ctx)
	//	tm := txn.New(conn)
	//
	//	if err := tm.Begin(ctx); err != nil {
	//		return err
	//	}
	//
	//	if _, err := tm.ExecContext(ctx, `CREATE TABLE "t" ("id" BIGSERIAL PRIMARY KEY)`); err != nil {
	//		_ = tm.Rollback(ctx)
	//		return err
	//	}
	//
	//	committed, err := tm.Commit(ctx)
	Manager struct {
		conn            Conn
		tx              *sql.Tx
		depth           int
		pendingRollback bool
	}
)

// New returns a Manager wrapping conn.
func New(conn Conn) *Manager {
	return &Manager{conn: conn}
}

// Depth returns the current nesting depth. Zero means no transaction is open.
func (m *Manager) Depth() int {
	return m.depth
}

// InTransaction reports whether a transaction scope is open.
func (m *Manager) InTransaction() bool {
	return m.depth > 0
}

// Begin opens a new scope. At depth zero it starts a real transaction,
// otherwise it issues SAVEPOINT LEVEL<depth>. The depth is only incremented
// when the statement succeeds.
func (m *Manager) Begin(ctx context.Context) error {
	if m.depth == 0 {
		tx, err := m.conn.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "failed to begin transaction")
		}

		m.tx = tx
		m.pendingRollback = false
		m.depth++
		return nil
	}

	name := savepoint(m.depth)
	if _, err := m.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return errors.Wrapf(err, "failed to create savepoint %s", name)
	}

	m.depth++
	return nil
}

// Commit closes the innermost scope.
//
// When the outermost scope closes, the transaction is committed unless a
// nested scope was rolled back, in which case it is rolled back and committed
// is false. Closing a nested scope releases its savepoint and always reports
// committed=true; the final word belongs to the outermost Commit.
func (m *Manager) Commit(ctx context.Context) (committed bool, err error) {
	if m.depth == 0 {
		return false, ErrNoActiveTransaction
	}

	m.depth--
	if m.depth > 0 {
		name := savepoint(m.depth)
		if _, err := m.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
			return false, errors.Wrapf(err, "failed to release savepoint %s", name)
		}
		return true, nil
	}

	tx := m.tx
	m.tx = nil

	if m.pendingRollback {
		m.pendingRollback = false
		if err := rollbackTx(tx); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "failed to commit transaction")
	}
	return true, nil
}

// Rollback closes the innermost scope, undoing its work.
//
// Rolling back the outermost scope aborts the whole transaction. Rolling back
// a nested scope restores its savepoint and forces the outermost Commit to
// roll back.
func (m *Manager) Rollback(ctx context.Context) error {
	if m.depth == 0 {
		return ErrNoActiveTransaction
	}

	m.depth--
	if m.depth > 0 {
		m.pendingRollback = true

		name := savepoint(m.depth)
		if _, err := m.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
			return errors.Wrapf(err, "failed to roll back to savepoint %s", name)
		}
		return nil
	}

	tx := m.tx
	m.tx = nil
	m.pendingRollback = false
	return rollbackTx(tx)
}

// Transaction runs fn inside a new scope. The scope is rolled back when fn
// returns an error and committed otherwise.
func (m *Manager) Transaction(ctx context.Context, fn func(context.Context) error) (bool, error) {
	if err := m.Begin(ctx); err != nil {
		return false, err
	}

	if err := fn(ctx); err != nil {
		if rbErr := m.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return false, errors.Wrapf(err, "rollback also failed: %v", rbErr)
		}
		return false, err
	}

	return m.Commit(ctx)
}

// ExecContext executes a statement in the open transaction, or directly on
// the connection when there is none.
func (m *Manager) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if m.tx != nil {
		return m.tx.ExecContext(ctx, query, args...)
	}
	return m.conn.ExecContext(ctx, query, args...)
}

// QueryContext runs a query in the open transaction, or directly on the
// connection when there is none.
func (m *Manager) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if m.tx != nil {
		return m.tx.QueryContext(ctx, query, args...)
	}
	return m.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query in the open transaction, or
// directly on the connection when there is none.
func (m *Manager) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if m.tx != nil {
		return m.tx.QueryRowContext(ctx, query, args...)
	}
	return m.conn.QueryRowContext(ctx, query, args...)
}

// rollbackTx aborts tx. database/sql already rolls back a transaction whose
// context was canceled, which surfaces here as sql.ErrTxDone.
func rollbackTx(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return errors.Wrap(err, "failed to roll back transaction")
	}
	return nil
}

func savepoint(depth int) string {
	return fmt.Sprintf("LEVEL%d", depth)
}
