package txn_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/zenyx/dbkeeper/pkg/txn"
)

func newManager(t *testing.T) (*txn.Manager, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return txn.New(conn), mock
}

func TestManager_BeginCommit(t *testing.T) {
	ctx := context.Background()
	tm, mock := newManager(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, tm.Begin(ctx))
	require.Equal(t, 1, tm.Depth())
	require.True(t, tm.InTransaction())

	committed, err := tm.Commit(ctx)
	require.NoError(t, err)
	require.True(t, committed)
	require.Equal(t, 0, tm.Depth())
	require.False(t, tm.InTransaction())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_NoActiveTransaction(t *testing.T) {
	ctx := context.Background()
	tm, mock := newManager(t)

	committed, err := tm.Commit(ctx)
	require.ErrorIs(t, err, txn.ErrNoActiveTransaction)
	require.False(t, committed)

	require.ErrorIs(t, tm.Rollback(ctx), txn.ErrNoActiveTransaction)
	require.Equal(t, 0, tm.Depth())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_NestedCommit(t *testing.T) {
	ctx := context.Background()
	tm, mock := newManager(t)

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT LEVEL1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SAVEPOINT LEVEL2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RELEASE SAVEPOINT LEVEL2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RELEASE SAVEPOINT LEVEL1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, tm.Begin(ctx))
	require.NoError(t, tm.Begin(ctx))
	require.NoError(t, tm.Begin(ctx))
	require.Equal(t, 3, tm.Depth())

	for range 3 {
		committed, err := tm.Commit(ctx)
		require.NoError(t, err)
		require.True(t, committed)
	}

	require.Equal(t, 0, tm.Depth())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_InnerRollbackForcesOuterRollback(t *testing.T) {
	ctx := context.Background()
	tm, mock := newManager(t)

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT LEVEL1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ROLLBACK TO SAVEPOINT LEVEL1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	require.NoError(t, tm.Begin(ctx))
	require.NoError(t, tm.Begin(ctx))
	require.NoError(t, tm.Rollback(ctx))
	require.Equal(t, 1, tm.Depth())

	committed, err := tm.Commit(ctx)
	require.NoError(t, err)
	require.False(t, committed)
	require.Equal(t, 0, tm.Depth())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_PendingRollbackClearedByNextBegin(t *testing.T) {
	ctx := context.Background()
	tm, mock := newManager(t)

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT LEVEL1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ROLLBACK TO SAVEPOINT LEVEL1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, tm.Begin(ctx))
	require.NoError(t, tm.Begin(ctx))
	require.NoError(t, tm.Rollback(ctx))
	require.NoError(t, tm.Rollback(ctx))

	require.NoError(t, tm.Begin(ctx))
	committed, err := tm.Commit(ctx)
	require.NoError(t, err)
	require.True(t, committed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_BeginFailureLeavesDepth(t *testing.T) {
	ctx := context.Background()
	tm, mock := newManager(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := tm.Begin(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to begin transaction")
	require.Equal(t, 0, tm.Depth())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_SavepointFailureLeavesDepth(t *testing.T) {
	ctx := context.Background()
	tm, mock := newManager(t)

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT LEVEL1").WillReturnError(errors.New("boom"))

	require.NoError(t, tm.Begin(ctx))
	err := tm.Begin(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "LEVEL1")
	require.Equal(t, 1, tm.Depth())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_RoutesStatementsThroughTransaction(t *testing.T) {
	ctx := context.Background()
	tm, mock := newManager(t)

	mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "t" VALUES (1)`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT "id" FROM "t"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectRollback()

	_, err := tm.ExecContext(ctx, "SELECT 1")
	require.NoError(t, err)

	require.NoError(t, tm.Begin(ctx))
	_, err = tm.ExecContext(ctx, `INSERT INTO "t" VALUES (1)`)
	require.NoError(t, err)

	var id int
	require.NoError(t, tm.QueryRowContext(ctx, `SELECT "id" FROM "t"`).Scan(&id))
	require.Equal(t, 1, id)

	require.NoError(t, tm.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_Transaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		tm, mock := newManager(t)
		mock.ExpectBegin()
		mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		committed, err := tm.Transaction(ctx, func(ctx context.Context) error {
			_, err := tm.ExecContext(ctx, "SELECT 1")
			return err
		})
		require.NoError(t, err)
		require.True(t, committed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		tm, mock := newManager(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		committed, err := tm.Transaction(ctx, func(context.Context) error { return boom })
		require.ErrorIs(t, err, boom)
		require.False(t, committed)
		require.Equal(t, 0, tm.Depth())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested failure taints outer scope", func(t *testing.T) {
		tm, mock := newManager(t)
		mock.ExpectBegin()
		mock.ExpectExec("SAVEPOINT LEVEL1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("ROLLBACK TO SAVEPOINT LEVEL1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		committed, err := tm.Transaction(ctx, func(ctx context.Context) error {
			_, inner := tm.Transaction(ctx, func(context.Context) error {
				return errors.New("inner failure")
			})
			require.Error(t, inner)
			return nil
		})
		require.NoError(t, err)
		require.False(t, committed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestManager_CanceledContextCountsAsRolledBack(t *testing.T) {
	tm, mock := newManager(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tm.Begin(ctx))
	cancel()

	// database/sql may already have closed the transaction
	err := tm.Rollback(context.Background())
	require.NoError(t, err)
	require.False(t, errors.Is(err, sql.ErrTxDone))
	require.Equal(t, 0, tm.Depth())
}
