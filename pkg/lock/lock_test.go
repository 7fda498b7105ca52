package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/zenyx/dbkeeper/pkg/cmd/testutil"
	"github.com/zenyx/dbkeeper/pkg/lock"
)

func TestAdvisory_ID(t *testing.T) {
	a := lock.NewAdvisory(nil, "dbkeeper")
	require.Equal(t, "dbkeeper", a.Key())
	require.Positive(t, a.ID())
	require.Equal(t, a.ID(), lock.NewAdvisory(nil, "dbkeeper").ID())
	require.NotEqual(t, a.ID(), lock.NewAdvisory(nil, "other").ID())
}

func TestAdvisory_Acquire(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	a := lock.NewAdvisory(db, "dbkeeper")

	mock.ExpectExec("SELECT pg_advisory_lock($1)").
		WithArgs(a.ID()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT pg_advisory_unlock($1)").
		WithArgs(a.ID()).
		WillReturnRows(sqlmock.NewRows([]string{"released"}).AddRow(true))

	release, err := a.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisory_AcquireFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	a := lock.NewAdvisory(db, "dbkeeper")
	mock.ExpectExec("SELECT pg_advisory_lock($1)").
		WithArgs(a.ID()).
		WillReturnError(errors.New("canceling statement due to statement timeout"))

	_, err = a.Acquire(context.Background())
	require.ErrorContains(t, err, "failed to acquire advisory lock dbkeeper")
}

func TestAdvisory_ReleaseNotHeld(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	a := lock.NewAdvisory(db, "dbkeeper")
	mock.ExpectExec("SELECT pg_advisory_lock($1)").
		WithArgs(a.ID()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT pg_advisory_unlock($1)").
		WithArgs(a.ID()).
		WillReturnRows(sqlmock.NewRows([]string{"released"}).AddRow(false))

	release, err := a.Acquire(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, release(context.Background()), lock.ErrNotHeld)
}

func TestAdvisory_TryAcquire(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	a := lock.NewAdvisory(db, "dbkeeper")
	mock.ExpectQuery("SELECT pg_try_advisory_lock($1)").
		WithArgs(a.ID()).
		WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(false))

	release, ok, err := a.TryAcquire(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, release)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisory_Postgres(t *testing.T) {
	client := testutil.OpenPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	first := lock.NewAdvisory(client.DB(), "dbkeeper")
	release, err := first.Acquire(ctx)
	require.NoError(t, err)

	// a second session cannot take it while it is held
	_, ok, err := lock.NewAdvisory(client.DB(), "dbkeeper").TryAcquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, release(ctx))

	again, ok, err := lock.NewAdvisory(client.DB(), "dbkeeper").TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, again(ctx))
}
