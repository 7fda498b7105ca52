package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/zenyx/dbkeeper/pkg/cmd/testutil"
	"github.com/zenyx/dbkeeper/pkg/consts"
	"github.com/zenyx/dbkeeper/pkg/executor"
	"github.com/zenyx/dbkeeper/pkg/migrator"
)

func TestReportResults(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var buf bytes.Buffer
		report := &executor.Report{
			Batch: 2,
			Results: []*executor.ExecutionResult{
				{Name: "001_create_users", Batch: 2, Op: executor.OpApply, Status: executor.StatusSuccess, ExecutionTime: time.Millisecond},
				{Name: "002_create_bots", Batch: 2, Op: executor.OpApply, Status: executor.StatusSuccess, ExecutionTime: time.Millisecond},
			},
		}

		require.NoError(t, reportResults(&buf, report, nil, "up to date"))
		require.Contains(t, buf.String(), "✅ 001_create_users applied in 1ms (batch 2)")
		require.Contains(t, buf.String(), "Summary: 2 successful, 0 failed, 0 skipped")
		require.NotContains(t, buf.String(), "up to date")
	})

	t.Run("failure", func(t *testing.T) {
		var buf bytes.Buffer
		cause := errors.New("relation \"users\" already exists")
		runErr := &executor.MigrationFailedError{Unit: "002_create_bots", Op: executor.OpRevert, Err: cause}
		report := &executor.Report{
			Batch: 1,
			Results: []*executor.ExecutionResult{
				{Name: "003_create_plans", Op: executor.OpRevert, Status: executor.StatusSuccess},
				{Name: "002_create_bots", Op: executor.OpRevert, Status: executor.StatusFailed, Error: cause},
				{Name: "001_create_users", Op: executor.OpRevert, Status: executor.StatusSkipped},
			},
		}

		err := reportResults(&buf, report, runErr, "up to date")
		require.Equal(t, runErr, err)

		out := buf.String()
		require.Contains(t, out, "✅ 003_create_plans reverted")
		require.Contains(t, out, "❌ 002_create_bots failed during revert")
		require.Contains(t, out, "Error: relation \"users\" already exists")
		require.Contains(t, out, "⏭  001_create_users (skipped)")
		require.Contains(t, out, "Summary: 1 successful, 1 failed, 1 skipped")
	})

	t.Run("nothing to do", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, reportResults(&buf, &executor.Report{}, nil, "All migrations are up to date."))
		require.Equal(t, "All migrations are up to date.\n", buf.String())
	})

	t.Run("no report", func(t *testing.T) {
		var buf bytes.Buffer
		runErr := errors.New("boom")
		require.Equal(t, runErr, reportResults(&buf, nil, runErr, ""))
		require.Empty(t, buf.String())
	})
}

func TestMigrateCommand_WithoutDatabase(t *testing.T) {
	t.Run("requires a dsn", func(t *testing.T) {
		t.Setenv("DBKEEPER_DSN", "")
		fixture := testutil.TestProject(t).WithMigrations(testutil.MinimalMigrations())

		_, err := testutil.RunCommand(t, migrate(fixture.Config))
		require.ErrorIs(t, err, ErrNoDSN)
	})

	t.Run("refuses edited migrations", func(t *testing.T) {
		fixture := testutil.TestProject(t).WithMigrations(testutil.MinimalMigrations())

		path := filepath.Join(fixture.GetMigrationsDir(), "20250101120500_create_bots.sql")
		require.NoError(t, os.WriteFile(path, []byte("-- +migrate Up\nSELECT 1;\n"), consts.ModeFile))

		_, err := testutil.RunCommand(t, migrate(fixture.Config), "--dsn", "postgres://unused")
		require.ErrorIs(t, err, migrator.ErrSumMismatch)
		require.Contains(t, err.Error(), "20250101120500_create_bots.sql")
	})
}
