package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/executor"
)

// migrate creates the migrate command for applying pending migrations.
//
// Pending units are applied in name order as one new batch. Each unit runs in
// its own transaction together with its ledger row, so a failing unit leaves
// no trace while the units before it stay applied.
//
// Command flags:
//   - --dry-run: List pending units without applying them
//   - the shared connection flags (--dsn, --driver, --table, --timeout,
//     --no-lock, --no-builtin)
//
// Example usage:
//
//	# Apply all pending migrations
//	dbkeeper migrate --dsn postgres://localhost:5432/bots
//
//	# Show what would be applied
//	dbkeeper migrate --dry-run
func migrate(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending migrations",
		Description: `Apply every pending migration as a new batch.

Migrations are the compiled-in bot platform units followed by the SQL files in
the configured migrations directory, ordered by name. The ledger table is
created on first use. The first failing unit stops the run: it is rolled back,
the error names it, and the command exits non-zero.`,
		Flags: append(connectionFlags(), &cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Show what would be executed without applying changes",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer
			dryRun := cmd.Bool("dry-run")

			return withSession(ctx, cmd, cfg, !dryRun, func(ctx context.Context, s *session) error {
				if dryRun {
					return runDryRun(ctx, w, s.exec)
				}

				slog.Info("Starting migration execution")
				report, err := s.exec.Migrate(ctx)
				return reportResults(w, report, err, "All migrations are up to date.")
			})
		},
	}
}

// rollback creates the migrate:rollback command, reverting the last batch.
//
// Example usage:
//
//	dbkeeper migrate:rollback
func rollback(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate:rollback",
		Usage: "Revert the last batch of migrations",
		Description: `Revert every unit of the most recent batch, newest first, removing each
ledger row together with its revert. Older batches are untouched.`,
		Flags: connectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, cfg, true, func(ctx context.Context, s *session) error {
				report, err := s.exec.Rollback(ctx)
				return reportResults(cmd.Root().Writer, report, err, "Nothing to roll back.")
			})
		},
	}
}

// reset creates the migrate:reset command, reverting every batch.
//
// Example usage:
//
//	dbkeeper migrate:reset
func reset(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate:reset",
		Usage: "Revert every applied migration",
		Description: `Roll back batch after batch, newest first, until the ledger is empty.
A failing revert stops the command; batches already reverted stay reverted.`,
		Flags: connectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, cfg, true, func(ctx context.Context, s *session) error {
				report, err := s.exec.Reset(ctx)
				return reportResults(cmd.Root().Writer, report, err, "Nothing to roll back.")
			})
		},
	}
}

// refresh creates the migrate:refresh command, resetting and migrating again.
//
// Example usage:
//
//	dbkeeper migrate:refresh --no-builtin
func refresh(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate:refresh",
		Usage: "Revert every migration and apply them again",
		Description: `Run migrate:reset followed by migrate. The command fails if either phase
fails, and the error says which.`,
		Flags: connectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, cfg, true, func(ctx context.Context, s *session) error {
				report, err := s.exec.Refresh(ctx)
				return reportResults(cmd.Root().Writer, report, err, "Nothing to refresh.")
			})
		},
	}
}

func runDryRun(ctx context.Context, w io.Writer, exec *executor.Executor) error {
	pending, err := exec.Pending(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Dry run: showing migrations that would be executed")
	fmt.Fprintln(w)

	for _, unit := range pending {
		fmt.Fprintf(w, "  ▶  %s\n", unit.Name)
	}

	if len(pending) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d migrations would be executed\n", len(pending))
	return nil
}

// reportResults prints one line per unit result followed by a summary, and
// returns runErr so the command exits non-zero on failure.
func reportResults(w io.Writer, report *executor.Report, runErr error, upToDate string) error {
	if report == nil {
		return runErr
	}

	var successCount, failedCount, skippedCount int
	for _, result := range report.Results {
		switch result.Status {
		case executor.StatusSuccess:
			verb := "applied"
			if result.Op == executor.OpRevert {
				verb = "reverted"
			}
			fmt.Fprintf(w, "  ✅ %s %s in %v (batch %d)\n", result.Name, verb, result.ExecutionTime, result.Batch)
			successCount++

		case executor.StatusFailed:
			fmt.Fprintf(w, "  ❌ %s failed during %s after %v\n", result.Name, result.Op, result.ExecutionTime)
			if result.Error != nil {
				fmt.Fprintf(w, "     Error: %v\n", result.Error)
			}
			failedCount++

		case executor.StatusSkipped:
			fmt.Fprintf(w, "  ⏭  %s (skipped)\n", result.Name)
			skippedCount++
		}
	}

	if len(report.Results) == 0 && runErr == nil {
		fmt.Fprintln(w, upToDate)
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d successful, %d failed, %d skipped\n", successCount, failedCount, skippedCount)

	return runErr
}
