package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
	"github.com/urfave/cli/v3"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/executor"
)

// status creates the migrate:status command.
//
// The command lists every known unit with its state and batch, plus any
// ledger rows whose unit is no longer known. It never takes the advisory
// lock and never fails because of missing units.
//
// Example usage:
//
//	dbkeeper migrate:status --dsn postgres://localhost:5432/bots
func status(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate:status",
		Usage: "Show migration status",
		Description: `List every migration unit with whether it has been applied, in which
batch, and when. Ledger rows for units that are no longer known are listed
as missing; migrate and migrate:rollback refuse to run until they are
resolved.`,
		Flags: connectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, cfg, false, func(ctx context.Context, s *session) error {
				units, err := s.exec.Status(ctx)
				if err != nil {
					return err
				}

				printStatus(cmd.Root().Writer, units)
				return nil
			})
		},
	}
}

func printStatus(w io.Writer, units []executor.UnitStatus) {
	if len(units) == 0 {
		fmt.Fprintln(w, "No migrations found.")
		return
	}

	var applied, pending, missing int

	table := uitable.New()
	table.MaxColWidth = 80
	table.RightAlign(2)
	table.AddRow("MIGRATION", "STATE", "BATCH", "EXECUTED")

	for _, u := range units {
		batch, executed := "", ""
		switch u.State {
		case executor.StateApplied:
			applied++
		case executor.StatePending:
			pending++
		case executor.StateMissing:
			missing++
		}

		if u.Batch > 0 {
			batch = strconv.Itoa(u.Batch)
			executed = humanize.Time(u.ExecutedAt)
		}

		table.AddRow(u.Name, string(u.State), batch, executed)
	}

	fmt.Fprintln(w, table)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total migrations: %d\n", len(units))
	fmt.Fprintf(w, "✅ Applied: %d\n", applied)
	fmt.Fprintf(w, "⏳ Pending: %d\n", pending)

	if missing > 0 {
		fmt.Fprintf(w, "❗ Missing: %d\n", missing)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "💡 Ledger rows reference unknown migrations; restore their files before migrating")
		return
	}

	if pending > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "💡 Run 'dbkeeper migrate' to apply pending migrations")
	}
}
