package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"github.com/zenyx/dbkeeper/pkg/config"
)

// rehash creates a CLI command for regenerating the sum file for all
// SQL-file migrations.
//
// Commands that load migrations refuse to run when a file no longer matches
// the sum file. Rehash accepts the current files as the new baseline, which
// is what you want after editing a migration that has not been applied
// anywhere yet.
//
// Example usage:
//
//	dbkeeper rehash
func rehash(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "rehash",
		Usage: "Regenerate the sum file for all migrations",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			proj := newProject(cfg)
			migrationsDir := proj.MigrationsDir()

			if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
				return errors.Errorf("migrations directory does not exist: %s", migrationsDir)
			}

			sum, err := proj.Rehash()
			if err != nil {
				return errors.Wrap(err, "failed to rehash migrations")
			}

			fmt.Fprintf(cmd.Root().Writer, "Successfully rehashed %d migration(s) and updated sum file\n", sum.Files())
			return nil
		},
	}
}
