package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"github.com/zenyx/dbkeeper/pkg/config"
)

// makeMigration creates the make:migration command, scaffolding a
// timestamped SQL-file unit with empty Up and Down sections.
//
// Example usage:
//
//	dbkeeper make:migration add vip flag to users
//	# db/migrations/20250101120000_add_vip_flag_to_users.sql
func makeMigration(cfg *config.Config) *cli.Command {
	return makeMigrationAt(cfg, time.Now)
}

func makeMigrationAt(cfg *config.Config, clock func() time.Time) *cli.Command {
	return &cli.Command{
		Name:      "make:migration",
		Usage:     "Create a new SQL migration file",
		ArgsUsage: "<name>",
		Description: `Write <timestamp>_<name>.sql to the migrations directory with empty
-- +migrate Up and -- +migrate Down sections, and update the sum file.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := strings.Join(cmd.Args().Slice(), " ")
			if strings.TrimSpace(name) == "" {
				return errors.New("a migration name is required")
			}

			path, err := newProject(cfg).NewMigration(name, clock())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Root().Writer, "Created migration %s\n", path)
			return nil
		},
	}
}
