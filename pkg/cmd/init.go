package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/consts"
	"github.com/zenyx/dbkeeper/pkg/project"
)

// initCmd creates the init command, scaffolding dbkeeper.yaml and the
// migrations directory in the project directory. Existing files are kept.
//
// Example usage:
//
//	dbkeeper init
//	dbkeeper --dir /srv/bots init --dsn postgres://bots@localhost/bots --table schema_migrations
func initCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new dbkeeper project",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "connection string to write into a new dbkeeper.yaml",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:  "table",
				Usage: "ledger table to write into a new dbkeeper.yaml",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return errors.Wrap(err, "failed to get current working directory")
			}

			proj := project.New(project.ProjectParams{Dir: dir})
			err = proj.Initialize(project.InitOptions{
				DSN:   cmd.String("dsn"),
				Table: cmd.String("table"),
			})
			if err != nil {
				return errors.Wrap(err, "failed to initialize project")
			}

			// Later commands in the same process see the new configuration.
			*cfg = *proj.Config()

			fmt.Fprintf(cmd.Root().Writer, "Initialized dbkeeper project in %s\n", dir)
			fmt.Fprintf(cmd.Root().Writer, "  config:     %s\n", consts.DefaultConfigFile)
			fmt.Fprintf(cmd.Root().Writer, "  migrations: %s\n", cfg.Migrations.Dir)
			return nil
		},
	}
}
