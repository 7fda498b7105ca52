package cmd

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/database"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Config     *config.Config
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates and executes the main dbkeeper CLI application. It registers
// an fx start hook that runs the app with p.Args and shuts the fx
// application down with exit code 1 on error and 0 otherwise.
//
// Global Flags:
//   - --dir, -d: Project directory (defaults to current directory)
//   - --config, -c: Configuration file (env DBKEEPER_CONFIG)
//   - --verbose, -v: Debug logging
//
// Before any command runs, the process changes to --dir and, when the
// configuration file exists there, loads it into the shared *config.Config
// every command was constructed with.
//
// Example usage:
//
//	dbkeeper migrate
//	dbkeeper --dir /srv/bots migrate:status --dsn postgres://localhost:5432/bots
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := &cli.Command{
		Name:  "dbkeeper",
		Usage: "Transactional PostgreSQL schema migrations",
		Description: `dbkeeper applies and reverts ordered schema-change units against a
PostgreSQL database. Every unit runs in its own transaction together with its
ledger row, units applied together form a batch, and rollbacks revert the
most recent batch.`,
		Version: p.Version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "the project directory",
				Value:       ".",
				DefaultText: "Current directory",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the dbkeeper config file, relative to the project directory",
				Sources: cli.EnvVars(config.EnvConfigFile),
				Value:   config.Path(),
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}

			if err := os.Chdir(cmd.String("dir")); err != nil {
				return ctx, errors.Wrap(err, "failed to change to project directory")
			}

			return ctx, loadProjectConfig(cmd.String("config"), p.Config)
		},
		Commands: sortCommands(p.Commands),
	}

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			if database.IsConnectionError(err) {
				slog.Error("Could not reach PostgreSQL; check --dsn or DBKEEPER_DSN")
			}
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

// loadProjectConfig replaces *cfg with the file at path when it exists.
func loadProjectConfig(path string, cfg *config.Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "failed to stat %s", path)
	}

	loaded, err := config.LoadConfigFile(path)
	if err != nil {
		return err
	}

	*cfg = *loaded
	return nil
}

// sortCommands orders commands by name for help output; fx value groups
// have no defined order.
func sortCommands(cmds []*cli.Command) []*cli.Command {
	sorted := slices.Clone(cmds)
	slices.SortFunc(sorted, func(a, b *cli.Command) int { return cmp.Compare(a.Name, b.Name) })
	return sorted
}
