package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/docker"
	"github.com/zenyx/dbkeeper/pkg/utils"
)

// verify creates the verify command, which proves every migration applies
// and reverts cleanly against a throwaway PostgreSQL container.
//
// The command runs migrate, migrate:reset, and migrate again on an empty
// database. A unit whose revert does not undo its apply usually fails the
// second migrate. Docker must be available.
//
// Example usage:
//
//	dbkeeper verify
//	dbkeeper verify --postgres-version 17 --no-builtin
func verify(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Apply, reset, and re-apply all migrations on a disposable PostgreSQL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "postgres-version",
				Usage: "PostgreSQL image version to verify against",
				Value: docker.DefaultPostgresVersion,
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "maximum time the command may run",
			},
			&cli.BoolFlag{
				Name:  "no-builtin",
				Usage: "only verify SQL-file migrations, skipping the compiled-in units",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runVerify(ctx, cmd, cfg)
		},
	}
}

func runVerify(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
	s, err := settings(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	registry, err := loadRegistry(s, newProject(s))
	if err != nil {
		return err
	}

	container := docker.NewWithOptions(docker.DockerOptions{Version: cmd.String("postgres-version")})
	slog.Info("Starting PostgreSQL container", "image", container.Image())

	if err := container.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := container.Stop(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to stop PostgreSQL container", "err", err)
		}
	}()

	dsn, err := container.GetDSN(ctx)
	if err != nil {
		return err
	}

	// The database is private to this run.
	s.Database.DSN = dsn
	s.Lock.Enabled = utils.Ptr(false)

	sess, err := openSession(ctx, s, registry, false)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close(context.WithoutCancel(ctx)) }()

	w := cmd.Root().Writer
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"migrate", func(ctx context.Context) error {
			report, err := sess.exec.Migrate(ctx)
			return reportResults(w, report, err, "No migrations to verify.")
		}},
		{"migrate:reset", func(ctx context.Context) error {
			report, err := sess.exec.Reset(ctx)
			return reportResults(w, report, err, "Nothing to roll back.")
		}},
		{"migrate (again)", func(ctx context.Context) error {
			report, err := sess.exec.Migrate(ctx)
			return reportResults(w, report, err, "No migrations to verify.")
		}},
	}

	for _, step := range steps {
		fmt.Fprintf(w, "==> %s\n", step.name)
		if err := step.run(ctx); err != nil {
			return errors.Wrapf(err, "verification failed during %s", step.name)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "✅ Verified %d migration(s) against %s\n", registry.Len(), container.Image())
	return nil
}
