package cmd

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"github.com/zenyx/dbkeeper/pkg/botschema"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/database"
	"github.com/zenyx/dbkeeper/pkg/executor"
	"github.com/zenyx/dbkeeper/pkg/ledger"
	"github.com/zenyx/dbkeeper/pkg/lock"
	"github.com/zenyx/dbkeeper/pkg/migrator"
	"github.com/zenyx/dbkeeper/pkg/project"
	"github.com/zenyx/dbkeeper/pkg/txn"
)

// session is everything a database command needs: a pool, the dedicated
// connection migrations run on, and optionally the advisory lock.
type session struct {
	client  *database.Client
	conn    *sql.Conn
	exec    *executor.Executor
	release lock.Release
}

// withSession resolves settings, loads the registry, and connects. When
// mutating is set and locking is enabled, fn runs while the advisory lock
// is held. Everything is released before withSession returns.
func withSession(
	ctx context.Context,
	cmd *cli.Command,
	cfg *config.Config,
	mutating bool,
	fn func(context.Context, *session) error,
) error {
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

	sess, err := openSession(ctx, s, registry, mutating)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to close database session", "err", err)
		}
	}()

	return fn(ctx, sess)
}

func newProject(cfg *config.Config) *project.Project {
	return project.New(project.ProjectParams{Dir: ".", Config: cfg})
}

// loadRegistry combines the compiled-in units (unless disabled) with the
// SQL-file units of the project. The sum file must match the files.
func loadRegistry(cfg *config.Config, proj *project.Project) (*migrator.Registry, error) {
	var units []migrator.Unit
	if cfg.UseBuiltin() {
		units = append(units, botschema.Units()...)
	}

	dir, err := proj.LoadMigrations()
	if err != nil {
		return nil, err
	}
	units = append(units, dir.Units...)

	registry, err := migrator.NewRegistry(units...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build migration registry")
	}

	slog.Debug("Loaded migration registry", "units", registry.Len(), "sql_files", len(dir.Units))
	return registry, nil
}

func openSession(ctx context.Context, cfg *config.Config, registry *migrator.Registry, mutating bool) (*session, error) {
	if cfg.Database.DSN == "" {
		return nil, ErrNoDSN
	}

	client, err := database.NewClient(ctx, database.Options{
		Driver:         cfg.Database.Driver,
		DSN:            cfg.Database.DSN,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to PostgreSQL")
	}

	sess := &session{client: client}

	version, err := client.Version(ctx)
	if err != nil {
		_ = sess.Close(ctx)
		return nil, err
	}

	if !version.Supported() {
		_ = sess.Close(ctx)
		return nil, errors.Errorf("PostgreSQL %s is not supported (9.6 or newer required)", version)
	}

	slog.Debug("Connected to PostgreSQL", "version", version.String())

	if mutating && cfg.LockEnabled() {
		sess.release, err = acquireLock(ctx, lock.NewAdvisory(client.DB(), cfg.Lock.Key))
		if err != nil {
			_ = sess.Close(ctx)
			return nil, err
		}
	}

	sess.conn, err = client.Conn(ctx)
	if err != nil {
		_ = sess.Close(ctx)
		return nil, err
	}

	tm := txn.New(sess.conn)
	sess.exec = executor.New(executor.Config{
		Txn:      tm,
		Registry: registry,
		Store:    ledger.New(tm, cfg.Migrations.Table),
		Logger:   slog.Default(),
	})

	return sess, nil
}

// acquireLock tries the lock once and then blocks, so a waiting process
// says what it is waiting for.
func acquireLock(ctx context.Context, l *lock.Advisory) (lock.Release, error) {
	release, ok, err := l.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}

	if ok {
		return release, nil
	}

	slog.Info("Waiting for migration lock held by another process", "key", l.Key())
	return l.Acquire(ctx)
}

// Close releases the lock, the connection, and the pool, in that order.
func (s *session) Close(ctx context.Context) error {
	var errs []error

	if s.release != nil {
		errs = append(errs, s.release(ctx))
	}

	if s.conn != nil {
		errs = append(errs, s.conn.Close())
	}

	errs = append(errs, s.client.Close())

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
