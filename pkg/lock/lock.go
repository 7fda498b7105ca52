package lock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"log/slog"

	"github.com/pkg/errors"
)

// ErrNotHeld is returned by a release function when the server reports the
// lock was not held by the session, e.g. after a reconnect.
var ErrNotHeld = errors.New("advisory lock was not held")

type (
	// Pool hands out dedicated connections. *sql.DB satisfies it.
	Pool interface {
		Conn(context.Context) (*sql.Conn, error)
	}

	// Release unlocks a lock obtained from Acquire.
	Release func(context.Context) error

	// Advisory serializes migration runs across processes with a PostgreSQL
	// session-level advisory lock.
	//
	// The lock is held on its own pooled connection, separate from the one the
	// executor runs migrations on, so the executor's transactions never
	// release it.
	//
	// Example usage:
	//
	//	release, err := lock.NewAdvisory(client.DB(), "dbkeeper").Acquire(ctx)
	//	if err != nil {
	//		return err
	//	}
	//	defer release(context.WithoutCancel(ctx))
	Advisory struct {
		pool   Pool
		key    string
		logger *slog.Logger
	}
)

// NewAdvisory returns a lock named key.
func NewAdvisory(pool Pool, key string) *Advisory {
	return &Advisory{pool: pool, key: key, logger: slog.Default()}
}

// Key returns the lock name.
func (a *Advisory) Key() string {
	return a.key
}

// ID returns the int64 the key hashes to (FNV-1a, sign bit cleared).
func (a *Advisory) ID() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(a.key))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}

// Acquire blocks until the lock is obtained or ctx is done.
func (a *Advisory) Acquire(ctx context.Context) (Release, error) {
	conn, err := a.pool.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire lock connection")
	}

	a.logger.Debug("Waiting for advisory lock", "key", a.key, "id", a.ID())
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", a.ID()); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "failed to acquire advisory lock %s", a.key)
	}

	return a.release(conn), nil
}

// TryAcquire obtains the lock without waiting. ok is false when another
// session holds it.
func (a *Advisory) TryAcquire(ctx context.Context) (Release, bool, error) {
	conn, err := a.pool.Conn(ctx)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to acquire lock connection")
	}

	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", a.ID()).Scan(&ok); err != nil {
		_ = conn.Close()
		return nil, false, errors.Wrapf(err, "failed to acquire advisory lock %s", a.key)
	}

	if !ok {
		_ = conn.Close()
		return nil, false, nil
	}

	return a.release(conn), true, nil
}

func (a *Advisory) release(conn *sql.Conn) Release {
	return func(ctx context.Context) error {
		defer func() { _ = conn.Close() }()

		var released bool
		if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", a.ID()).Scan(&released); err != nil {
			return errors.Wrapf(err, "failed to release advisory lock %s", a.key)
		}

		if !released {
			return errors.Wrap(ErrNotHeld, a.key)
		}
		return nil
	}
}
