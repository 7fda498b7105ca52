package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/schema"
	"github.com/zenyx/dbkeeper/pkg/utils"
)

// ErrRecordNotFound is returned by DeleteByName when no row has the name.
var ErrRecordNotFound = errors.New("ledger record not found")

type (
	// DB is the statement surface the Store needs. Pass the executor's
	// *txn.Manager so ledger writes join the unit's transaction.
	DB interface {
		ExecContext(context.Context, string, ...any) (sql.Result, error)
		QueryContext(context.Context, string, ...any) (*sql.Rows, error)
		QueryRowContext(context.Context, string, ...any) *sql.Row
	}

	// Record is one applied migration unit.
	Record struct {
		// ID orders records by application.
		ID int64

		// Name is the unit name. Unique across the ledger.
		Name string

		// Batch groups the units applied by one migrate call. Rollback
		// reverts the highest batch.
		Batch int

		// ExecutedAt is when the unit's transaction wrote the record.
		ExecutedAt time.Time
	}

	// Store reads and writes the ledger table.
	//
	// Example usage:
	//
	//	store := ledger.New(tm, "migrations")
	//	if err := store.Ensure(ctx); err != nil {
	//		return err
	//	}
	//
	//	batch, err := store.MaxBatch(ctx)
	Store struct {
		db    DB
		table string
	}
)

// New returns a Store for table, issuing statements through db.
func New(db DB, table string) *Store {
	return &Store{db: db, table: table}
}

// Table returns the ledger table name.
func (s *Store) Table() string {
	return s.table
}

// HasTable reports whether the ledger table exists. Read-only callers use it
// to treat a fresh database as an empty ledger.
func (s *Store) HasTable(ctx context.Context) (bool, error) {
	return schema.NewBuilder(s.db).HasTable(ctx, s.table)
}

// Ensure creates the ledger table if it does not exist.
func (s *Store) Ensure(ctx context.Context) error {
	exists, err := s.HasTable(ctx)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	err = schema.NewBuilder(s.db).Create(ctx, s.table, func(bp *schema.Blueprint) {
		bp.ID()
		bp.String("name").Unique()
		bp.Integer("batch")
		bp.Timestamp("executed_at").UseCurrent()
	})
	return errors.Wrapf(err, "failed to create ledger table %s", s.table)
}

// AllNames returns every recorded unit name in application order.
func (s *Store) AllNames(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT "name" FROM %s ORDER BY "id"`, s.quotedTable())

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ledger names")
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan ledger name")
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate ledger names")
	}

	return names, nil
}

// All returns every record in application order.
func (s *Store) All(ctx context.Context) ([]*Record, error) {
	query := fmt.Sprintf(`SELECT "id", "name", "batch", "executed_at" FROM %s ORDER BY "id"`, s.quotedTable())
	return s.records(ctx, query)
}

// Insert records name as applied in batch at the given time.
func (s *Store) Insert(ctx context.Context, name string, batch int, at time.Time) error {
	query := fmt.Sprintf(`INSERT INTO %s ("name", "batch", "executed_at") VALUES ($1, $2, $3)`, s.quotedTable())

	if _, err := s.db.ExecContext(ctx, query, name, batch, at); err != nil {
		return errors.Wrapf(err, "failed to record %s", name)
	}
	return nil
}

// DeleteByName removes the record for name.
func (s *Store) DeleteByName(ctx context.Context, name string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE "name" = $1`, s.quotedTable())

	res, err := s.db.ExecContext(ctx, query, name)
	if err != nil {
		return errors.Wrapf(err, "failed to delete ledger record %s", name)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to delete ledger record %s", name)
	}

	if n == 0 {
		return errors.Wrap(ErrRecordNotFound, name)
	}
	return nil
}

// MaxBatch returns the highest batch number, or 0 when the ledger is empty.
func (s *Store) MaxBatch(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX("batch"), 0) FROM %s`, s.quotedTable())

	var batch int
	if err := s.db.QueryRowContext(ctx, query).Scan(&batch); err != nil {
		return 0, errors.Wrap(err, "failed to load latest batch")
	}
	return batch, nil
}

// RowsInBatch returns the records of batch, newest first.
func (s *Store) RowsInBatch(ctx context.Context, batch int) ([]*Record, error) {
	query := fmt.Sprintf(
		`SELECT "id", "name", "batch", "executed_at" FROM %s WHERE "batch" = $1 ORDER BY "id" DESC`,
		s.quotedTable(),
	)
	return s.records(ctx, query, batch)
}

func (s *Store) records(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ledger records")
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		r := new(Record)
		if err := rows.Scan(&r.ID, &r.Name, &r.Batch, &r.ExecutedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan ledger record")
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate ledger records")
	}

	return records, nil
}

func (s *Store) quotedTable() string {
	return utils.QuoteIdentifier(s.table)
}
