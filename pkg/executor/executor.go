package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/consts"
	"github.com/zenyx/dbkeeper/pkg/ledger"
	"github.com/zenyx/dbkeeper/pkg/migrator"
	"github.com/zenyx/dbkeeper/pkg/schema"
	"github.com/zenyx/dbkeeper/pkg/txn"
)

var (
	// ErrUnknownMigration is returned when the ledger names a unit the
	// registry does not know about.
	ErrUnknownMigration = errors.New("ledger references an unknown migration")

	// ErrNestedRollback is returned when a unit's transaction could not be
	// committed because a nested scope inside it was rolled back.
	ErrNestedRollback = errors.New("nested scope rolled back; unit was not committed")
)

type (
	// Executor applies and reverts migration units against a single
	// connection.
	//
	// Every unit runs in its own transaction: the unit's DDL and its ledger
	// row are committed together or not at all. Units applied by one Migrate
	// call share a batch number, and Rollback reverts the most recent batch
	// in reverse application order.
	//
	// The executor takes no lock. Callers running it from more than one
	// process must serialize calls themselves (see pkg/lock).
	//
	// Example usage:
	//
	//	conn, err := client.Conn(ctx)
	//	if err != nil {
	//		return err
	//	}
	//	defer conn.Close()
	//
	//	tm := txn.New(conn)
	//	exec := executor.New(executor.Config{
	//		Txn:      tm,
	//		Registry: registry,
	//		Store:    ledger.New(tm, "migrations"),
	//	})
	//
	//	report, err := exec.Migrate(ctx)
	//	if err != nil {
	//		return err
	//	}
	//
	//	for _, result := range report.Results {
	//		fmt.Printf("%s: %s\n", result.Name, result.Status)
	//	}
	Executor struct {
		tm       *txn.Manager
		registry *migrator.Registry
		store    *ledger.Store
		schema   *schema.Builder
		logger   *slog.Logger
		clock    func() time.Time
	}

	// Config contains configuration options for creating a new Executor.
	Config struct {
		// Txn owns the connection every statement runs on.
		Txn *txn.Manager

		// Registry lists the known units.
		Registry *migrator.Registry

		// Store is the ledger. Defaults to the "migrations" table accessed
		// through Txn.
		Store *ledger.Store

		// Logger defaults to slog.Default().
		Logger *slog.Logger

		// Clock stamps ledger rows. Defaults to time.Now.
		Clock func() time.Time
	}

	// Report summarizes one executor call.
	Report struct {
		// Batch is the batch applied or reverted. Zero when nothing ran.
		Batch int

		// Results has one entry per unit considered, in execution order.
		Results []*ExecutionResult
	}

	// ExecutionResult contains the result of applying or reverting one unit.
	ExecutionResult struct {
		// Name is the unit name
		Name string

		// Batch the unit was applied in, or reverted from
		Batch int

		// Op is OpApply or OpRevert
		Op Op

		// Status indicates the outcome
		Status ExecutionStatus

		// Error contains any error that occurred during execution
		Error error

		// ExecutionTime records how long the unit's transaction took
		ExecutionTime time.Duration
	}

	// ExecutionStatus represents the outcome of a unit execution.
	ExecutionStatus string

	// Op names the direction a unit was run in.
	Op string

	// MigrationFailedError reports the unit whose apply or revert failed. The
	// unit's transaction has been rolled back by the time it is returned.
	MigrationFailedError struct {
		Unit string
		Op   Op
		Err  error
	}
)

const (
	// StatusSuccess indicates the unit's transaction committed
	StatusSuccess ExecutionStatus = "success"

	// StatusFailed indicates the unit's transaction was rolled back
	StatusFailed ExecutionStatus = "failed"

	// StatusSkipped indicates the unit was not attempted because an earlier
	// unit in the same call failed
	StatusSkipped ExecutionStatus = "skipped"

	OpApply  Op = "apply"
	OpRevert Op = "revert"
)

func (e *MigrationFailedError) Error() string {
	return "migration " + e.Unit + " failed during " + string(e.Op) + ": " + e.Err.Error()
}

func (e *MigrationFailedError) Unwrap() error {
	return e.Err
}

// New creates a new executor with the provided configuration.
func New(config Config) *Executor {
	e := &Executor{
		tm:       config.Txn,
		registry: config.Registry,
		store:    config.Store,
		schema:   schema.NewBuilder(config.Txn),
		logger:   config.Logger,
		clock:    config.Clock,
	}

	if e.store == nil {
		e.store = ledger.New(config.Txn, consts.DefaultLedgerTable)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	if e.clock == nil {
		e.clock = time.Now
	}

	return e
}

// Applied returns the names of units that completed successfully.
func (r *Report) Applied() []string {
	var names []string
	for _, res := range r.Results {
		if res.Status == StatusSuccess {
			names = append(names, res.Name)
		}
	}
	return names
}

// Migrate applies every pending unit, in ascending name order, as one new
// batch.
//
// Each unit is applied in its own transaction together with its ledger row.
// The first failure stops the call: that unit is rolled back, the units after
// it are reported as skipped, and a *MigrationFailedError is returned. Units
// applied earlier in the call stay committed.
//
// When nothing is pending the returned report is empty and no statement other
// than the ledger reads is issued.
func (e *Executor) Migrate(ctx context.Context) (*Report, error) {
	log := e.runLogger("migrate")

	pending, err := e.pending(ctx, true)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	if len(pending) == 0 {
		log.Info("Nothing to migrate")
		return report, nil
	}

	maxBatch, err := e.store.MaxBatch(ctx)
	if err != nil {
		return nil, err
	}
	report.Batch = maxBatch + 1

	log.Info("Migrating", "batch", report.Batch, "pending", len(pending))

	for i, unit := range pending {
		result := e.run(ctx, log, unit.Name, report.Batch, OpApply, func(ctx context.Context) error {
			if err := unit.Apply(ctx, e.schema); err != nil {
				return err
			}
			return e.store.Insert(ctx, unit.Name, report.Batch, e.clock())
		})
		report.Results = append(report.Results, result)

		if result.Status == StatusFailed {
			for _, rest := range pending[i+1:] {
				report.Results = append(report.Results, &ExecutionResult{
					Name:   rest.Name,
					Batch:  report.Batch,
					Op:     OpApply,
					Status: StatusSkipped,
				})
			}
			return report, &MigrationFailedError{Unit: unit.Name, Op: OpApply, Err: result.Error}
		}
	}

	return report, nil
}

// Rollback reverts the most recent batch, newest unit first. Each unit is
// reverted in its own transaction together with the removal of its ledger
// row. The first failure stops the call and leaves that unit's row, and the
// rows of the units after it, in place.
//
// An empty ledger is a no-op.
func (e *Executor) Rollback(ctx context.Context) (*Report, error) {
	return e.rollback(ctx, e.runLogger("rollback"))
}

// Reset rolls back every batch, newest first, until the ledger is empty.
func (e *Executor) Reset(ctx context.Context) (*Report, error) {
	return e.reset(ctx, e.runLogger("reset"))
}

// Refresh resets the ledger and then migrates every unit. The report holds
// the revert results followed by the apply results, and Batch is the batch
// Migrate applied.
func (e *Executor) Refresh(ctx context.Context) (*Report, error) {
	log := e.runLogger("refresh")

	reset, err := e.reset(ctx, log)
	if err != nil {
		return reset, errors.Wrap(err, "refresh failed during reset")
	}

	migrated, err := e.Migrate(ctx)
	if migrated == nil {
		migrated = &Report{}
	}
	migrated.Results = append(reset.Results, migrated.Results...)
	if err != nil {
		return migrated, errors.Wrap(err, "refresh failed during migrate")
	}

	return migrated, nil
}

// Pending returns the units that have no ledger row, in ascending name order.
// It issues no DDL: without a ledger table every unit is pending.
func (e *Executor) Pending(ctx context.Context) ([]migrator.Unit, error) {
	return e.pending(ctx, false)
}

// pending lists the units without a ledger row. Migrate passes create so the
// ledger table exists before the first unit runs.
func (e *Executor) pending(ctx context.Context, create bool) ([]migrator.Unit, error) {
	if create {
		if err := e.store.Ensure(ctx); err != nil {
			return nil, err
		}
	} else {
		exists, err := e.store.HasTable(ctx)
		if err != nil {
			return nil, err
		}
		if !exists {
			return e.registry.Units(), nil
		}
	}

	names, err := e.store.AllNames(ctx)
	if err != nil {
		return nil, err
	}

	if err := e.checkKnown(names); err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}

	var pending []migrator.Unit
	for _, unit := range e.registry.Units() {
		if !applied[unit.Name] {
			pending = append(pending, unit)
		}
	}

	return pending, nil
}

func (e *Executor) reset(ctx context.Context, log *slog.Logger) (*Report, error) {
	report := &Report{}

	for {
		rolledBack, err := e.rollback(ctx, log)
		if rolledBack != nil {
			report.Results = append(report.Results, rolledBack.Results...)
			if report.Batch == 0 {
				report.Batch = rolledBack.Batch
			}
		}

		if err != nil {
			return report, err
		}

		if rolledBack.Batch == 0 {
			return report, nil
		}
	}
}

func (e *Executor) rollback(ctx context.Context, log *slog.Logger) (*Report, error) {
	if err := e.store.Ensure(ctx); err != nil {
		return nil, err
	}

	names, err := e.store.AllNames(ctx)
	if err != nil {
		return nil, err
	}

	if err := e.checkKnown(names); err != nil {
		return nil, err
	}

	report := &Report{}

	lastBatch, err := e.store.MaxBatch(ctx)
	if err != nil {
		return nil, err
	}

	if lastBatch == 0 {
		log.Info("Nothing to roll back")
		return report, nil
	}

	records, err := e.store.RowsInBatch(ctx, lastBatch)
	if err != nil {
		return nil, err
	}

	report.Batch = lastBatch
	log.Info("Rolling back", "batch", lastBatch, "units", len(records))

	for i, rec := range records {
		unit, _ := e.registry.Get(rec.Name)
		revert := unit.Revert
		if revert == nil {
			revert = migrator.Irreversible(unit.Name)
		}

		result := e.run(ctx, log, rec.Name, lastBatch, OpRevert, func(ctx context.Context) error {
			if err := revert(ctx, e.schema); err != nil {
				return err
			}
			return e.store.DeleteByName(ctx, rec.Name)
		})
		report.Results = append(report.Results, result)

		if result.Status == StatusFailed {
			for _, rest := range records[i+1:] {
				report.Results = append(report.Results, &ExecutionResult{
					Name:   rest.Name,
					Batch:  lastBatch,
					Op:     OpRevert,
					Status: StatusSkipped,
				})
			}
			return report, &MigrationFailedError{Unit: rec.Name, Op: OpRevert, Err: result.Error}
		}
	}

	return report, nil
}

// run executes fn in a fresh transaction and reports the outcome.
func (e *Executor) run(
	ctx context.Context,
	log *slog.Logger,
	name string,
	batch int,
	op Op,
	fn func(context.Context) error,
) *ExecutionResult {
	log = log.With("unit", name, "batch", batch, "op", op)
	log.Info("Running migration unit")

	start := time.Now()
	committed, err := e.tm.Transaction(ctx, fn)
	if err == nil && !committed {
		err = ErrNestedRollback
	}

	result := &ExecutionResult{
		Name:          name,
		Batch:         batch,
		Op:            op,
		Status:        StatusSuccess,
		ExecutionTime: time.Since(start),
	}

	if err != nil {
		result.Status = StatusFailed
		result.Error = err
		log.Error("Migration unit failed", "error", err, "duration", result.ExecutionTime)
		return result
	}

	log.Info("Migration unit done", "duration", result.ExecutionTime)
	return result
}

func (e *Executor) checkKnown(names []string) error {
	for _, name := range names {
		if _, ok := e.registry.Get(name); !ok {
			return errors.Wrap(ErrUnknownMigration, name)
		}
	}
	return nil
}

func (e *Executor) runLogger(op string) *slog.Logger {
	return e.logger.With("run_id", uuid.NewString(), "command", op)
}
