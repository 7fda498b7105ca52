// Package executor applies and reverts migration units as atomic, auditable
// batches.
//
// # Units and batches
//
// A unit is applied inside its own transaction, and the ledger row recording
// it is written in that same transaction. Either both are committed or
// neither is, so the ledger never lists a unit whose changes are not in the
// schema. Units applied by one Migrate call share a batch number one higher
// than the previous maximum. Rollback reverts the units of the highest batch
// in reverse application order and removes their rows in the same
// transactions.
//
//	exec := executor.New(executor.Config{
//		Txn:      tm,
//		Registry: registry,
//	})
//
//	report, err := exec.Migrate(ctx)
//	if err != nil {
//		var failed *executor.MigrationFailedError
//		if errors.As(err, &failed) {
//			log.Printf("unit %s failed", failed.Unit)
//		}
//		return err
//	}
//
// # Failures
//
// Execution stops at the first failing unit. Its transaction is rolled back
// and a *MigrationFailedError naming it is returned along with a Report that
// marks the remaining units as skipped. Units that completed before it stay
// committed. Nothing is retried.
//
// A unit that opens a nested scope on the transaction manager and rolls it
// back cannot be committed; Migrate reports it with ErrNestedRollback.
//
// # Concurrency
//
// The executor uses one connection and takes no lock. Running it from several
// processes at once requires an external lock such as pkg/lock.
package executor
