package executor

import (
	"context"
	"time"

	"github.com/zenyx/dbkeeper/pkg/ledger"
)

type (
	// State is a unit's position relative to the ledger.
	State string

	// UnitStatus describes one unit for Status.
	UnitStatus struct {
		Name       string
		State      State
		Batch      int
		ExecutedAt time.Time
	}
)

const (
	// StatePending means the unit has no ledger row.
	StatePending State = "pending"

	// StateApplied means the unit has a ledger row.
	StateApplied State = "applied"

	// StateMissing means the ledger has a row for a name the registry does not
	// know. Migrate and Rollback refuse to run until it is resolved.
	StateMissing State = "missing"
)

// Status lists every registry unit in name order with its ledger state,
// followed by any ledger rows whose unit is missing from the registry.
// Missing units are reported, never returned as an error.
//
// Status is read-only: without a ledger table every unit is pending.
func (e *Executor) Status(ctx context.Context) ([]UnitStatus, error) {
	exists, err := e.store.HasTable(ctx)
	if err != nil {
		return nil, err
	}

	var records []*ledger.Record
	if exists {
		if records, err = e.store.All(ctx); err != nil {
			return nil, err
		}
	}
	set := ledger.NewRecordSet(records)

	statuses := make([]UnitStatus, 0, e.registry.Len())
	for _, unit := range e.registry.Units() {
		status := UnitStatus{Name: unit.Name, State: StatePending}
		if rec, ok := set.Get(unit.Name); ok {
			status.State = StateApplied
			status.Batch = rec.Batch
			status.ExecutedAt = rec.ExecutedAt
		}
		statuses = append(statuses, status)
	}

	for _, rec := range records {
		if _, ok := e.registry.Get(rec.Name); !ok {
			statuses = append(statuses, UnitStatus{
				Name:       rec.Name,
				State:      StateMissing,
				Batch:      rec.Batch,
				ExecutedAt: rec.ExecutedAt,
			})
		}
	}

	return statuses, nil
}
