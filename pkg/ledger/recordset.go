package ledger

// RecordSet indexes ledger records by name for status queries.
//
// Example usage:
//
//	records, err := store.All(ctx)
//	if err != nil {
//		return err
//	}
//
//	set := ledger.NewRecordSet(records)
//	for _, unit := range registry.Units() {
//		if rec, ok := set.Get(unit.Name); ok {
//			fmt.Printf("%s applied in batch %d\n", unit.Name, rec.Batch)
//		}
//	}
type RecordSet struct {
	byName map[string]*Record
}

// NewRecordSet builds a RecordSet.
func NewRecordSet(records []*Record) *RecordSet {
	byName := make(map[string]*Record, len(records))
	for _, r := range records {
		byName[r.Name] = r
	}

	return &RecordSet{byName: byName}
}

// Get returns the record for name.
func (rs *RecordSet) Get(name string) (*Record, bool) {
	r, ok := rs.byName[name]
	return r, ok
}
