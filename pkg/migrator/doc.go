// Package migrator defines migration units and the registry the executor
// runs them from.
//
// A Unit is a named pair of Apply and Revert functions written against the
// schema DSL. Hosts assemble units explicitly with NewRegistry, which orders
// them by name:
//
//	registry, err := migrator.NewRegistry(
//		migrator.Unit{Name: "001_create_users", Apply: createUsers, Revert: dropUsers},
//		migrator.Unit{Name: "002_create_bots", Apply: createBots, Revert: dropBots},
//	)
//
// Units can also be written as SQL files with -- +migrate Up and
// -- +migrate Down sections and loaded with LoadDir. A directory may carry a
// dbkeeper.sum file holding chained SHA256 hashes of its SQL files; Validate
// reports files edited after the sum was written.
//
//	dir, err := migrator.LoadDir(os.DirFS("db/migrations"))
//	if err != nil {
//		return err
//	}
//
//	if err := dir.Validate(); err != nil {
//		return err // a migration file was changed
//	}
package migrator
