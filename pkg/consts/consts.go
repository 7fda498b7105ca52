package consts

import (
	"os"
	"time"
)

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// DefaultConfigFile is the project configuration file looked up in the
	// working directory (overridable with DBKEEPER_CONFIG).
	DefaultConfigFile = "dbkeeper.yaml"

	// DefaultDriver is the database/sql driver name used to open connections.
	DefaultDriver = "pgx"

	// DefaultLedgerTable is the table recording applied migration units.
	DefaultLedgerTable = "migrations"

	// DefaultMigrationsDir holds SQL-file migration units.
	DefaultMigrationsDir = "db/migrations"

	// SumFileName is the integrity file kept next to SQL-file migrations.
	SumFileName = "dbkeeper.sum"

	// DefaultLockKey names the advisory lock held while migrations run.
	DefaultLockKey = "dbkeeper"

	// DefaultTimeout bounds a single command invocation.
	DefaultTimeout = 5 * time.Minute

	// MigrationTimeFormat is the sortable prefix used for generated unit names.
	MigrationTimeFormat = "20060102150405"
)
