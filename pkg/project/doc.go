// Package project manages a dbkeeper project directory: its dbkeeper.yaml
// configuration and the SQL-file migrations that sit next to it.
//
// # Project Structure
//
// A dbkeeper project follows this layout:
//
//	project-root/
//	├── dbkeeper.yaml           # Connection, ledger, and lock settings
//	└── db/
//	    └── migrations/
//	        ├── dbkeeper.sum    # Integrity hashes of the files below
//	        └── 20250101120000_add_vip_flag.sql
//
// Initialize creates whatever is missing and never rewrites existing files.
// NewMigration scaffolds a timestamped file with empty Up and Down sections
// and refreshes the sum file, while LoadMigrations refuses to return units
// once a file changed without a rehash.
//
// # Usage Example
//
//	proj := project.New(project.ProjectParams{Dir: "."})
//	if err := proj.Initialize(project.InitOptions{}); err != nil {
//		log.Fatal("Failed to initialize project:", err)
//	}
//
//	dir, err := proj.LoadMigrations()
//	if err != nil {
//		log.Fatal("Failed to load migrations:", err)
//	}
//
//	for _, unit := range dir.Units {
//		fmt.Printf("Migration: %s\n", unit.Name)
//	}
package project
