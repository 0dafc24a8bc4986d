package port

import "context"

// SchemaManager exposes the destructive schema operations the reset
// orchestrator needs. Implementations operate on the service's own schema and
// must never touch the migration bookkeeping table through ListTables,
// DropTable, or TruncateTable.
type SchemaManager interface {
	// ListTables returns every data table in the service schema, excluding
	// migration bookkeeping.
	ListTables(ctx context.Context) ([]string, error)
	DropTable(ctx context.Context, table string) error
	// TruncateTable clears a table and restarts its id sequence when one
	// exists.
	TruncateTable(ctx context.Context, table string) error
	// ClearMigrationState empties the migration bookkeeping table so a
	// subsequent migration run re-applies everything from scratch.
	ClearMigrationState(ctx context.Context) error
}

// Migrator applies schema migrations. A failed run is fatal to the caller;
// partially applied migrations must not be reported as success.
type Migrator interface {
	Up() error
}

// AttemptStore counts request attempts inside a fixed throttling window.
type AttemptStore interface {
	// IncrementAttempts records one attempt for key and returns the total
	// recorded inside the currently open window.
	IncrementAttempts(ctx context.Context, key string) (int64, error)
}
