package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/floodline/portal-api/internal/core/port"
	"github.com/floodline/portal-api/internal/infra/database"
)

const schemaName = "portal"

// SchemaManager implements port.SchemaManager against the portal schema.
// Table names come from pg_tables and are quoted with pgx.Identifier, never
// interpolated from caller input.
type SchemaManager struct {
	exec pgExecutor
}

// NewSchemaManager wires a schema manager backed by the provided executor.
func NewSchemaManager(exec pgExecutor) *SchemaManager {
	return &SchemaManager{exec: exec}
}

// ListTables returns every data table in the portal schema. The migration
// bookkeeping table is excluded defensively even though golang-migrate keeps
// it outside the schema.
func (m *SchemaManager) ListTables(ctx context.Context) ([]string, error) {
	rows, err := m.exec.Query(ctx, `
		SELECT tablename
		  FROM pg_tables
		 WHERE schemaname = $1
		   AND tablename <> $2
	`, schemaName, database.MigrationsTable)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

// DropTable removes a single table from the portal schema.
func (m *SchemaManager) DropTable(ctx context.Context, table string) error {
	stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{schemaName, table}.Sanitize())
	if _, err := m.exec.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}

// TruncateTable clears a table and restarts its id sequence when one exists.
// Some migrations seed data, so truncation runs even right after migrating.
func (m *SchemaManager) TruncateTable(ctx context.Context, table string) error {
	stmt := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", pgx.Identifier{schemaName, table}.Sanitize())
	if _, err := m.exec.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("truncate table %s: %w", table, err)
	}

	sequence := table + "_id_seq"
	exists, err := m.sequenceExists(ctx, sequence)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	stmt = fmt.Sprintf("ALTER SEQUENCE %s RESTART WITH 1", pgx.Identifier{schemaName, sequence}.Sanitize())
	if _, err := m.exec.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("restart sequence %s: %w", sequence, err)
	}

	return nil
}

// ClearMigrationState empties the migration bookkeeping table so the next
// migration run re-applies everything from scratch.
func (m *SchemaManager) ClearMigrationState(ctx context.Context) error {
	stmt := fmt.Sprintf("TRUNCATE TABLE %s", pgx.Identifier{database.MigrationsTable}.Sanitize())
	if _, err := m.exec.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("clear migration state: %w", err)
	}
	return nil
}

func (m *SchemaManager) sequenceExists(ctx context.Context, sequence string) (bool, error) {
	row := m.exec.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			  FROM pg_sequences
			 WHERE schemaname = $1
			   AND sequencename = $2
		)
	`, schemaName, sequence)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check sequence %s: %w", sequence, err)
	}

	return exists, nil
}

var _ port.SchemaManager = (*SchemaManager)(nil)
