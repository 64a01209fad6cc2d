package schema

import "context"

// Reader is the interface for introspecting a database schema.
// An empty schema means "main".
type Reader interface {
	// ListDatabases returns main, temp and every attached database
	ListDatabases(ctx context.Context) ([]DatabaseInfo, error)

	// ListTables returns all user tables in the given schema
	ListTables(ctx context.Context, schema string) ([]string, error)

	// TableExists checks whether a table exists
	TableExists(ctx context.Context, schema, table string) (bool, error)

	// InspectTable returns full column info for a table
	InspectTable(ctx context.Context, schema, table string) (*TableInfo, error)

	// ListForeignKeys returns the foreign keys declared on a table
	ListForeignKeys(ctx context.Context, schema, table string) ([]ForeignKey, error)

	// InspectSchema returns the full schema (all tables + foreign keys)
	InspectSchema(ctx context.Context, schema string) (*SchemaInfo, error)
}
