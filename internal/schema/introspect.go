package schema

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/koustreak/litequery/internal/database"
	"github.com/koustreak/litequery/internal/errs"
)

// Introspector implements Reader for SQLite using sqlite_master and the
// table pragmas. Attached databases are addressed by their attach handle.
type Introspector struct {
	db database.Querier
}

var _ Reader = (*Introspector)(nil)

// NewIntrospector creates a schema introspector running its queries through q.
func NewIntrospector(q database.Querier) *Introspector {
	return &Introspector{db: q}
}

// ListDatabases returns every database known to the connection.
func (p *Introspector) ListDatabases(ctx context.Context) ([]DatabaseInfo, error) {
	rows, err := p.records(ctx, `PRAGMA database_list`)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}

	dbs := make([]DatabaseInfo, 0, len(rows))
	for _, r := range rows {
		dbs = append(dbs, DatabaseInfo{
			Seq:  asInt(r["seq"]),
			Name: asString(r["name"]),
			File: asString(r["file"]),
		})
	}
	return dbs, nil
}

// ListTables returns all user-defined table names in the given schema
func (p *Introspector) ListTables(ctx context.Context, schema string) ([]string, error) {
	q := fmt.Sprintf(`
		SELECT name
		FROM %s.sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite\_%%' ESCAPE '\'
		ORDER BY name`, database.QuoteIdent(schemaName(schema)))

	rows, err := p.records(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]string, 0, len(rows))
	for _, r := range rows {
		tables = append(tables, asString(r["name"]))
	}
	return tables, nil
}

// TableExists checks whether a specific table exists
func (p *Introspector) TableExists(ctx context.Context, schema, table string) (bool, error) {
	q := fmt.Sprintf(`
		SELECT count(*) AS n
		FROM %s.sqlite_master
		WHERE type = 'table' AND name = ?`, database.QuoteIdent(schemaName(schema)))

	rows, err := p.records(ctx, q, table)
	if err != nil {
		return false, fmt.Errorf("table exists check: %w", err)
	}
	return len(rows) == 1 && asInt(rows[0]["n"]) > 0, nil
}

// InspectTable returns column details for a single table
func (p *Introspector) InspectTable(ctx context.Context, schema, table string) (*TableInfo, error) {
	schema = schemaName(schema)
	q := fmt.Sprintf(`PRAGMA %s.table_info(%s)`, database.QuoteIdent(schema), database.QuoteIdent(table))

	rows, err := p.records(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s.%s: %w", schema, table, err)
	}
	if len(rows) == 0 {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("table %s.%s not found or has no columns", schema, table))
	}

	unique, err := p.uniqueColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	info := &TableInfo{Schema: schema, Name: table}
	for _, r := range rows {
		col := ColumnInfo{
			Name:         asString(r["name"]),
			DeclaredType: asString(r["type"]),
			IsNullable:   asInt(r["notnull"]) == 0,
			IsPrimaryKey: asInt(r["pk"]) > 0,
			MaxLength:    declaredLength(asString(r["type"])),
		}
		if r["dflt_value"] != nil {
			v := asString(r["dflt_value"])
			col.DefaultValue = &v
		}
		if col.IsPrimaryKey {
			col.IsNullable = false
		}
		col.IsUnique = col.IsPrimaryKey || unique[col.Name]
		info.Columns = append(info.Columns, col)
	}
	return info, nil
}

// uniqueColumns returns the columns covered alone by a unique index.
func (p *Introspector) uniqueColumns(ctx context.Context, schema, table string) (map[string]bool, error) {
	qs := database.QuoteIdent(schema)
	indexes, err := p.records(ctx, fmt.Sprintf(`PRAGMA %s.index_list(%s)`, qs, database.QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s.%s: %w", schema, table, err)
	}

	unique := make(map[string]bool)
	for _, idx := range indexes {
		if asInt(idx["unique"]) == 0 {
			continue
		}
		name := asString(idx["name"])
		cols, err := p.records(ctx, fmt.Sprintf(`PRAGMA %s.index_info(%s)`, qs, database.QuoteIdent(name)))
		if err != nil {
			return nil, fmt.Errorf("inspect index %s: %w", name, err)
		}
		if len(cols) == 1 {
			unique[asString(cols[0]["name"])] = true
		}
	}
	return unique, nil
}

// ListForeignKeys returns the foreign keys declared on a table
func (p *Introspector) ListForeignKeys(ctx context.Context, schema, table string) ([]ForeignKey, error) {
	schema = schemaName(schema)
	q := fmt.Sprintf(`PRAGMA %s.foreign_key_list(%s)`, database.QuoteIdent(schema), database.QuoteIdent(table))

	rows, err := p.records(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	fks := make([]ForeignKey, 0, len(rows))
	for _, r := range rows {
		fks = append(fks, ForeignKey{
			Name:       fmt.Sprintf("fk_%s_%d_%d", table, asInt(r["id"]), asInt(r["seq"])),
			FromTable:  table,
			FromColumn: asString(r["from"]),
			ToTable:    asString(r["table"]),
			ToColumn:   asString(r["to"]),
			OnDelete:   asString(r["on_delete"]),
			OnUpdate:   asString(r["on_update"]),
		})
	}
	return fks, nil
}

// InspectSchema returns all tables and foreign keys in the schema
func (p *Introspector) InspectSchema(ctx context.Context, schema string) (*SchemaInfo, error) {
	schema = schemaName(schema)
	tables, err := p.ListTables(ctx, schema)
	if err != nil {
		return nil, err
	}

	info := &SchemaInfo{Schema: schema}
	for _, table := range tables {
		ti, err := p.InspectTable(ctx, schema, table)
		if err != nil {
			return nil, err
		}
		info.Tables = append(info.Tables, *ti)

		fks, err := p.ListForeignKeys(ctx, schema, table)
		if err != nil {
			return nil, err
		}
		info.ForeignKeys = append(info.ForeignKeys, fks...)
	}
	return info, nil
}

func (p *Introspector) records(ctx context.Context, q string, params ...any) ([]map[string]any, error) {
	res, err := p.db.QueryStructured(ctx, q, params...)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

func schemaName(schema string) string {
	if schema == "" {
		return "main"
	}
	return schema
}

var lengthRe = regexp.MustCompile(`\(\s*(\d+)\s*\)`)

// declaredLength extracts n from types like VARCHAR(n).
func declaredLength(declared string) *int {
	m := lengthRe.FindStringSubmatch(declared)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(t), 10, 64)
		return n
	default:
		return 0
	}
}
