package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/litequery/internal/errs"
)

// validOps is the allowlist of comparison operators for WHERE clauses.
// Any operator not in this list is rejected to prevent SQL injection
// through the operator position (which cannot be parameterized).
var validOps = map[string]bool{
	"=":    true,
	"!=":   true,
	"<>":   true,
	"<":    true,
	">":    true,
	"<=":   true,
	">=":   true,
	"LIKE": true,
	"GLOB": true,
	"IS":   true,
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string; they are passed as args.
//
// The table may be schema-qualified the way Driver.BuildTableName returns it
// ("db_3f2a9c0e5b1d7a44.post"); each part is quoted separately.
//
//	sql, args, err := Select("post").
//	    Columns("id", "title").
//	    Where("id", "=", id).
//	    Build()
type SelectBuilder struct {
	table   string
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   *int
	offset  *int
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	column string
	op     string
	value  any
}

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table.
func Select(table string) *SelectBuilder {
	return &SelectBuilder{table: table}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a WHERE condition. Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip.
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the final SQL string and argument slice.
// Returns an error if any WHERE operator is not in the allowlist.
func (b *SelectBuilder) Build() (string, []any, error) {
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = QuoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(QuoteTable(b.table))

	var args []any

	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			op := strings.ToUpper(w.op)
			if !validOps[op] {
				return "", nil, errs.New(errs.ErrKindInvalidInput,
					fmt.Sprintf("unsupported WHERE operator: %q", w.op))
			}
			parts = append(parts, fmt.Sprintf("%s %s ?", QuoteIdent(w.column), op))
			args = append(args, w.value)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", QuoteIdent(o.column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	// SQLite only accepts OFFSET after LIMIT; -1 means "no limit".
	if b.limit != nil || b.offset != nil {
		limit := -1
		if b.limit != nil {
			limit = *b.limit
		}
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
		if b.offset != nil {
			sb.WriteString(" OFFSET ?")
			args = append(args, *b.offset)
		}
	}

	return sb.String(), args, nil
}

// InsertBuilder constructs a parameterized single-row INSERT.
type InsertBuilder struct {
	table   string
	columns []string
	values  []any
}

// Insert starts a new InsertBuilder for the given table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Set adds a column/value pair. Columns keep the order of the calls.
func (b *InsertBuilder) Set(column string, value any) *InsertBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// Build produces the final SQL string and argument slice.
// An insert without columns uses DEFAULT VALUES.
func (b *InsertBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "insert requires a table")
	}
	if len(b.columns) == 0 {
		return "INSERT INTO " + QuoteTable(b.table) + " DEFAULT VALUES", nil, nil
	}

	quoted := make([]string, len(b.columns))
	marks := make([]string, len(b.columns))
	for i, c := range b.columns {
		quoted[i] = QuoteIdent(c)
		marks[i] = "?"
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteTable(b.table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	args := make([]any, len(b.values))
	copy(args, b.values)
	return q, args, nil
}

// QuoteIdent wraps a SQL identifier in double-quotes (ANSI standard).
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteTable quotes a possibly schema-qualified table path.
// "handle.post" becomes "handle"."post"; a bare name is quoted as one identifier.
func QuoteTable(path string) string {
	schema, table, ok := strings.Cut(path, ".")
	if !ok {
		return QuoteIdent(path)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(table)
}
