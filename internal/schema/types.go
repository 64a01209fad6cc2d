package schema

// DatabaseInfo is one entry of PRAGMA database_list: main, temp and every
// attached file.
type DatabaseInfo struct {
	Seq  int64  `json:"seq"`
	Name string `json:"name"`           // "main", "temp" or the attach handle
	File string `json:"file,omitempty"` // empty for in-memory and temp databases
}

// ColumnInfo is one row of PRAGMA table_info, plus uniqueness from the
// table's single-column unique indexes.
type ColumnInfo struct {
	Name         string  `json:"name"`
	DeclaredType string  `json:"declared_type"` // as written in CREATE TABLE; may be empty
	IsNullable   bool    `json:"nullable"`
	IsPrimaryKey bool    `json:"primary_key"`
	IsUnique     bool    `json:"unique"`
	DefaultValue *string `json:"default,omitempty"` // SQL text of the default expression
	MaxLength    *int    `json:"max_length,omitempty"`
}

// TableInfo describes a table in one schema.
type TableInfo struct {
	Schema  string       `json:"schema"`
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ForeignKey is one column pair of PRAGMA foreign_key_list.
type ForeignKey struct {
	Name       string `json:"name"`
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
	OnDelete   string `json:"on_delete"`
	OnUpdate   string `json:"on_update"`
}

// SchemaInfo is every table and foreign key of one schema.
type SchemaInfo struct {
	Schema      string       `json:"schema"`
	Tables      []TableInfo  `json:"tables"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}
