package metadata

// TableNameBuilder turns a table declaration into the path queries use.
// *sqlite.Driver implements it.
type TableNameBuilder interface {
	BuildTableName(table, schema, database string) string
}

// Entity describes a mapped table. Database, when set, names the database
// file the table lives in; it is resolved relative to the primary database.
type Entity struct {
	Name      string
	Table     string
	Schema    string
	Database  string
	Relations map[string]Relation
}

// TablePath returns the path the entity's table is queried by. Building the
// path registers any secondary database file for attachment, so every
// entity should be resolved before the driver initializes.
func (e Entity) TablePath(b TableNameBuilder) string {
	table := e.Table
	if table == "" {
		table = e.Name
	}
	return b.BuildTableName(table, e.Schema, e.Database)
}

// ResolveAll builds the table path of every entity, keyed by entity name.
func ResolveAll(b TableNameBuilder, entities ...Entity) map[string]string {
	paths := make(map[string]string, len(entities))
	for _, e := range entities {
		paths[e.Name] = e.TablePath(b)
	}
	return paths
}
