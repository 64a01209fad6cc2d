package schema

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/litequery/internal/database/sqlite"
	_ "github.com/koustreak/litequery/internal/database/sqlite/mattn"
	"github.com/koustreak/litequery/internal/errs"
)

func setupDriver(t *testing.T) (*sqlite.Driver, string) {
	t.Helper()
	dir := t.TempDir()
	d := sqlite.New(sqlite.Options{Database: filepath.Join(dir, "main.db")}, nil)
	audit := d.BuildTableName("event", "", "audit.db")
	require.NoError(t, d.Initialize(context.Background()))
	t.Cleanup(func() { _ = d.Disconnect() })

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE author (id INTEGER PRIMARY KEY, email VARCHAR(120) NOT NULL UNIQUE, name TEXT DEFAULT 'anon')`,
		`CREATE TABLE post (id INTEGER PRIMARY KEY, author_id INTEGER REFERENCES author(id) ON DELETE CASCADE, title TEXT NOT NULL)`,
		`CREATE TABLE ` + audit + ` (id INTEGER PRIMARY KEY, payload BLOB)`,
	} {
		_, err := d.Query(ctx, stmt)
		require.NoError(t, err)
	}

	handle := d.AttachedDatabases()[0].Handle
	return d, handle
}

func TestIntrospector_ListDatabases(t *testing.T) {
	d, handle := setupDriver(t)
	p := NewIntrospector(d.CreateQueryRunner())

	dbs, err := p.ListDatabases(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(dbs))
	for _, db := range dbs {
		names = append(names, db.Name)
	}
	assert.Contains(t, names, "main")
	assert.Contains(t, names, handle)
}

func TestIntrospector_ListTables(t *testing.T) {
	d, handle := setupDriver(t)
	p := NewIntrospector(d.CreateQueryRunner())
	ctx := context.Background()

	tables, err := p.ListTables(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "post"}, tables)

	tables, err = p.ListTables(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, []string{"event"}, tables)

	ok, err := p.TableExists(ctx, "main", "post")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.TableExists(ctx, "main", "event")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIntrospector_InspectTable(t *testing.T) {
	d, _ := setupDriver(t)
	p := NewIntrospector(d.CreateQueryRunner())

	info, err := p.InspectTable(context.Background(), "", "author")
	require.NoError(t, err)
	assert.Equal(t, "main", info.Schema)
	require.Len(t, info.Columns, 3)

	id := info.Columns[0]
	assert.Equal(t, "id", id.Name)
	assert.True(t, id.IsPrimaryKey)
	assert.False(t, id.IsNullable)

	email := info.Columns[1]
	assert.Equal(t, "VARCHAR(120)", email.DeclaredType)
	assert.True(t, email.IsUnique)
	assert.False(t, email.IsNullable)
	require.NotNil(t, email.MaxLength)
	assert.Equal(t, 120, *email.MaxLength)

	name := info.Columns[2]
	assert.True(t, name.IsNullable)
	assert.False(t, name.IsUnique)
	require.NotNil(t, name.DefaultValue)
	assert.Equal(t, "'anon'", *name.DefaultValue)
	assert.Nil(t, name.MaxLength)
}

func TestIntrospector_InspectTableNotFound(t *testing.T) {
	d, _ := setupDriver(t)
	p := NewIntrospector(d.CreateQueryRunner())

	_, err := p.InspectTable(context.Background(), "main", "nope")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestIntrospector_InspectSchema(t *testing.T) {
	d, _ := setupDriver(t)
	p := NewIntrospector(d.CreateQueryRunner())

	info, err := p.InspectSchema(context.Background(), "main")
	require.NoError(t, err)
	require.Len(t, info.Tables, 2)
	require.Len(t, info.ForeignKeys, 1)

	fk := info.ForeignKeys[0]
	assert.Equal(t, "post", fk.FromTable)
	assert.Equal(t, "author_id", fk.FromColumn)
	assert.Equal(t, "author", fk.ToTable)
	assert.Equal(t, "id", fk.ToColumn)
	assert.Equal(t, "CASCADE", fk.OnDelete)
}

func TestDeclaredLength(t *testing.T) {
	n := declaredLength("NVARCHAR( 32 )")
	require.NotNil(t, n)
	assert.Equal(t, 32, *n)
	assert.Nil(t, declaredLength("TEXT"))
}
