package metadata

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/litequery/internal/database/sqlite"
)

func TestNewManyToMany(t *testing.T) {
	r, err := NewManyToMany("Category", "posts", RelationOptions{Lazy: true})
	require.NoError(t, err)
	assert.Equal(t, ManyToMany, r.Type)
	assert.True(t, r.IsLazy())

	r, err = NewManyToMany("Category", "posts", RelationOptions{})
	require.NoError(t, err)
	assert.False(t, r.IsLazy())

	_, err = NewManyToMany("Category", "", RelationOptions{Lazy: true, Eager: true})
	assert.Error(t, err)

	_, err = NewRelation(OneToMany, "", "author", RelationOptions{})
	assert.Error(t, err)
}

func TestEntity_TablePathRegistersAttachments(t *testing.T) {
	dir := t.TempDir()
	d := sqlite.New(sqlite.Options{Database: filepath.Join(dir, "main.db")}, nil)

	paths := ResolveAll(d,
		Entity{Name: "Post"},
		Entity{Name: "Comment", Table: "comment", Database: "shard/comments.db"},
		Entity{Name: "Reply", Table: "reply", Database: "shard/comments.db"},
	)

	assert.Equal(t, "Post", paths["Post"])
	assert.True(t, strings.HasSuffix(paths["Comment"], ".comment"))
	assert.True(t, strings.HasPrefix(paths["Comment"], "db_"))

	commentSchema, _, _ := strings.Cut(paths["Comment"], ".")
	replySchema, _, _ := strings.Cut(paths["Reply"], ".")
	assert.Equal(t, commentSchema, replySchema)

	attached := d.AttachedDatabases()
	require.Len(t, attached, 1)
	assert.Equal(t, filepath.Join(dir, "shard", "comments.db"), attached[0].AbsolutePath)
}
