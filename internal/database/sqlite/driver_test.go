package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/litequery/internal/database"
	"github.com/koustreak/litequery/internal/errs"
)

func newTestDriver(t *testing.T, opts Options) (*Driver, *fakeBinding, *recordingLogger) {
	t.Helper()
	b := newFakeBinding()
	opts.Binding = b
	if opts.Database == "" {
		opts.Database = MemoryDatabase
	}
	log := &recordingLogger{}
	return New(opts, log), b, log
}

func TestDriver_ConnectPragmaOrder(t *testing.T) {
	d, b, _ := newTestDriver(t, Options{
		Key:       `se"cret`,
		EnableWAL: true,
		PrepareDatabase: func(h Handle) error {
			return h.Pragma(context.Background(), "user_version = 7")
		},
	})

	require.NoError(t, d.Connect(context.Background()))

	assert.Equal(t, []string{
		`key = "se\"cret"`,
		"journal_mode = WAL",
		"user_version = 7",
		"foreign_keys = ON",
	}, b.handle.pragmas)
	assert.False(t, d.IsInitialized())
}

func TestDriver_ConnectMinimalPragmas(t *testing.T) {
	d, b, _ := newTestDriver(t, Options{})
	require.NoError(t, d.Connect(context.Background()))
	assert.Equal(t, []string{"foreign_keys = ON"}, b.handle.pragmas)
	assert.True(t, b.openOpts.Memory)
}

func TestDriver_ConnectPragmaFailureClosesHandle(t *testing.T) {
	d, b, _ := newTestDriver(t, Options{EnableWAL: true})
	b.handle.failPragma["foreign_keys = ON"] = errors.New("disk I/O error")

	err := d.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
	assert.True(t, b.handle.isClosed())
	assert.False(t, d.IsInitialized())
	assert.Equal(t, []string{"journal_mode = WAL", "foreign_keys = ON"}, b.handle.pragmas)
}

func TestDriver_PrepareDatabaseFailure(t *testing.T) {
	d, b, _ := newTestDriver(t, Options{
		PrepareDatabase: func(h Handle) error { return errors.New("extension not found") },
	})

	err := d.Connect(context.Background())
	assert.True(t, errs.IsConnectionFailed(err))
	assert.True(t, b.handle.isClosed())
	assert.Empty(t, b.handle.pragmas)
}

func TestDriver_OpenFailure(t *testing.T) {
	d, b, _ := newTestDriver(t, Options{})
	b.openErr = errors.New("unable to open database file")

	err := d.Connect(context.Background())
	assert.True(t, errs.IsConnectionFailed(err))
	assert.Contains(t, err.Error(), "unable to open database file")
}

func TestDriver_DependencyMissing(t *testing.T) {
	d := New(Options{Database: MemoryDatabase, BindingName: "not-registered"}, nil)
	err := d.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsDependencyMissing(err))
	assert.Contains(t, err.Error(), "not-registered")
}

func TestDriver_MissingDatabasePath(t *testing.T) {
	d := New(Options{}, nil)
	assert.True(t, errs.IsInvalidInput(d.Connect(context.Background())))
}

func TestDriver_ConnectTwice(t *testing.T) {
	d, _, _ := newTestDriver(t, Options{})
	require.NoError(t, d.Connect(context.Background()))
	assert.True(t, errs.IsConnectionFailed(d.Connect(context.Background())))
}

func TestDriver_CreatesDatabaseDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.db")
	d, b, _ := newTestDriver(t, Options{Database: path, ReadOnly: true})

	require.NoError(t, d.Connect(context.Background()))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, []string{path}, b.opened)
	assert.True(t, b.openOpts.ReadOnly)
	assert.False(t, b.openOpts.Memory)
}

func TestDriver_DefaultVerboseUsesLogger(t *testing.T) {
	d, b, log := newTestDriver(t, Options{})
	require.NoError(t, d.Connect(context.Background()))

	require.NotNil(t, b.openOpts.Verbose)
	b.openOpts.Verbose("PRAGMA foreign_keys = ON")
	assert.Equal(t, []string{"log:PRAGMA foreign_keys = ON"}, log.logs)
}

func TestDriver_Disconnect(t *testing.T) {
	d, b, _ := newTestDriver(t, Options{})

	err := d.Disconnect()
	assert.True(t, errs.IsConnectionFailed(err))

	require.NoError(t, d.Initialize(context.Background()))
	runner := d.CreateQueryRunner()

	require.NoError(t, d.Disconnect())
	assert.True(t, b.handle.isClosed())
	assert.False(t, d.IsInitialized())
	assert.True(t, runner.IsReleased())

	_, err = runner.Query(context.Background(), "SELECT 1")
	assert.True(t, errs.IsRunnerReleased(err))
}

func TestDriver_CreateQueryRunnerReusesLiveRunner(t *testing.T) {
	d, _, _ := newTestDriver(t, Options{})
	require.NoError(t, d.Initialize(context.Background()))

	r1 := d.CreateQueryRunner()
	assert.Same(t, r1, d.CreateQueryRunner())

	require.NoError(t, r1.Release())
	require.NoError(t, r1.Release())
	r2 := d.CreateQueryRunner()
	assert.NotSame(t, r1, r2)
	assert.False(t, r2.IsReleased())
}

func TestOptions_Type(t *testing.T) {
	assert.Equal(t, database.DriverSQLite, Options{Database: "x.db"}.Type())
	assert.True(t, Options{Database: MemoryDatabase}.IsMemory())
	assert.False(t, Options{Database: "x.db"}.IsMemory())
}

func TestRegister(t *testing.T) {
	name := fmt.Sprintf("fake-%d", time.Now().UnixNano())
	Register(name, newFakeBinding())
	assert.Contains(t, Bindings(), name)

	assert.Panics(t, func() { Register(name, newFakeBinding()) })
	assert.Panics(t, func() { Register("fake-nil", nil) })

	d := New(Options{Database: MemoryDatabase, BindingName: name}, nil)
	require.NoError(t, d.Connect(context.Background()))
}

func TestBuildTableName(t *testing.T) {
	d := New(Options{Database: "/data/a.db"}, nil)

	assert.Equal(t, "post", d.BuildTableName("post", "", ""))
	assert.Equal(t, "post", d.BuildTableName("post", "", "/data/a.db"))
	assert.Equal(t, "post", d.BuildTableName("post", "", "a.db"))

	path := d.BuildTableName("post", "", "shard/b.db")
	handle := attachHandle("shard/b.db")
	assert.Equal(t, handle+".post", path)
	assert.Equal(t, path, d.BuildTableName("post", "ignored", "shard/b.db"))
	assert.Equal(t, handle+".comment", d.BuildTableName("comment", "", "shard/b.db"))

	abs := d.BuildTableName("user", "", "/other/c.db")
	assert.True(t, strings.HasSuffix(abs, ".user"))

	attached := d.AttachedDatabases()
	require.Len(t, attached, 2)
	assert.Equal(t, AttachedDatabase{
		AbsolutePath: "/other/c.db",
		RelativePath: "/other/c.db",
		Handle:       attachHandle("/other/c.db"),
	}, attached[0])
	assert.Equal(t, AttachedDatabase{
		AbsolutePath: filepath.Join("/data", "shard", "b.db"),
		RelativePath: "shard/b.db",
		Handle:       handle,
	}, attached[1])
}

func TestBuildTableName_MemoryPrimaryUsesWorkingDirectory(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	d := New(Options{Database: MemoryDatabase}, nil)
	d.BuildTableName("post", "", "b.db")

	attached := d.AttachedDatabases()
	require.Len(t, attached, 1)
	assert.Equal(t, filepath.Join(wd, "b.db"), attached[0].AbsolutePath)
}

func TestAttachHandle(t *testing.T) {
	h := attachHandle("shard/b.db")
	assert.True(t, strings.HasPrefix(h, "db_"))
	assert.Len(t, h, len("db_")+16)
	assert.Equal(t, h, attachHandle("Shard/B.db"))
	assert.NotEqual(t, h, attachHandle("shard/c.db"))
}

func TestDriver_InitializeAttachesDatabases(t *testing.T) {
	dir := t.TempDir()
	d, b, log := newTestDriver(t, Options{Database: filepath.Join(dir, "main.db")})

	d.BuildTableName("post", "", "sub/other.db")
	require.NoError(t, d.Initialize(context.Background()))

	abs := filepath.Join(dir, "sub", "other.db")
	want := `ATTACH "` + abs + `" AS "` + attachHandle("sub/other.db") + `"`
	assert.Equal(t, []string{want}, b.handle.preparedSQL())
	assert.Equal(t, []string{want}, log.queries)

	_, err := os.Stat(filepath.Join(dir, "sub"))
	assert.NoError(t, err)
	assert.True(t, d.IsInitialized())
}

func TestDriver_InitializeAttachFailure(t *testing.T) {
	dir := t.TempDir()
	d, b, _ := newTestDriver(t, Options{Database: filepath.Join(dir, "main.db")})

	d.BuildTableName("post", "", "other.db")
	abs := filepath.Join(dir, "other.db")
	b.handle.failPrepare[`ATTACH "`+abs+`" AS "`+attachHandle("other.db")+`"`] = errors.New("too many attached databases")

	err := d.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
	assert.False(t, d.IsInitialized())
	assert.True(t, b.handle.isClosed())
}
