package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/koustreak/litequery/internal/database"
	"github.com/koustreak/litequery/internal/errs"
)

// AttachedDatabase is a secondary database file referenced by a table path.
type AttachedDatabase struct {
	// AbsolutePath is the file that gets attached.
	AbsolutePath string
	// RelativePath is the identifier as declared by the caller.
	RelativePath string
	// Handle is the schema name the file is attached under.
	Handle string
}

// attachHandle derives the schema name for a declared database path.
// It depends only on the declared text, so the same declaration maps to the
// same handle on every machine.
func attachHandle(declared string) string {
	key := strings.ToLower(filepath.ToSlash(declared))
	return fmt.Sprintf("db_%016x", xxhash.Sum64String(key))
}

// BuildTableName returns the path a table is addressed by. Tables in the
// primary database keep their bare name; tables in another database file get
// "<handle>.<table>" and the file is registered for attachment.
// SQLite has no schemas besides attach names, so schema is ignored.
func (d *Driver) BuildTableName(table, schema, databasePath string) string {
	if databasePath == "" {
		return table
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if a, ok := d.attached[databasePath]; ok {
		return a.Handle + "." + table
	}
	if databasePath == d.opts.Database {
		return table
	}

	abs := d.resolveAttachPath(databasePath)
	if !d.opts.IsMemory() && abs == d.primaryPath() {
		return table
	}

	a := &AttachedDatabase{
		AbsolutePath: abs,
		RelativePath: databasePath,
		Handle:       attachHandle(databasePath),
	}
	d.attached[databasePath] = a
	return a.Handle + "." + table
}

// AttachedDatabases returns a copy of the registry, sorted by declared path.
func (d *Driver) AttachedDatabases() []AttachedDatabase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attachedLocked()
}

func (d *Driver) attachedLocked() []AttachedDatabase {
	out := make([]AttachedDatabase, 0, len(d.attached))
	for _, a := range d.attached {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out
}

// resolveAttachPath makes a declared path absolute. Relative paths are taken
// relative to the directory of the primary database file.
func (d *Driver) resolveAttachPath(declared string) string {
	if filepath.IsAbs(declared) {
		return filepath.Clean(declared)
	}
	return filepath.Join(d.primaryDir(), declared)
}

func (d *Driver) primaryPath() string {
	if filepath.IsAbs(d.opts.Database) {
		return filepath.Clean(d.opts.Database)
	}
	abs, err := filepath.Abs(d.opts.Database)
	if err != nil {
		return filepath.Clean(d.opts.Database)
	}
	return abs
}

func (d *Driver) primaryDir() string {
	if d.opts.IsMemory() {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		return wd
	}
	return filepath.Dir(d.primaryPath())
}

// attachDatabases attaches every registered file to the open connection.
func (d *Driver) attachDatabases(ctx context.Context) error {
	for _, a := range d.AttachedDatabases() {
		if err := os.MkdirAll(filepath.Dir(a.AbsolutePath), 0o750); err != nil {
			return errs.Wrap(errs.ErrKindConnectionFailed,
				fmt.Sprintf("creating directory for attached database %q", a.RelativePath), err)
		}
		stmt := fmt.Sprintf("ATTACH %s AS %s", database.QuoteIdent(a.AbsolutePath), database.QuoteIdent(a.Handle))
		if _, err := d.Query(ctx, stmt); err != nil {
			return errs.Wrap(errs.ErrKindConnectionFailed,
				fmt.Sprintf("attaching database %q", a.RelativePath), err)
		}
	}
	return nil
}
