// Package sqlite is the embedded SQLite driver. A Driver owns one native
// connection, configures it, attaches secondary database files and hands
// out the QueryRunner that executes statements on it.
//
// The native engine is reached through a Binding. The default binding lives
// in the mattn subpackage and registers itself as "sqlite3":
//
//	import _ "github.com/koustreak/litequery/internal/database/sqlite/mattn"
//
//	d := sqlite.New(sqlite.Options{Database: "data/app.db", EnableWAL: true}, log)
//	if err := d.Initialize(ctx); err != nil { ... }
//	defer d.Disconnect()
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/koustreak/litequery/internal/database"
	"github.com/koustreak/litequery/internal/errs"
)

// Driver manages the lifecycle of one SQLite connection.
// It is safe for concurrent use.
type Driver struct {
	opts        Options
	logger      database.QueryLogger
	broadcaster *database.Broadcaster

	// execMu serializes native execution. When both locks are needed,
	// execMu is taken first.
	execMu sync.Mutex

	mu       sync.Mutex
	handle   Handle
	ready    bool
	runner   *QueryRunner
	attached map[string]*AttachedDatabase
}

// New creates a Driver. It performs no I/O. A nil logger discards records.
func New(opts Options, log database.QueryLogger) *Driver {
	if log == nil {
		log = database.NopLogger{}
	}
	return &Driver{
		opts:        opts,
		logger:      log,
		broadcaster: database.NewBroadcaster(),
		attached:    make(map[string]*AttachedDatabase),
	}
}

// Options returns the options the driver was created with.
func (d *Driver) Options() Options {
	return d.opts
}

// Subscribe registers s for the query events of every runner of this driver.
func (d *Driver) Subscribe(s database.QuerySubscriber) {
	d.broadcaster.Subscribe(s)
}

// IsInitialized reports whether Initialize completed and the connection is usable.
func (d *Driver) IsInitialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

// Initialize connects, marks the driver ready and attaches the registered
// database files. If attaching fails the connection is closed again.
func (d *Driver) Initialize(ctx context.Context) error {
	if err := d.Connect(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	d.ready = true
	d.mu.Unlock()

	if err := d.AfterConnect(ctx); err != nil {
		if cerr := d.Disconnect(); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}
	return nil
}

// Connect opens and configures the native connection.
//
// Pragmas run in a fixed order: key, journal mode, the PrepareDatabase
// hook, then foreign keys. A failure at any step closes the handle.
func (d *Driver) Connect(ctx context.Context) error {
	if d.opts.Database == "" {
		return errs.New(errs.ErrKindInvalidInput, "database path is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "connecting to database", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle != nil {
		return errs.New(errs.ErrKindConnectionFailed, "database already connected")
	}

	binding, err := d.resolveBinding()
	if err != nil {
		return err
	}

	if !d.opts.IsMemory() {
		if err := os.MkdirAll(filepath.Dir(d.opts.Database), 0o750); err != nil {
			return errs.Wrap(errs.ErrKindConnectionFailed, "creating database directory", err)
		}
	}

	verbose := d.opts.Verbose
	if verbose == nil {
		verbose = func(msg string) { d.logger.Log("log", msg) }
	}

	h, err := binding.Open(ctx, d.opts.Database, OpenOptions{
		ReadOnly:      d.opts.ReadOnly,
		FileMustExist: d.opts.FileMustExist,
		Memory:        d.opts.IsMemory(),
		BusyTimeout:   d.opts.BusyTimeout,
		Verbose:       verbose,
	})
	if err != nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, fmt.Sprintf("opening database %q", d.opts.Database), err)
	}

	if err := d.configure(ctx, h); err != nil {
		_ = h.Close()
		return err
	}

	d.handle = h
	return nil
}

func (d *Driver) configure(ctx context.Context, h Handle) error {
	if d.opts.Key != "" {
		quoted, err := json.Marshal(d.opts.Key)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "encoding encryption key", err)
		}
		if err := h.Pragma(ctx, "key = "+string(quoted)); err != nil {
			return errs.Wrap(errs.ErrKindConnectionFailed, "applying encryption key", err)
		}
	}

	if d.opts.EnableWAL {
		if err := h.Pragma(ctx, "journal_mode = WAL"); err != nil {
			return errs.Wrap(errs.ErrKindConnectionFailed, "enabling WAL journal", err)
		}
	}

	if d.opts.PrepareDatabase != nil {
		if err := d.opts.PrepareDatabase(h); err != nil {
			return errs.Wrap(errs.ErrKindConnectionFailed, "preparing database", err)
		}
	}

	if err := h.Pragma(ctx, "foreign_keys = ON"); err != nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, "enabling foreign keys", err)
	}
	return nil
}

func (d *Driver) resolveBinding() (Binding, error) {
	if d.opts.Binding != nil {
		return d.opts.Binding, nil
	}
	name := d.opts.bindingName()
	b, ok := lookupBinding(name)
	if !ok {
		return nil, errs.DependencyMissing(name)
	}
	return b, nil
}

// AfterConnect attaches every database file registered through BuildTableName.
func (d *Driver) AfterConnect(ctx context.Context) error {
	return d.attachDatabases(ctx)
}

// Disconnect releases the outstanding runner and closes the connection.
func (d *Driver) Disconnect() error {
	d.execMu.Lock()
	defer d.execMu.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle == nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, "closing database", errors.New("not open"))
	}

	if d.runner != nil {
		d.runner.state = runnerReleased
		d.runner = nil
	}
	h := d.handle
	d.handle = nil
	d.ready = false

	if err := h.Close(); err != nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, "closing database", err)
	}
	return nil
}

// CreateQueryRunner returns the driver's live runner, creating it if needed.
// A single connection backs the driver, so there is at most one runner.
func (d *Driver) CreateQueryRunner() *QueryRunner {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.runner == nil {
		d.runner = &QueryRunner{driver: d}
	}
	return d.runner
}

// Query runs a statement through the driver's runner and returns its raw result.
func (d *Driver) Query(ctx context.Context, sql string, params ...any) (any, error) {
	return d.CreateQueryRunner().Query(ctx, sql, params...)
}
