// Package snapshot copies every database of a connection into object
// storage. Each schema (main and every attached file) is written with
// VACUUM INTO to a temporary file, which is then uploaded.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/litequery/internal/database"
	"github.com/koustreak/litequery/internal/errs"
	"github.com/koustreak/litequery/internal/filestore"
	"github.com/koustreak/litequery/internal/schema"
)

// Config controls where snapshots go.
type Config struct {
	// Bucket receives the snapshot objects.
	Bucket string
	// Prefix is prepended to every object key.
	Prefix string
	// TempDir holds the VACUUM INTO output until it is uploaded.
	// Empty uses the system temp directory.
	TempDir string
	// Uploads caps concurrent uploads. Zero means one per schema.
	Uploads int
}

// Snapshotter takes and lists snapshots.
type Snapshotter struct {
	db    database.Querier
	store filestore.Store
	cfg   Config
	now   func() time.Time
}

// Result is one uploaded schema.
type Result struct {
	Schema string               `json:"schema"`
	Object filestore.ObjectInfo `json:"object"`
}

// New creates a Snapshotter that reads through db and writes to store.
func New(db database.Querier, store filestore.Store, cfg Config) *Snapshotter {
	return &Snapshotter{db: db, store: store, cfg: cfg, now: time.Now}
}

// Snapshot writes every schema of the connection, except temp, to the store
// under <prefix>/<UTC timestamp>/<schema>.db.
func (s *Snapshotter) Snapshot(ctx context.Context) ([]Result, error) {
	if s.cfg.Bucket == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "snapshot bucket is required")
	}

	dbs, err := schema.NewIntrospector(s.db).ListDatabases(ctx)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(s.cfg.TempDir, "litequery-snapshot-*")
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "creating snapshot directory", err)
	}
	defer os.RemoveAll(dir)

	// VACUUM runs on the single connection, so the copies are taken one by one.
	var names []string
	for _, db := range dbs {
		if db.Name == "temp" {
			continue
		}
		file := filepath.Join(dir, db.Name+".db")
		stmt := fmt.Sprintf("VACUUM %s INTO %s", database.QuoteIdent(db.Name), quoteString(file))
		if _, err := s.db.Query(ctx, stmt); err != nil {
			return nil, fmt.Errorf("snapshot of %s: %w", db.Name, err)
		}
		names = append(names, db.Name)
	}

	if err := s.store.EnsureBucket(ctx, s.cfg.Bucket); err != nil {
		return nil, err
	}

	stamp := s.now().UTC().Format("20060102T150405Z")
	results := make([]Result, len(names))

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Uploads > 0 {
		g.SetLimit(s.cfg.Uploads)
	}
	for i, name := range names {
		g.Go(func() error {
			key := s.key(stamp, name+".db")
			info, err := s.store.PutFile(gctx, s.cfg.Bucket, key, filepath.Join(dir, name+".db"), filestore.ContentTypeSQLite)
			if err != nil {
				return fmt.Errorf("upload of %s: %w", name, err)
			}
			results[i] = Result{Schema: name, Object: *info}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// List returns the stored snapshot objects.
func (s *Snapshotter) List(ctx context.Context) ([]filestore.ObjectInfo, error) {
	prefix := ""
	if s.cfg.Prefix != "" {
		prefix = strings.TrimSuffix(s.cfg.Prefix, "/") + "/"
	}
	return s.store.ListObjects(ctx, s.cfg.Bucket, filestore.ListOptions{Prefix: prefix, Recursive: true})
}

// Restore downloads the snapshot object at key to dest. It does not touch
// the live connection; open dest with a new driver.
func (s *Snapshotter) Restore(ctx context.Context, key, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "creating restore directory", err)
	}
	return s.store.GetFile(ctx, s.cfg.Bucket, key, dest)
}

func (s *Snapshotter) key(parts ...string) string {
	if s.cfg.Prefix == "" {
		return path.Join(parts...)
	}
	return path.Join(append([]string{s.cfg.Prefix}, parts...)...)
}

func quoteString(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
