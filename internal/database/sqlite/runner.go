package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/koustreak/litequery/internal/database"
	"github.com/koustreak/litequery/internal/errs"
)

type runnerState int

const (
	runnerActive runnerState = iota
	runnerReleased
)

// QueryRunner executes statements on the driver's connection.
type QueryRunner struct {
	driver *Driver

	// guarded by driver.mu
	state runnerState
	inTx  bool
}

var _ database.QueryRunner = (*QueryRunner)(nil)

// Query executes sql and returns the raw result: the rows for a
// row-returning statement, the last insert id otherwise.
func (r *QueryRunner) Query(ctx context.Context, sql string, params ...any) (any, error) {
	res, err := r.execute(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	return res.Raw, nil
}

// QueryStructured executes sql and returns the full result.
func (r *QueryRunner) QueryStructured(ctx context.Context, sql string, params ...any) (*database.QueryResult, error) {
	return r.execute(ctx, sql, params)
}

func (r *QueryRunner) execute(ctx context.Context, query string, params []any) (result *database.QueryResult, err error) {
	d := r.driver

	d.mu.Lock()
	released := r.state == runnerReleased
	ready := d.ready
	d.mu.Unlock()

	if released {
		return nil, errs.RunnerReleased()
	}
	if !ready {
		return nil, errs.ConnectionNotReady("sqlite")
	}

	d.logger.LogQuery(query, params)

	before := database.NewBroadcasterResult()
	d.broadcaster.BroadcastBeforeQuery(ctx, before, query, params)
	if err := before.Wait(); err != nil {
		return nil, d.rejected(ctx, query, params, err)
	}

	after := database.NewBroadcasterResult()
	defer func() {
		werr := after.Wait()
		if werr == nil {
			return
		}
		if err != nil {
			err = errors.Join(err, werr)
			return
		}
		result, err = nil, werr
	}()

	start := time.Now()
	res, execErr := d.execute(ctx, query, params)
	elapsed := time.Since(start)

	if execErr != nil {
		d.logger.LogQueryError(execErr, query, params)
		d.broadcaster.BroadcastAfterQuery(ctx, after, &database.AfterQueryEvent{
			Query:         query,
			Parameters:    params,
			Success:       false,
			ExecutionTime: elapsed,
			Err:           execErr,
		})
		return nil, errs.NewQueryError(query, params, execErr)
	}

	if limit := d.opts.MaxQueryExecutionTime; limit != nil && elapsed >= *limit {
		d.logger.LogQuerySlow(elapsed, query, params)
	}

	d.broadcaster.BroadcastAfterQuery(ctx, after, &database.AfterQueryEvent{
		Query:         query,
		Parameters:    params,
		Success:       true,
		ExecutionTime: elapsed,
		RawResults:    res.Raw,
	})
	return res, nil
}

// rejected closes the event pair of a statement a BeforeQuery listener
// refused, so every listener that saw BeforeQuery also sees AfterQuery.
// The statement never reached the engine.
func (d *Driver) rejected(ctx context.Context, query string, params []any, cause error) error {
	after := database.NewBroadcasterResult()
	d.broadcaster.BroadcastAfterQuery(ctx, after, &database.AfterQueryEvent{
		Query:      query,
		Parameters: params,
		Success:    false,
		Err:        cause,
	})
	if werr := after.Wait(); werr != nil {
		return errors.Join(cause, werr)
	}
	return cause
}

// execute prepares and runs one statement on the native handle.
// Parameters are bound positionally as given.
func (d *Driver) execute(ctx context.Context, query string, params []any) (*database.QueryResult, error) {
	d.execMu.Lock()
	defer d.execMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "query not started", err)
	}

	d.mu.Lock()
	h := d.handle
	d.mu.Unlock()
	if h == nil {
		return nil, errs.ConnectionNotReady("sqlite")
	}

	stmt, err := h.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	if stmt.Reader() {
		rows, err := stmt.All(ctx, params)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		return &database.QueryResult{Raw: rows, Records: rows}, nil
	}

	res, err := stmt.Run(ctx, params)
	if err != nil {
		return nil, err
	}
	changes := res.Changes
	return &database.QueryResult{Raw: res.LastInsertID, Affected: &changes}, nil
}

// BeforeMigration disables foreign key enforcement for bulk schema changes.
func (r *QueryRunner) BeforeMigration(ctx context.Context) error {
	r.driver.logger.LogMigration("disabling foreign keys")
	_, err := r.Query(ctx, "PRAGMA foreign_keys = OFF")
	return err
}

// AfterMigration re-enables foreign key enforcement.
func (r *QueryRunner) AfterMigration(ctx context.Context) error {
	r.driver.logger.LogMigration("enabling foreign keys")
	_, err := r.Query(ctx, "PRAGMA foreign_keys = ON")
	return err
}

// StartTransaction begins a transaction on the runner's connection.
func (r *QueryRunner) StartTransaction(ctx context.Context) error {
	if r.IsTransactionActive() {
		return errs.New(errs.ErrKindInvalidInput, "transaction already started")
	}
	if _, err := r.Query(ctx, "BEGIN TRANSACTION"); err != nil {
		return err
	}
	r.setTransaction(true)
	return nil
}

// CommitTransaction commits the active transaction.
func (r *QueryRunner) CommitTransaction(ctx context.Context) error {
	if !r.IsTransactionActive() {
		return errs.New(errs.ErrKindInvalidInput, "no transaction to commit")
	}
	if _, err := r.Query(ctx, "COMMIT"); err != nil {
		return err
	}
	r.setTransaction(false)
	return nil
}

// RollbackTransaction rolls back the active transaction.
func (r *QueryRunner) RollbackTransaction(ctx context.Context) error {
	if !r.IsTransactionActive() {
		return errs.New(errs.ErrKindInvalidInput, "no transaction to roll back")
	}
	if _, err := r.Query(ctx, "ROLLBACK"); err != nil {
		return err
	}
	r.setTransaction(false)
	return nil
}

// IsTransactionActive reports whether StartTransaction succeeded without a
// matching commit or rollback.
func (r *QueryRunner) IsTransactionActive() bool {
	r.driver.mu.Lock()
	defer r.driver.mu.Unlock()
	return r.inTx
}

func (r *QueryRunner) setTransaction(active bool) {
	r.driver.mu.Lock()
	r.inTx = active
	r.driver.mu.Unlock()
}

// Release marks the runner unusable and frees the driver's runner slot.
// Releasing twice is a no-op.
func (r *QueryRunner) Release() error {
	d := r.driver
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.state == runnerReleased {
		return nil
	}
	r.state = runnerReleased
	if d.runner == r {
		d.runner = nil
	}
	return nil
}

// IsReleased reports whether Release was called or the driver disconnected.
func (r *QueryRunner) IsReleased() bool {
	r.driver.mu.Lock()
	defer r.driver.mu.Unlock()
	return r.state == runnerReleased
}
