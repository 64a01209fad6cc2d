package database

import (
	"context"
	"time"
)

// QueryResult is the normalized outcome of one statement.
//
// Records is populated only for row-returning statements (never nil for
// those, possibly empty). Affected and Raw (the last insert id) are
// populated only for row-affecting statements. For row-returning
// statements Raw holds the same rows as Records.
type QueryResult struct {
	Raw      any
	Records  []map[string]any
	Affected *int64
}

// Querier executes SQL with positional parameters.
// Query returns only the Raw part of the result; QueryStructured returns all of it.
type Querier interface {
	Query(ctx context.Context, sql string, params ...any) (any, error)
	QueryStructured(ctx context.Context, sql string, params ...any) (*QueryResult, error)
}

// QueryRunner is the contract higher layers (CRUD, migrations,
// transactions) use to talk to a single connection.
type QueryRunner interface {
	Querier

	// BeforeMigration and AfterMigration bracket bulk schema changes.
	BeforeMigration(ctx context.Context) error
	AfterMigration(ctx context.Context) error

	StartTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error

	// Release marks the runner unusable. Subsequent queries fail.
	Release() error
	IsReleased() bool
}

// QueryLogger receives the query lifecycle log records.
type QueryLogger interface {
	LogQuery(query string, params []any)
	LogQueryError(err error, query string, params []any)
	LogQuerySlow(elapsed time.Duration, query string, params []any)
	LogMigration(msg string)
	Log(level, msg string)
}

// NopLogger discards every record.
type NopLogger struct{}

func (NopLogger) LogQuery(string, []any)                    {}
func (NopLogger) LogQueryError(error, string, []any)        {}
func (NopLogger) LogQuerySlow(time.Duration, string, []any) {}
func (NopLogger) LogMigration(string)                       {}
func (NopLogger) Log(string, string)                        {}
