package sqlite

import (
	"time"

	"github.com/koustreak/litequery/internal/database"
)

// MemoryDatabase is the path that selects a private in-memory database.
const MemoryDatabase = ":memory:"

// DefaultBindingName is the registry name looked up when Options.BindingName is empty.
const DefaultBindingName = "sqlite3"

// Options configures a Driver. It is read once by New and not mutated afterwards.
type Options struct {
	// Database is the primary database file, or ":memory:".
	Database string

	// Key, when set, is applied with PRAGMA key before anything else.
	Key string

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool

	ReadOnly      bool
	FileMustExist bool

	// BusyTimeout is how long the engine waits on a locked database.
	// Zero keeps the binding's default.
	BusyTimeout time.Duration

	// Verbose receives every statement the binding prepares.
	// Defaults to the query logger at level "log".
	Verbose func(msg string)

	// Binding overrides the registry lookup.
	Binding Binding

	// BindingName selects a registered binding. Defaults to "sqlite3".
	BindingName string

	// PrepareDatabase runs on the raw handle after the journal pragma and
	// before foreign keys are enabled.
	PrepareDatabase func(h Handle) error

	// MaxQueryExecutionTime is the slow-query threshold. Nil disables it;
	// a zero duration logs every query.
	MaxQueryExecutionTime *time.Duration
}

// Type reports the engine family. It is always SQLite.
func (o Options) Type() database.DriverType {
	return database.DriverSQLite
}

// IsMemory reports whether the primary database lives in memory.
func (o Options) IsMemory() bool {
	return o.Database == MemoryDatabase
}

func (o Options) bindingName() string {
	if o.BindingName == "" {
		return DefaultBindingName
	}
	return o.BindingName
}
