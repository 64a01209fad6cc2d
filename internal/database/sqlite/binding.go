package sqlite

import (
	"context"
	"sort"
	"sync"
	"time"
)

// OpenOptions is what a Binding receives when opening a handle.
type OpenOptions struct {
	ReadOnly      bool
	FileMustExist bool
	Memory        bool
	BusyTimeout   time.Duration
	Verbose       func(msg string)
}

// Binding is a native SQLite implementation. Bindings register themselves
// with Register, usually from an init function.
type Binding interface {
	Open(ctx context.Context, path string, opts OpenOptions) (Handle, error)
}

// Handle is one open native connection.
type Handle interface {
	// Pragma runs "PRAGMA " + directive.
	Pragma(ctx context.Context, directive string) error
	Prepare(ctx context.Context, sql string) (Statement, error)
	Close() error
}

// Statement is a prepared statement. Reader reports whether the statement
// returns rows, as decided by the engine at prepare time.
type Statement interface {
	Reader() bool
	All(ctx context.Context, args []any) ([]map[string]any, error)
	Run(ctx context.Context, args []any) (RunResult, error)
	Close() error
}

// RunResult is the outcome of a row-affecting statement.
type RunResult struct {
	LastInsertID int64
	Changes      int64
}

var (
	bindingsMu sync.RWMutex
	bindings   = make(map[string]Binding)
)

// Register makes a binding available by name.
// It panics if b is nil or name is already registered.
func Register(name string, b Binding) {
	bindingsMu.Lock()
	defer bindingsMu.Unlock()
	if b == nil {
		panic("sqlite: Register binding is nil")
	}
	if _, dup := bindings[name]; dup {
		panic("sqlite: Register called twice for binding " + name)
	}
	bindings[name] = b
}

// Bindings returns the sorted names of the registered bindings.
func Bindings() []string {
	bindingsMu.RLock()
	defer bindingsMu.RUnlock()
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupBinding(name string) (Binding, bool) {
	bindingsMu.RLock()
	defer bindingsMu.RUnlock()
	b, ok := bindings[name]
	return b, ok
}
