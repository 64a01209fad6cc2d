// Package errs provides the unified error type used across litequery.
//
// Every subsystem (driver, native binding, snapshot store) wraps its
// native errors into *errs.Error before returning them to callers. Failed
// statements are reported as *errs.QueryError so the original SQL and its
// bindings can be recovered for diagnostics. Callers use the Is* predicates
// to handle errors without importing binding-specific packages.
//
// Usage:
//
//	// In a binding, wrap native errors:
//	return errs.Wrap(errs.ErrKindBusy, "database is locked", nativeErr)
//
//	// In a caller, check the error kind:
//	if errs.IsRunnerReleased(err) {
//	    runner = drv.CreateQueryRunner()
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing binding-specific codes.
type ErrKind int

const (
	ErrKindUnknown            ErrKind = iota
	ErrKindNotFound                   // no rows, no object, no bucket
	ErrKindConnectionFailed           // open, close or attach failure
	ErrKindTimeout                    // context deadline / cancellation
	ErrKindQueryFailed                // statement prepare / bind / execute failure
	ErrKindInvalidInput               // bad arguments from the caller
	ErrKindPermissionDenied           // read-only database, access denied
	ErrKindDependencyMissing          // native engine binding unavailable
	ErrKindConnectionNotReady         // query before initialization completed
	ErrKindRunnerReleased             // query on a released runner
	ErrKindBusy                       // lock contention outlived the busy timeout
	ErrKindConstraint                 // constraint violation reported by the engine
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindDependencyMissing:
		return "dependency_missing"
	case ErrKindConnectionNotReady:
		return "connection_not_ready"
	case ErrKindRunnerReleased:
		return "runner_released"
	case ErrKindBusy:
		return "busy"
	case ErrKindConstraint:
		return "constraint"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by litequery subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original binding-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// QueryError reports a statement that failed to prepare, bind or execute.
// It carries the SQL text and the bound parameters next to the engine error.
type QueryError struct {
	Query      string
	Parameters []any
	Cause      error
}

func (e *QueryError) Error() string {
	if len(e.Parameters) > 0 {
		return fmt.Sprintf("[%s] query failed: %v (query: %s, parameters: %v)",
			ErrKindQueryFailed, e.Cause, e.Query, e.Parameters)
	}
	return fmt.Sprintf("[%s] query failed: %v (query: %s)", ErrKindQueryFailed, e.Cause, e.Query)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// NewQueryError wraps an engine failure together with the statement that caused it.
// The parameter slice is copied so later mutation by the caller does not leak in.
func NewQueryError(query string, params []any, cause error) *QueryError {
	var cp []any
	if params != nil {
		cp = make([]any, len(params))
		copy(cp, params)
	}
	return &QueryError{Query: query, Parameters: cp, Cause: cause}
}

// DependencyMissing reports that the named native binding could not be located.
func DependencyMissing(binding string) *Error {
	return New(ErrKindDependencyMissing,
		fmt.Sprintf("sqlite binding %q is not registered; import its package or set Options.Binding", binding))
}

// ConnectionNotReady reports a query issued before the connection finished initializing.
func ConnectionNotReady(driver string) *Error {
	return New(ErrKindConnectionNotReady, fmt.Sprintf("connection with %s database is not established", driver))
}

// RunnerReleased reports use of a query runner after Release.
func RunnerReleased() *Error {
	return New(ErrKindRunnerReleased, "query runner already released, cannot run queries anymore")
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is an open, close or attach failure.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a statement execution failure.
func IsQueryFailed(err error) bool {
	return kindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// IsDependencyMissing reports whether the native engine binding was unavailable.
func IsDependencyMissing(err error) bool {
	return kindOf(err) == ErrKindDependencyMissing
}

// IsConnectionNotReady reports whether a query ran before initialization completed.
func IsConnectionNotReady(err error) bool {
	return kindOf(err) == ErrKindConnectionNotReady
}

// IsRunnerReleased reports whether a released runner was used.
func IsRunnerReleased(err error) bool {
	return kindOf(err) == ErrKindRunnerReleased
}

// IsBusy reports whether lock contention appears anywhere in the chain.
// Unlike the other predicates it looks past an enclosing QueryError.
func IsBusy(err error) bool {
	return hasKind(err, ErrKindBusy)
}

// IsConstraint reports whether a constraint violation appears anywhere in the chain.
func IsConstraint(err error) bool {
	return hasKind(err, ErrKindConstraint)
}

// AsQueryError returns the QueryError in err's chain, if any.
func AsQueryError(err error) (*QueryError, bool) {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// kindOf returns the kind of the outermost typed error in the chain.
// Joined errors are searched in order.
func kindOf(err error) ErrKind {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Kind
		case *QueryError:
			return ErrKindQueryFailed
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				if k := kindOf(inner); k != ErrKindUnknown {
					return k
				}
			}
			return ErrKindUnknown
		}
		err = errors.Unwrap(err)
	}
	return ErrKindUnknown
}

func hasKind(err error, kind ErrKind) bool {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			if e.Kind == kind {
				return true
			}
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				if hasKind(inner, kind) {
					return true
				}
			}
			return false
		}
		err = errors.Unwrap(err)
	}
	return false
}
