package mattn

import (
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/koustreak/litequery/internal/errs"
)

// mapError translates a go-sqlite3 error into a litequery *errs.Error.
// The original error is kept as the cause.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var se sqlite3.Error
	if !errors.As(err, &se) {
		return errs.Wrap(errs.ErrKindQueryFailed, "sqlite", err)
	}

	switch se.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return errs.Wrap(errs.ErrKindBusy, "database is busy", err)
	case sqlite3.ErrConstraint:
		return errs.Wrap(errs.ErrKindConstraint, "constraint violation", err)
	case sqlite3.ErrReadonly, sqlite3.ErrPerm, sqlite3.ErrAuth:
		return errs.Wrap(errs.ErrKindPermissionDenied, "permission denied", err)
	case sqlite3.ErrCantOpen, sqlite3.ErrNotADB:
		return errs.Wrap(errs.ErrKindConnectionFailed, "cannot open database", err)
	default:
		return errs.Wrap(errs.ErrKindQueryFailed, "sqlite", err)
	}
}
