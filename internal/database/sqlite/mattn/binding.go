// Package mattn provides the default SQLite binding on top of
// github.com/mattn/go-sqlite3. Importing it registers the binding as
// "sqlite3". The package requires cgo.
package mattn

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/koustreak/litequery/internal/database/sqlite"
	"github.com/koustreak/litequery/internal/errs"
)

func init() {
	sqlite.Register(sqlite.DefaultBindingName, Binding{})
}

// Binding opens connections through the mattn/go-sqlite3 driver.
type Binding struct{}

var _ sqlite.Binding = Binding{}

// Open opens path. Read-only handles use mode=ro, FileMustExist uses
// mode=rw, anything else creates the file when missing.
func (Binding) Open(ctx context.Context, path string, opts sqlite.OpenOptions) (sqlite.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "opening database", err)
	}

	conn, err := (&sqlite3.SQLiteDriver{}).Open(dsn(path, opts))
	if err != nil {
		return nil, mapError(err)
	}
	c, ok := conn.(*sqlite3.SQLiteConn)
	if !ok {
		_ = conn.Close()
		return nil, errs.New(errs.ErrKindConnectionFailed, fmt.Sprintf("unexpected connection type %T", conn))
	}
	return &handle{conn: c, verbose: opts.Verbose}, nil
}

func dsn(path string, opts sqlite.OpenOptions) string {
	params := url.Values{}
	if opts.BusyTimeout > 0 {
		params.Set("_busy_timeout", strconv.FormatInt(opts.BusyTimeout.Milliseconds(), 10))
	}

	if opts.Memory {
		if len(params) == 0 {
			return sqlite.MemoryDatabase
		}
		return "file::memory:?" + params.Encode()
	}

	switch {
	case opts.ReadOnly:
		params.Set("mode", "ro")
	case opts.FileMustExist:
		params.Set("mode", "rw")
	default:
		params.Set("mode", "rwc")
	}
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + params.Encode()
}

type handle struct {
	conn    *sqlite3.SQLiteConn
	verbose func(string)
}

func (h *handle) trace(sql string) {
	if h.verbose != nil {
		h.verbose(sql)
	}
}

func (h *handle) Pragma(ctx context.Context, directive string) error {
	q := "PRAGMA " + directive
	h.trace(q)
	if _, err := h.conn.ExecContext(ctx, q, nil); err != nil {
		return mapError(err)
	}
	return nil
}

// Prepare compiles sql and asks the engine whether it returns rows.
// Opening a cursor on a mattn statement does not step it, so the column
// count is read without executing anything. sql must hold exactly one
// statement; only whitespace, semicolons and comments may follow it.
func (h *handle) Prepare(ctx context.Context, sql string) (sqlite.Statement, error) {
	h.trace(sql)

	st, err := h.conn.PrepareContext(ctx, sql)
	if err != nil {
		return nil, mapError(err)
	}
	s, ok := st.(preparedStmt)
	if !ok {
		_ = st.Close()
		return nil, errs.New(errs.ErrKindQueryFailed, fmt.Sprintf("unexpected statement type %T", st))
	}
	if rest := tail(st); !onlyComments(rest) {
		_ = s.Close()
		return nil, errs.New(errs.ErrKindInvalidInput, "the SQL string contains more than one statement")
	}

	rows, err := s.QueryContext(ctx, nil)
	if err != nil {
		_ = s.Close()
		return nil, mapError(err)
	}
	reader := len(rows.Columns()) > 0
	if err := rows.Close(); err != nil {
		_ = s.Close()
		return nil, mapError(err)
	}

	return &statement{stmt: s, reader: reader}, nil
}

func (h *handle) Close() error {
	if err := h.conn.Close(); err != nil {
		return mapError(err)
	}
	return nil
}

type preparedStmt interface {
	driver.Stmt
	driver.StmtQueryContext
	driver.StmtExecContext
}

type statement struct {
	stmt   preparedStmt
	reader bool
}

func (s *statement) Reader() bool { return s.reader }

// checkArgs fails unless args fill every placeholder exactly.
func (s *statement) checkArgs(args []any) error {
	n := s.stmt.NumInput()
	if n < 0 || len(args) == n {
		return nil
	}
	if len(args) < n {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("too few parameter values: statement expects %d, got %d", n, len(args)))
	}
	return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("too many parameter values: statement expects %d, got %d", n, len(args)))
}

// All runs the statement and reads every row. BLOB values are copied out of
// the driver's buffers.
func (s *statement) All(ctx context.Context, args []any) ([]map[string]any, error) {
	if err := s.checkArgs(args); err != nil {
		return nil, err
	}
	named, err := namedValues(args)
	if err != nil {
		return nil, err
	}

	rows, err := s.stmt.QueryContext(ctx, named)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	cols := rows.Columns()
	dest := make([]driver.Value, len(cols))
	out := []map[string]any{}
	for {
		if err := rows.Next(dest); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, mapError(err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := dest[i].([]byte); ok {
				row[col] = bytes.Clone(b)
				continue
			}
			row[col] = dest[i]
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *statement) Run(ctx context.Context, args []any) (sqlite.RunResult, error) {
	if err := s.checkArgs(args); err != nil {
		return sqlite.RunResult{}, err
	}
	named, err := namedValues(args)
	if err != nil {
		return sqlite.RunResult{}, err
	}

	res, err := s.stmt.ExecContext(ctx, named)
	if err != nil {
		return sqlite.RunResult{}, mapError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return sqlite.RunResult{}, mapError(err)
	}
	changes, err := res.RowsAffected()
	if err != nil {
		return sqlite.RunResult{}, mapError(err)
	}
	return sqlite.RunResult{LastInsertID: id, Changes: changes}, nil
}

func (s *statement) Close() error {
	return s.stmt.Close()
}

// namedValues binds args positionally, keeping their Go types where the
// engine has a matching storage class.
func namedValues(args []any) ([]driver.NamedValue, error) {
	out := make([]driver.NamedValue, len(args))
	for i, a := range args {
		v, err := driver.DefaultParameterConverter.ConvertValue(a)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("binding parameter %d", i+1), err)
		}
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out, nil
}

// tail returns the SQL left over after the first statement. mattn keeps
// it, trimmed, in the unexported field t of *sqlite3.SQLiteStmt and only
// runs it from Exec on the connection.
func tail(st driver.Stmt) string {
	v := reflect.ValueOf(st)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return ""
	}
	f := v.Elem().FieldByName("t")
	if !f.IsValid() || f.Kind() != reflect.String {
		return ""
	}
	return f.String()
}

// onlyComments reports whether rest holds nothing but whitespace,
// semicolons and SQL comments.
func onlyComments(rest string) bool {
	for rest != "" {
		switch {
		case strings.HasPrefix(rest, "--"):
			i := strings.IndexByte(rest, '\n')
			if i < 0 {
				return true
			}
			rest = rest[i+1:]
		case strings.HasPrefix(rest, "/*"):
			i := strings.Index(rest[2:], "*/")
			if i < 0 {
				return true
			}
			rest = rest[i+4:]
		case strings.ContainsRune(" ;\t\n\r\f\v", rune(rest[0])):
			rest = rest[1:]
		default:
			return false
		}
	}
	return true
}
