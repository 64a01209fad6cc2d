package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/litequery/internal/errs"
	"github.com/koustreak/litequery/internal/schema"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DatabaseEntry is one element of the /databases response.
type DatabaseEntry struct {
	Name         string `json:"name"`
	File         string `json:"file,omitempty"`
	RelativePath string `json:"relative_path,omitempty"`
}

// TableResponse is the /databases/{name}/tables/{table} response.
type TableResponse struct {
	Table       *schema.TableInfo   `json:"table"`
	ForeignKeys []schema.ForeignKey `json:"foreign_keys"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Connection == nil || !s.opts.Connection.IsInitialized() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := s.opts.Schema.ListDatabases(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}

	declared := make(map[string]string)
	if s.opts.Connection != nil {
		for _, a := range s.opts.Connection.AttachedDatabases() {
			declared[a.Handle] = a.RelativePath
		}
	}

	out := make([]DatabaseEntry, 0, len(dbs))
	for _, db := range dbs {
		out = append(out, DatabaseEntry{Name: db.Name, File: db.File, RelativePath: declared[db.Name]})
	}
	writeJSON(w, http.StatusOK, out)
}

// requireDatabase fails with NotFound unless name is on the connection's
// database list. SQLite schema names compare case-insensitively.
func (s *Server) requireDatabase(ctx context.Context, name string) error {
	dbs, err := s.opts.Schema.ListDatabases(ctx)
	if err != nil {
		return err
	}
	for _, db := range dbs {
		if strings.EqualFold(db.Name, name) {
			return nil
		}
	}
	return errs.New(errs.ErrKindNotFound, fmt.Sprintf("database %q is not attached", name))
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	ctx, name := r.Context(), chi.URLParam(r, "name")
	if err := s.requireDatabase(ctx, name); err != nil {
		s.writeErr(w, err)
		return
	}

	tables, err := s.opts.Schema.ListTables(ctx, name)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, table := chi.URLParam(r, "name"), chi.URLParam(r, "table")
	if err := s.requireDatabase(ctx, name); err != nil {
		s.writeErr(w, err)
		return
	}

	info, err := s.opts.Schema.InspectTable(ctx, name, table)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	fks, err := s.opts.Schema.ListForeignKeys(ctx, name, table)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TableResponse{Table: info, ForeignKeys: fks})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	objs, err := s.opts.Snapshots.List(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}

func (s *Server) handleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	results, err := s.opts.Snapshots.Snapshot(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, results)
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("admin request failed", err, nil)
	}
	writeJSON(w, status, Error{Status: status, Code: code, Message: err.Error()})
}

func statusFor(err error) (int, string) {
	switch {
	case errs.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errs.IsInvalidInput(err):
		return http.StatusBadRequest, "bad_request"
	case errs.IsPermissionDenied(err):
		return http.StatusForbidden, "forbidden"
	case errs.IsConnectionNotReady(err), errs.IsRunnerReleased(err), errs.IsBusy(err):
		return http.StatusServiceUnavailable, "unavailable"
	case errs.IsTimeout(err):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
