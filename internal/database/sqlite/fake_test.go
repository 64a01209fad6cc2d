package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeBinding records what the driver asks of the native layer.
type fakeBinding struct {
	mu       sync.Mutex
	openErr  error
	opened   []string
	openOpts OpenOptions
	handle   *fakeHandle
}

func newFakeBinding() *fakeBinding {
	return &fakeBinding{handle: newFakeHandle()}
}

func (b *fakeBinding) Open(ctx context.Context, path string, opts OpenOptions) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opened = append(b.opened, path)
	b.openOpts = opts
	return b.handle, nil
}

type fakeHandle struct {
	mu          sync.Mutex
	pragmas     []string
	prepared    []string
	args        [][]any
	failPragma  map[string]error
	failPrepare map[string]error
	failRun     map[string]error
	rows        map[string][]map[string]any
	delay       time.Duration
	lastID      int64
	closed      bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		failPragma:  make(map[string]error),
		failPrepare: make(map[string]error),
		failRun:     make(map[string]error),
		rows:        make(map[string][]map[string]any),
	}
}

func (h *fakeHandle) Pragma(ctx context.Context, directive string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pragmas = append(h.pragmas, directive)
	return h.failPragma[directive]
}

func (h *fakeHandle) Prepare(ctx context.Context, sql string) (Statement, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("handle closed")
	}
	h.prepared = append(h.prepared, sql)
	if err := h.failPrepare[sql]; err != nil {
		return nil, err
	}
	_, reader := h.rows[sql]
	return &fakeStatement{h: h, sql: sql, reader: reader}, nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) preparedSQL() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.prepared))
	copy(out, h.prepared)
	return out
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

type fakeStatement struct {
	h      *fakeHandle
	sql    string
	reader bool
}

func (s *fakeStatement) Reader() bool { return s.reader }

func (s *fakeStatement) All(ctx context.Context, args []any) ([]map[string]any, error) {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	s.h.args = append(s.h.args, args)
	if s.h.delay > 0 {
		time.Sleep(s.h.delay)
	}
	return s.h.rows[s.sql], nil
}

func (s *fakeStatement) Run(ctx context.Context, args []any) (RunResult, error) {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	s.h.args = append(s.h.args, args)
	if err := s.h.failRun[s.sql]; err != nil {
		return RunResult{}, err
	}
	s.h.lastID++
	return RunResult{LastInsertID: s.h.lastID, Changes: 1}, nil
}

func (s *fakeStatement) Close() error { return nil }

// recordingLogger keeps every query log record.
type recordingLogger struct {
	mu      sync.Mutex
	queries []string
	errors  []string
	slow    []time.Duration
	logs    []string
	migrate []string
}

func (l *recordingLogger) LogQuery(query string, params []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = append(l.queries, query)
}

func (l *recordingLogger) LogQueryError(err error, query string, params []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, query)
}

func (l *recordingLogger) LogQuerySlow(elapsed time.Duration, query string, params []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slow = append(l.slow, elapsed)
}

func (l *recordingLogger) LogMigration(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.migrate = append(l.migrate, msg)
}

func (l *recordingLogger) Log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, level+":"+msg)
}
