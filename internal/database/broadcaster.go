package database

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BeforeQueryEvent is delivered before a statement is prepared.
type BeforeQueryEvent struct {
	Query      string
	Parameters []any
}

// AfterQueryEvent is delivered once a statement finished, successfully or not.
// RawResults is set only on success and Err only on failure. ExecutionTime
// is the time spent in the engine, zero when a BeforeQuery listener
// rejected the statement before it ran.
type AfterQueryEvent struct {
	Query         string
	Parameters    []any
	Success       bool
	ExecutionTime time.Duration
	RawResults    any
	Err           error
}

// QuerySubscriber listens to query lifecycle events.
// Returned errors propagate to the caller of the query.
type QuerySubscriber interface {
	BeforeQuery(ctx context.Context, e *BeforeQueryEvent) error
	AfterQuery(ctx context.Context, e *AfterQueryEvent) error
}

// QuerySubscriberFuncs adapts plain functions to QuerySubscriber.
// Nil fields are skipped.
type QuerySubscriberFuncs struct {
	Before func(ctx context.Context, e *BeforeQueryEvent) error
	After  func(ctx context.Context, e *AfterQueryEvent) error
}

func (f QuerySubscriberFuncs) BeforeQuery(ctx context.Context, e *BeforeQueryEvent) error {
	if f.Before == nil {
		return nil
	}
	return f.Before(ctx, e)
}

func (f QuerySubscriberFuncs) AfterQuery(ctx context.Context, e *AfterQueryEvent) error {
	if f.After == nil {
		return nil
	}
	return f.After(ctx, e)
}

// BroadcasterResult accumulates pending listener work for one query.
// Wait is a barrier: it returns once every scheduled listener finished.
type BroadcasterResult struct {
	g     errgroup.Group
	mu    sync.Mutex
	count int
}

// NewBroadcasterResult returns an empty accumulator.
func NewBroadcasterResult() *BroadcasterResult {
	return &BroadcasterResult{}
}

// Go schedules fn on the accumulator.
func (r *BroadcasterResult) Go(fn func() error) {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
	r.g.Go(fn)
}

// Count returns how many listener calls were scheduled so far.
func (r *BroadcasterResult) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Wait blocks until all scheduled work finished and returns the first error.
func (r *BroadcasterResult) Wait() error {
	return r.g.Wait()
}

// Broadcaster fans query events out to registered subscribers.
// It is safe for concurrent use.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers []QuerySubscriber
}

// NewBroadcaster returns a broadcaster with the given subscribers.
func NewBroadcaster(subs ...QuerySubscriber) *Broadcaster {
	b := &Broadcaster{}
	for _, s := range subs {
		b.Subscribe(s)
	}
	return b
}

// Subscribe registers s for all subsequent events.
func (b *Broadcaster) Subscribe(s QuerySubscriber) {
	if s == nil {
		return
	}
	b.mu.Lock()
	b.subscribers = append(b.subscribers, s)
	b.mu.Unlock()
}

func (b *Broadcaster) snapshot() []QuerySubscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]QuerySubscriber, len(b.subscribers))
	copy(out, b.subscribers)
	return out
}

// BroadcastBeforeQuery schedules BeforeQuery on every subscriber.
func (b *Broadcaster) BroadcastBeforeQuery(ctx context.Context, result *BroadcasterResult, query string, params []any) {
	e := &BeforeQueryEvent{Query: query, Parameters: params}
	for _, s := range b.snapshot() {
		s := s
		result.Go(func() error { return s.BeforeQuery(ctx, e) })
	}
}

// BroadcastAfterQuery schedules AfterQuery on every subscriber.
func (b *Broadcaster) BroadcastAfterQuery(ctx context.Context, result *BroadcasterResult, e *AfterQueryEvent) {
	for _, s := range b.snapshot() {
		s := s
		result.Go(func() error { return s.AfterQuery(ctx, e) })
	}
}
