package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/litequery/internal/database"
	"github.com/koustreak/litequery/internal/database/sqlite"
	_ "github.com/koustreak/litequery/internal/database/sqlite/mattn"
)

func TestQueryMetrics_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueryMetrics(reg)
	ctx := context.Background()

	require.NoError(t, m.BeforeQuery(ctx, &database.BeforeQueryEvent{Query: "SELECT 1"}))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.inflight))

	require.NoError(t, m.AfterQuery(ctx, &database.AfterQueryEvent{
		Query: "SELECT 1", Success: true, ExecutionTime: 2 * time.Millisecond,
	}))
	require.NoError(t, m.BeforeQuery(ctx, &database.BeforeQueryEvent{Query: "INSERT INTO post DEFAULT VALUES"}))
	require.NoError(t, m.AfterQuery(ctx, &database.AfterQueryEvent{
		Query: "INSERT INTO post DEFAULT VALUES", Success: false,
	}))

	assert.Equal(t, float64(0), testutil.ToFloat64(m.inflight))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.queries.WithLabelValues("select", outcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.queries.WithLabelValues("insert", outcomeError)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.queries.WithLabelValues("select", outcomeError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestQueryMetrics_Subscribed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueryMetrics(reg)
	b := database.NewBroadcaster(m)

	result := database.NewBroadcasterResult()
	b.BroadcastBeforeQuery(context.Background(), result, "PRAGMA foreign_keys = ON", nil)
	b.BroadcastAfterQuery(context.Background(), result, &database.AfterQueryEvent{Query: "PRAGMA foreign_keys = ON", Success: true})
	require.NoError(t, result.Wait())

	assert.Equal(t, float64(1), testutil.ToFloat64(m.queries.WithLabelValues("pragma", outcomeSuccess)))
}

func TestQueryMetrics_RejectedQueriesLeaveNothingInflight(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueryMetrics(reg)

	d := sqlite.New(sqlite.Options{Database: sqlite.MemoryDatabase}, nil)
	d.Subscribe(m)
	require.NoError(t, d.Initialize(context.Background()))
	t.Cleanup(func() { _ = d.Disconnect() })

	rejected := errors.New("read-only window")
	d.Subscribe(database.QuerySubscriberFuncs{
		Before: func(ctx context.Context, e *database.BeforeQueryEvent) error { return rejected },
	})

	for i := 0; i < 3; i++ {
		_, err := d.Query(context.Background(), "SELECT 1")
		require.ErrorIs(t, err, rejected)
	}

	assert.Equal(t, float64(0), testutil.ToFloat64(m.inflight))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.queries.WithLabelValues("select", outcomeError)))
}

func TestVerb(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{query: "SELECT * FROM post", want: "select"},
		{query: "  insert into post values (1)", want: "insert"},
		{query: "(SELECT 1) UNION (SELECT 2)", want: "select"},
		{query: `ATTACH "/x.db" AS "db_1"`, want: "attach"},
		{query: "EXPLAIN QUERY PLAN SELECT 1", want: "other"},
		{query: "", want: "other"},
		{query: `VACUUM "main" INTO '/tmp/x.db'`, want: "vacuum"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Verb(tt.query), tt.query)
	}
}
