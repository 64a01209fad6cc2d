// Package metrics exports query metrics to Prometheus. A QueryMetrics is a
// database.QuerySubscriber: subscribe it on a driver and every statement
// that runs is counted and timed.
package metrics

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/koustreak/litequery/internal/database"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// QueryMetrics counts and times queries by statement verb and outcome.
type QueryMetrics struct {
	inflight prometheus.Gauge
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ database.QuerySubscriber = (*QueryMetrics)(nil)

// NewQueryMetrics registers the query metrics on reg.
func NewQueryMetrics(reg prometheus.Registerer) *QueryMetrics {
	return &QueryMetrics{
		inflight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "litequery_queries_inflight",
			Help: "Number of queries that passed BeforeQuery and have not finished yet.",
		}),
		queries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "litequery_queries_total",
			Help: "Total number of executed queries.",
		}, []string{"verb", "outcome"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "litequery_query_duration_seconds",
			Help:    "Time spent executing queries on the native connection.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"verb", "outcome"}),
	}
}

// BeforeQuery implements database.QuerySubscriber.
func (m *QueryMetrics) BeforeQuery(_ context.Context, _ *database.BeforeQueryEvent) error {
	m.inflight.Inc()
	return nil
}

// AfterQuery implements database.QuerySubscriber.
func (m *QueryMetrics) AfterQuery(_ context.Context, e *database.AfterQueryEvent) error {
	m.inflight.Dec()

	outcome := outcomeSuccess
	if !e.Success {
		outcome = outcomeError
	}
	verb := Verb(e.Query)
	m.queries.WithLabelValues(verb, outcome).Inc()
	m.duration.WithLabelValues(verb, outcome).Observe(e.ExecutionTime.Seconds())
	return nil
}

var knownVerbs = map[string]bool{
	"select": true, "insert": true, "update": true, "delete": true,
	"replace": true, "with": true, "create": true, "drop": true,
	"alter": true, "pragma": true, "attach": true, "detach": true,
	"begin": true, "commit": true, "rollback": true, "savepoint": true,
	"release": true, "vacuum": true, "analyze": true, "reindex": true,
}

// Verb returns the lower-cased leading keyword of query, or "other" when
// it is not a known SQLite statement keyword. The label set stays bounded.
func Verb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "other"
	}
	v := strings.ToLower(strings.TrimLeft(fields[0], "("))
	if knownVerbs[v] {
		return v
	}
	return "other"
}
