// Package metrics exports engine statistics as Prometheus collectors.
package metrics

import (
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/equery/internal/engine"
	"github.com/roach88/equery/internal/ir"
)

// Collector implements engine.Observer with Prometheus collectors.
type Collector struct {
	// QueriesTotal counts executions by status and error code.
	QueriesTotal *prometheus.CounterVec
	// QueryDuration is the latency of successful executions.
	QueryDuration prometheus.Histogram
	// RowsTotal counts rows by stage (input, matched, output).
	RowsTotal *prometheus.CounterVec
	// AggregatesTotal counts aggregate results computed.
	AggregatesTotal prometheus.Counter
	// PlanCacheTotal counts compiled-plan cache lookups by result.
	PlanCacheTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

var _ engine.Observer = (*Collector)(nil)

// New registers the equery collectors on reg. A nil reg uses a fresh
// registry, so several Collectors can coexist in tests.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Collector{
		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equery_queries_total",
				Help: "Total number of query executions",
			},
			[]string{"status", "code"},
		),
		QueryDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "equery_query_duration_seconds",
				Help:    "Query execution latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		RowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equery_rows_total",
				Help: "Rows seen by executions, by stage",
			},
			[]string{"stage"},
		),
		AggregatesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "equery_aggregates_computed_total",
				Help: "Aggregate values computed",
			},
		),
		PlanCacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equery_plan_cache_lookups_total",
				Help: "Compiled statement cache lookups",
			},
			[]string{"result"},
		),
		gatherer: reg,
	}
}

// ObserveExecution implements engine.Observer.
func (c *Collector) ObserveExecution(stats engine.Stats, err error) {
	if err != nil {
		c.QueriesTotal.WithLabelValues("error", errorCode(err)).Inc()
		return
	}
	c.QueriesTotal.WithLabelValues("ok", "").Inc()
	c.QueryDuration.Observe(stats.Duration.Seconds())
	c.RowsTotal.WithLabelValues("input").Add(float64(stats.InputRows))
	c.RowsTotal.WithLabelValues("matched").Add(float64(stats.MatchedRows))
	c.RowsTotal.WithLabelValues("output").Add(float64(stats.OutputRows))
	c.AggregatesTotal.Add(float64(stats.Aggregates))
}

// ObservePlanCache implements engine.Observer.
func (c *Collector) ObservePlanCache(hit bool) {
	if hit {
		c.PlanCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	c.PlanCacheTotal.WithLabelValues("miss").Inc()
}

func errorCode(err error) string {
	if engine.IsCanceled(err) {
		return "canceled"
	}
	if code, ok := ir.CodeOf(err); ok {
		return strconv.Itoa(int(code))
	}
	return "other"
}

// WriteText writes every registered metric in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
