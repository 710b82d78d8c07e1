// Package metrics defines the Prometheus collectors of the ledger server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "splitledger"

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics holds every collector the server records into. Create it once per
// registry with New.
type Metrics struct {
	RPCRequests     *prometheus.CounterVec
	RPCDuration     *prometheus.HistogramVec
	ReportsComputed prometheus.Counter
	ReportDuration  prometheus.Histogram
	CacheLookups    *prometheus.CounterVec
	Residuals       prometheus.Counter
}

// New registers all collectors with reg. Pass a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RPCRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and Connect code.",
		}, []string{"procedure", "code"}),
		RPCDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		ReportsComputed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_computed_total",
			Help:      "Balance reports computed from a snapshot.",
		}),
		ReportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Time spent aggregating and planning one report.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_lookups_total",
			Help:      "Report cache lookups by result.",
		}, []string{"result"}),
		Residuals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounding_residuals_total",
			Help:      "Reports whose settlement walk left an unmatched rounding residual.",
		}),
	}
}
