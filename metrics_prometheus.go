package pgentity

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics records query latency, errors and pool occupancy.
//
// Query durations are labelled by statement verb (insert, update, select, ...)
// rather than SQL text to keep label cardinality bounded.
type PrometheusMetrics struct {
	queryDuration *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	connsActive   prometheus.Gauge
	connsIdle     prometheus.Gauge
}

// NewPrometheusMetrics registers the collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Histogram of statement latencies, by statement verb.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"statement"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failed statements, by error category.",
			},
			[]string{"type"},
		),
		connsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_connections_active",
			Help:      "Connections currently acquired from the pool.",
		}),
		connsIdle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_connections_idle",
			Help:      "Idle connections held by the pool.",
		}),
	}
}

func (m *PrometheusMetrics) QueryDuration(duration time.Duration, query string) {
	m.queryDuration.WithLabelValues(statementVerb(query)).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) ConnectionCount(active, idle int32) {
	m.connsActive.Set(float64(active))
	m.connsIdle.Set(float64(idle))
}

func (m *PrometheusMetrics) ErrorCount(errorType string) {
	m.errors.WithLabelValues(errorType).Inc()
}

func statementVerb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	switch verb := strings.ToLower(fields[0]); verb {
	case "select", "insert", "update", "delete", "with":
		return verb
	default:
		return "other"
	}
}
