// Package metrics exposes prometheus collectors for ledger activity.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the mileage service.
type Metrics struct {
	registry *prometheus.Registry

	Transactions      *prometheus.CounterVec
	Points            *prometheus.CounterVec
	Conflicts         *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the ledger collectors, plus process and Go runtime collectors,
// on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "transactions_total",
			Help:      "Committed ledger transactions by kind.",
		}, []string{"kind"}),
		Points: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "points_total",
			Help:      "Absolute points moved by committed transactions, by kind.",
		}, []string{"kind"}),
		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mileage",
			Name:      "concurrent_modifications_total",
			Help:      "Writes that lost an optimistic concurrency race, by operation.",
		}, []string{"operation"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mileage",
			Name:      "operation_duration_seconds",
			Help:      "Ledger write latency including retries, by operation and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}
}

// ObserveTransaction counts a committed transaction.
func (m *Metrics) ObserveTransaction(kind mileage.Kind, points int64) {
	if points < 0 {
		points = -points
	}
	m.Transactions.WithLabelValues(kind.String()).Inc()
	m.Points.WithLabelValues(kind.String()).Add(float64(points))
}

// ObserveConflict counts a lost race for op.
func (m *Metrics) ObserveConflict(op string) {
	m.Conflicts.WithLabelValues(op).Inc()
}

// ObserveOperation records how long op took and how it ended.
func (m *Metrics) ObserveOperation(op string, err error, elapsed time.Duration) {
	m.OperationDuration.WithLabelValues(op, Outcome(err)).Observe(elapsed.Seconds())
}

// Outcome classifies an operation result into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, mileage.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, mileage.ErrInvalidAmount),
		errors.Is(err, mileage.ErrPointsOverflow),
		errors.Is(err, mileage.ErrInvalidKind),
		errors.Is(err, domain.ErrValidation):
		return "rejected"
	default:
		return "error"
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
