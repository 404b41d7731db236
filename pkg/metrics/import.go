package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ImportMetrics records supplier catalog imports.
type ImportMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	items    *prometheus.CounterVec
}

// NewImportMetrics registers the catalog import metrics on the provided registerer.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		return &ImportMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_import_duration_seconds",
		Help:    "Duration of catalog imports in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_imports_total",
		Help: "Catalog imports by outcome.",
	}, []string{"outcome"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_items_total",
		Help: "Goods entries processed by catalog imports.",
	}, []string{"result"})
	reg.MustRegister(duration, runs, items)
	return &ImportMetrics{
		duration: duration,
		runs:     runs,
		items:    items,
	}
}

// Observe records one finished import.
func (m *ImportMetrics) Observe(outcome string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.duration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.runs.WithLabelValues(outcome).Inc()
}

// AddItems counts imported and skipped goods entries.
func (m *ImportMetrics) AddItems(imported, skipped int) {
	if m == nil || m.items == nil {
		return
	}
	if imported > 0 {
		m.items.WithLabelValues("imported").Add(float64(imported))
	}
	if skipped > 0 {
		m.items.WithLabelValues("skipped").Add(float64(skipped))
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
