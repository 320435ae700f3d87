package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Duration *prometheus.HistogramVec
	Errors   *prometheus.CounterVec
}

// NewMetrics creates and registers store metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tally_store_query_duration_seconds",
		Help:    "Time spent executing statements, retries included",
		Buckets: prometheus.DefBuckets,
	}, []string{"statement"})

	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_store_query_errors_total",
		Help: "Statements that failed after all retries",
	}, []string{"statement"})

	reg.MustRegister(duration, errors)

	return &Metrics{
		Duration: duration,
		Errors:   errors,
	}
}

func (m *Metrics) observe(name string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		m.Errors.WithLabelValues(name).Inc()
	}
}
