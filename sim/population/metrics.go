package population

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeNumerical = "numerical"
	OutcomeConfig    = "config"
	OutcomeCanceled  = "canceled"
)

// Metrics holds the Prometheus collectors updated by a Runner.
// A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	predictions prometheus.Counter
	duration    prometheus.Histogram
}

// NewMetrics registers the runner collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	auto := promauto.With(reg)
	return &Metrics{
		runs: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmsim",
			Subsystem: "population",
			Name:      "runs_total",
			Help:      "Simulation runs by outcome",
		}, []string{"outcome"}),
		predictions: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "pharmsim",
			Subsystem: "population",
			Name:      "predictions_total",
			Help:      "Predictions produced by successful runs",
		}),
		duration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pharmsim",
			Subsystem: "population",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a single subject simulation",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
}

func (m *Metrics) observe(outcome string, seconds float64, predictions int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.predictions.Add(float64(predictions))
		m.duration.Observe(seconds)
	}
}
