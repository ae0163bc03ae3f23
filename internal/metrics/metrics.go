package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors groups the wheel's Prometheus instruments. Use New with a
// dedicated registry in tests.
type Collectors struct {
	Spins          prometheus.Counter
	SpinsRejected  *prometheus.CounterVec
	Picks          *prometheus.CounterVec
	Transitions    *prometheus.CounterVec
	Failures       *prometheus.CounterVec
	SpinDuration   prometheus.Histogram
	ActiveSessions prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		Spins: f.NewCounter(prometheus.CounterOpts{
			Namespace: "wheel",
			Name:      "spins_total",
			Help:      "Spins started.",
		}),
		SpinsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wheel",
			Name:      "spins_rejected_total",
			Help:      "Spin requests rejected, by reason.",
		}, []string{"reason"}),
		Picks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wheel",
			Name:      "picks_total",
			Help:      "Winners resolved, by mode (removing or infinite).",
		}, []string{"mode"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wheel",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions applied, by event.",
		}, []string{"event"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wheel",
			Name:      "failures_total",
			Help:      "Failed operations, by operation and kind.",
		}, []string{"op", "kind"}),
		SpinDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wheel",
			Name:      "spin_duration_seconds",
			Help:      "Planned animation length of each spin.",
			Buckets:   []float64{5, 6, 6.5, 7, 7.5, 8, 9},
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "wheel",
			Name:      "active_sessions",
			Help:      "Wheel sessions held in memory.",
		}),
	}
}

// Noop returns collectors bound to a throwaway registry.
func Noop() *Collectors {
	return New(prometheus.NewRegistry())
}
