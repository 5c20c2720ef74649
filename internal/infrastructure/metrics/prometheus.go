package metrics

import (
	"time"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/prometheus/client_golang/prometheus"
)

var _ assignment.Recorder = (*Prometheus)(nil)

// Prometheus records engine metrics under the given namespace.
type Prometheus struct {
	attempts   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	candidates *prometheus.HistogramVec
}

// NewPrometheus registers the collectors with reg (the default registerer
// when nil). namespace defaults to "cleanersched".
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "cleanersched"
	}
	p := &Prometheus{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "attempts_total",
			Help:      "Engine operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "duration_seconds",
			Help:      "Engine operation latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
		candidates: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "candidates",
			Help:      "Number of ranked candidates per operation.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{p.attempts, p.duration, p.candidates} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) ObserveAttempt(op, outcome string, d time.Duration) {
	p.attempts.WithLabelValues(op, outcome).Inc()
	p.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prometheus) ObserveCandidates(op string, n int) {
	p.candidates.WithLabelValues(op).Observe(float64(n))
}
