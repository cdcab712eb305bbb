package corsrw

import (
	"context"
	"time"

	"github.com/jub0bs/corsrw/internal/origins"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "corsrw"

// Metrics collects Prometheus metrics about the decisions of the
// middleware whose [Config] references it.
// A nil *Metrics collects nothing.
// A single Metrics may be shared by multiple middleware.
type Metrics struct {
	verdicts          *prometheus.CounterVec
	predicateErrors   prometheus.Counter
	predicateDuration prometheus.Histogram
}

// NewMetrics creates a [Metrics] and registers its collectors with reg.
// It returns a non-nil error if any of the registrations fails.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := Metrics{
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verdicts_total",
			Help:      "Total number of responses, by CORS verdict (deny, wildcard, or echo).",
		}, []string{"verdict"}),
		predicateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "predicate_errors_total",
			Help:      "Total number of failed origin-predicate calls.",
		}),
		predicateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "predicate_duration_seconds",
			Help:      "Duration of origin-predicate calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	collectors := []prometheus.Collector{
		m.verdicts,
		m.predicateErrors,
		m.predicateDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (m *Metrics) observeVerdict(v origins.Verdict) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(v.String()).Inc()
}

// instrument returns a predicate that behaves like pred but also records
// the duration and failures of its calls.
func (m *Metrics) instrument(pred Predicate) Predicate {
	if m == nil || pred == nil {
		return pred
	}
	return func(ctx context.Context, origin string) (bool, error) {
		start := time.Now()
		ok, err := pred(ctx, origin)
		m.predicateDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			m.predicateErrors.Inc()
		}
		return ok, err
	}
}
