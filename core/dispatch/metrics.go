package dispatch

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records dispatch outcomes. A nil *Metrics records nothing.
type Metrics struct {
	calls     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	cacheHits prometheus.Counter
}

// NewMetrics creates the dispatch collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "operon",
			Subsystem: "dispatch",
			Name:      "calls_total",
			Help:      "Operator calls by outcome.",
		}, []string{"operator", "method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "operon",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent in operator calls, including normalization.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"operator"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "operon",
			Subsystem: "dispatch",
			Name:      "cache_hits_total",
			Help:      "Pure calls answered from the result cache.",
		}),
	}

	for _, c := range []prometheus.Collector{m.calls, m.duration, m.cacheHits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

const (
	outcomeOK = "ok"

	// unknownLabel replaces the operator and method labels of NotFound
	// calls, whose names come from document text.
	unknownLabel = "unknown"
)

func outcomeOf(err *DispatchError) string {
	if err == nil {
		return outcomeOK
	}
	return strings.ReplaceAll(err.Reason.String(), " ", "_")
}

func (m *Metrics) observe(site CallSite, method string, err *DispatchError, elapsed time.Duration) {
	if m == nil {
		return
	}
	op := site.Operator
	if err != nil && err.Reason == NotFound {
		op, method = unknownLabel, unknownLabel
	}
	m.calls.WithLabelValues(op, method, outcomeOf(err)).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}
