package stm

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the Prometheus instruments the engine updates as
// transactions commit and abort. A nil *Metrics is always safe to use --
// every method is a no-op on a nil receiver -- so wiring metrics in is
// opt-in and never changes control flow, only what gets observed.
type Metrics struct {
	transactions   *prometheus.CounterVec
	commitDuration prometheus.Histogram
	segmentsInUse  prometheus.Gauge
	allocFailures  prometheus.Counter
}

// NewMetrics constructs and registers the engine's instruments against
// reg. Passing a fresh prometheus.NewRegistry() keeps this separate from
// the global default registry, which matters when more than one Region
// is created in the same process (tests, benchmarks).
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stm",
			Name:      "transactions_total",
			Help:      "Count of ended transactions by result.",
		}, []string{"result"}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stm",
			Name:      "commit_duration_seconds",
			Help:      "Latency of the read-write commit path (lock, validate, publish).",
			Buckets:   prometheus.ExponentialBuckets(0.0000005, 2, 20),
		}),
		segmentsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stm",
			Name:      "segments_in_use",
			Help:      "Number of segment-table slots currently allocated.",
		}),
		allocFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stm",
			Name:      "alloc_failures_total",
			Help:      "Count of Region.Alloc calls that returned AllocNoMem.",
		}),
	}
	reg.MustRegister(m.transactions, m.commitDuration, m.segmentsInUse, m.allocFailures)
	return m
}

func (m *Metrics) observeEnd(committed bool) {
	if m == nil {
		return
	}
	if committed {
		m.transactions.WithLabelValues("committed").Inc()
	} else {
		m.transactions.WithLabelValues("aborted").Inc()
	}
}

func (m *Metrics) observeCommitDuration(seconds float64) {
	if m == nil {
		return
	}
	m.commitDuration.Observe(seconds)
}

func (m *Metrics) setSegmentsInUse(n int) {
	if m == nil {
		return
	}
	m.segmentsInUse.Set(float64(n))
}

func (m *Metrics) observeAllocFailure() {
	if m == nil {
		return
	}
	m.allocFailures.Inc()
}
