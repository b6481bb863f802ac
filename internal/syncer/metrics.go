package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes drain-cycle counters. Registration happens on the
// registerer the caller supplies; nothing touches the global registry.
type Metrics struct {
	cyclesTotal   prometheus.Counter
	syncedTotal   prometheus.Counter
	failedTotal   prometheus.Counter
	droppedTotal  prometheus.Counter
	pendingOps    prometheus.Gauge
	cycleDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auditsync", Name: "drain_cycles_total",
			Help: "Completed drain cycles, regardless of per-item outcome.",
		}),
		syncedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auditsync", Name: "operations_synced_total",
			Help: "Operations confirmed by the server and removed from the queue.",
		}),
		failedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auditsync", Name: "operations_failed_total",
			Help: "Per-cycle operation failures, including ones later retried.",
		}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auditsync", Name: "operations_dropped_total",
			Help: "Operations dropped after exhausting retries or a permanent rejection.",
		}),
		pendingOps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auditsync", Name: "pending_operations",
			Help: "Operations currently waiting in the offline queue.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auditsync", Name: "drain_cycle_duration_seconds",
			Help:    "Wall-clock duration of drain cycles.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.cyclesTotal, m.syncedTotal, m.failedTotal,
		m.droppedTotal, m.pendingOps, m.cycleDuration)
	return m
}

func (m *Metrics) observeCycle(res *Result, dropped int, pending int) {
	if m == nil {
		return
	}
	m.cyclesTotal.Inc()
	m.syncedTotal.Add(float64(res.Synced))
	m.failedTotal.Add(float64(res.Failed))
	m.droppedTotal.Add(float64(dropped))
	m.pendingOps.Set(float64(pending))
	m.cycleDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.pendingOps.Set(float64(n))
}
