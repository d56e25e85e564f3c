package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	attemptLatency *prometheus.HistogramVec
	attemptsTotal  *prometheus.CounterVec
	claimConflicts prometheus.Counter
	staleReaped    prometheus.Counter
	cyclesTotal    prometheus.Counter
	dueGauge       prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Counter, prometheus.Gauge) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "publish_attempt_latency_seconds",
			Help:    "Latency of publish attempts from claim to terminal outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)
	att := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_attempts_total",
			Help: "Number of publish attempts by platform and terminal status",
		},
		[]string{"platform", "status"},
	)
	conf := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "claim_conflicts_total",
			Help: "Number of pairs skipped because another attempt was in flight",
		},
	)
	reap := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stale_attempts_reaped_total",
			Help: "Number of in-flight attempts marked failed by the liveness sweep",
		},
	)
	cyc := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_cycles_total",
			Help: "Number of completed dispatch cycles",
		},
	)
	due := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "due_pairs",
			Help: "Number of due pairs selected in the last cycle",
		},
	)
	return lat, att, conf, reap, cyc, due
}

func init() {
	attemptLatency, attemptsTotal, claimConflicts, staleReaped, cyclesTotal, dueGauge = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(attemptLatency, attemptsTotal, claimConflicts, staleReaped, cyclesTotal, dueGauge)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	attemptLatency, attemptsTotal, claimConflicts, staleReaped, cyclesTotal, dueGauge = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
