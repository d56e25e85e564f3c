package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/clipcast/core/metrics"
)

// PromSink records publish attempts in Prometheus metrics.
type PromSink struct {
	attempts *prometheus.CounterVec
	cycles   *prometheus.CounterVec
}

// NewPromSink registers publish metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_outcomes_total",
		Help: "Total number of recorded publish attempt outcomes",
	}, []string{"platform", "status"})
	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cycle_reports_total",
		Help: "Total number of recorded dispatch cycle reports",
	}, []string{"outcome"})

	if err := reg.Register(attempts); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			attempts = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(cycles); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			cycles = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{attempts: attempts, cycles: cycles}, nil
}

// RecordAttempts increments the counter for each recorded outcome.
func (s *PromSink) RecordAttempts(recs []coremetrics.AttemptRecord) error {
	for _, r := range recs {
		s.attempts.WithLabelValues(r.Platform, string(r.Status)).Inc()
	}
	return nil
}

// RecordCycle counts the cycle by dominant outcome.
func (s *PromSink) RecordCycle(rec coremetrics.CycleRecord) error {
	outcome := "idle"
	switch {
	case rec.Failed > 0:
		outcome = "degraded"
	case rec.Attempted > 0:
		outcome = "clean"
	}
	s.cycles.WithLabelValues(outcome).Inc()
	return nil
}
