package metrics

import coremetrics "github.com/kilianp07/clipcast/core/metrics"

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAttempts forwards the records to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordAttempts(recs []coremetrics.AttemptRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordAttempts(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordCycle forwards the cycle summary to sinks that record cycles.
func (m *MultiSink) RecordCycle(rec coremetrics.CycleRecord) error {
	for _, s := range m.Sinks {
		if cr, ok := s.(coremetrics.CycleRecorder); ok {
			if err := cr.RecordCycle(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
