package metrics

import (
	"time"

	"github.com/kilianp07/clipcast/core/model"
)

// AttemptRecord represents one terminal publish attempt to be recorded.
type AttemptRecord struct {
	ContentHash string
	Platform    string
	Seq         int
	Status      model.AttemptStatus
	Detail      string
	Latency     time.Duration
	Time        time.Time
}

// CycleRecord summarizes one dispatch cycle.
type CycleRecord struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	Reaped    int
	Duration  time.Duration
	Time      time.Time
}

// Sink records dispatch outcomes for observability purposes.
type Sink interface {
	RecordAttempts(recs []AttemptRecord) error
}

// CycleRecorder records cycle summaries. Sinks may optionally implement it.
type CycleRecorder interface {
	RecordCycle(rec CycleRecord) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordAttempts([]AttemptRecord) error { return nil }
func (NopSink) RecordCycle(CycleRecord) error        { return nil }
