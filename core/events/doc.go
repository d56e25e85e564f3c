// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - AttemptEvent: per-pair publish attempt outcome
//   - CycleEvent: summary of a completed dispatch cycle
//   - RetryRequestedEvent: operator retry-now trigger
package events
