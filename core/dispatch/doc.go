// Package dispatch implements the scheduling and dispatch core: a recurring
// cycle that identifies due (content, platform) pairs, claims each one in
// the delivery ledger, invokes the platform adapter under a bounded timeout
// and records the outcome exactly once.
//
// Key components:
//   - Coordinator: orchestrates reaping, selection, claiming, publishing and
//     outcome recording for one cycle.
//   - Selector (core/selector): derives due pairs from stored state.
//   - retry.Policy (core/retry): decides retry vs give-up per pair.
//   - platform.Registry (core/platform): enabled platforms and adapters.
//
// Cycle flow:
//  1. Reap stale in-flight attempts past the liveness timeout
//  2. Select due pairs
//  3. Claim each pair (duplicate claims skip silently)
//  4. Invoke the adapter, bounded by the per-attempt timeout
//  5. Resolve the attempt in the ledger; exhausted pairs become abandoned
//
// Faults are isolated per pair: an adapter that hangs, panics or errors
// resolves its own attempt as failed and never aborts the cycle. A ledger
// write failure leaves the attempt in flight for the liveness path.
package dispatch
