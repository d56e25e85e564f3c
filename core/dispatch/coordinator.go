package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/clipcast/core/events"
	"github.com/kilianp07/clipcast/core/logger"
	"github.com/kilianp07/clipcast/core/metrics"
	"github.com/kilianp07/clipcast/core/model"
	"github.com/kilianp07/clipcast/core/platform"
	"github.com/kilianp07/clipcast/core/retry"
	"github.com/kilianp07/clipcast/core/store"
	"github.com/kilianp07/clipcast/internal/eventbus"
)

const (
	detailUnresponsive = "adapter unresponsive"
	detailFileMissing  = "file missing on disk"
	detailExhausted    = "retry budget exhausted"
	detailStale        = "liveness timeout exceeded"
)

// PairSelector yields the due pairs for a cycle.
type PairSelector interface {
	SelectDue(ctx context.Context, now time.Time) ([]model.Pair, error)
}

// BlobChecker verifies that the stored bytes behind a content reference are
// present before an adapter is invoked.
type BlobChecker interface {
	Check(ref string) error
}

// CycleReport summarizes one dispatch cycle.
type CycleReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Reaped    int `json:"reaped"`
}

// Coordinator turns due pairs into publish attempts: it claims each pair in
// the ledger, fans out adapter calls up to the configured limit and records
// every outcome exactly once.
type Coordinator struct {
	selector PairSelector
	registry *platform.Registry
	content  store.ContentStore
	ledger   store.Ledger
	policy   retry.Policy
	cfg      Config
	metrics  metrics.Sink
	bus      eventbus.EventBus
	blobs    BlobChecker
	logger   logger.Logger
}

// NewCoordinator creates a Coordinator. The metrics sink, event bus and blob
// checker are optional.
func NewCoordinator(sel PairSelector, reg *platform.Registry, content store.ContentStore, ledger store.Ledger, policy retry.Policy, cfg Config, sink metrics.Sink, bus eventbus.EventBus, blobs BlobChecker, log logger.Logger) (*Coordinator, error) {
	if sel == nil || reg == nil || content == nil || ledger == nil || policy == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewCoordinator")
	}
	cfg.SetDefaults()
	return &Coordinator{
		selector: sel,
		registry: reg,
		content:  content,
		ledger:   ledger,
		policy:   policy,
		cfg:      cfg,
		metrics:  sink,
		bus:      bus,
		blobs:    blobs,
		logger:   log,
	}, nil
}

// RunCycle executes one dispatch cycle at the given instant. A selector
// failure aborts the cycle; per-pair faults never do.
func (c *Coordinator) RunCycle(ctx context.Context, now time.Time) (CycleReport, error) {
	start := time.Now()
	var rep CycleReport

	reaped, err := c.ledger.ReapStale(ctx, now.Add(-c.cfg.LivenessTimeout()), detailStale)
	if err != nil {
		c.logger.Warnf("liveness sweep failed: %v", err)
	} else if reaped > 0 {
		c.logger.Warnf("reaped %d stale in-flight attempts", reaped)
		rep.Reaped = reaped
		staleReaped.Add(float64(reaped))
	}

	pairs, err := c.selector.SelectDue(ctx, now)
	if err != nil {
		return rep, fmt.Errorf("dispatch: select due pairs: %w", err)
	}
	dueGauge.Set(float64(len(pairs)))
	c.logger.Infof("%d due pairs", len(pairs))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		recs []metrics.AttemptRecord
	)
	sem := make(chan struct{}, c.cfg.MaxConcurrentAttempts)
	for _, pair := range pairs {
		if ctx.Err() != nil {
			// Shutdown between pair dispatches: anything already claimed
			// resolves below; the rest waits for the next run.
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(p model.Pair) {
			defer wg.Done()
			defer func() { <-sem }()
			out := c.dispatchPair(ctx, p)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case out.skipped:
				rep.Skipped++
			default:
				rep.Attempted++
				switch out.status {
				case model.StatusSucceeded:
					rep.Succeeded++
				case model.StatusFailed:
					rep.Failed++
				}
				if out.resolved {
					recs = append(recs, metrics.AttemptRecord{
						ContentHash: p.ContentHash,
						Platform:    p.Platform,
						Seq:         out.seq,
						Status:      out.status,
						Detail:      out.detail,
						Latency:     out.latency,
						Time:        now,
					})
				}
			}
		}(pair)
	}
	wg.Wait()

	cyclesTotal.Inc()
	c.record(recs, rep, now, time.Since(start))
	if c.bus != nil {
		c.bus.Publish(events.CycleEvent{
			Attempted: rep.Attempted,
			Succeeded: rep.Succeeded,
			Failed:    rep.Failed,
			Skipped:   rep.Skipped,
			Reaped:    rep.Reaped,
			Started:   now,
			Duration:  time.Since(start),
		})
	}
	return rep, ctx.Err()
}

type pairResult struct {
	status   model.AttemptStatus
	detail   string
	seq      int
	latency  time.Duration
	skipped  bool
	resolved bool
}

// dispatchPair claims the pair, runs the adapter and records the outcome.
// Every fault is mapped to a terminal status; a failing ledger write leaves
// the attempt in flight for the liveness path.
func (c *Coordinator) dispatchPair(ctx context.Context, p model.Pair) pairResult {
	att, err := c.ledger.Claim(ctx, p.ContentHash, p.Platform, time.Now())
	if err == store.ErrClaimConflict {
		claimConflicts.Inc()
		c.logger.Debugf("pair %s already in flight, skipping", p)
		return pairResult{skipped: true}
	}
	if err != nil {
		c.logger.Errorf("claim %s: %v", p, err)
		return pairResult{skipped: true}
	}

	start := time.Now()
	status, detail, remoteRef := c.attempt(ctx, p)
	latency := time.Since(start)

	if err := c.ledger.Resolve(ctx, att.ID, status, detail, remoteRef, time.Now()); err != nil {
		// The attempt stays in flight and is reconciled by the liveness
		// sweep on a later cycle; it is never silently lost.
		c.logger.Errorf("resolve %s attempt %d: %v", p, att.Seq, err)
		return pairResult{status: status, seq: att.Seq, latency: latency}
	}

	attemptsTotal.WithLabelValues(p.Platform, string(status)).Inc()
	attemptLatency.WithLabelValues(p.Platform).Observe(latency.Seconds())
	if c.bus != nil {
		c.bus.Publish(events.AttemptEvent{
			ContentHash: p.ContentHash,
			Platform:    p.Platform,
			Seq:         att.Seq,
			Status:      status,
			Detail:      detail,
			RemoteRef:   remoteRef,
			Latency:     latency,
		})
	}
	if status == model.StatusSucceeded {
		c.logger.Infof("published %s (attempt %d)", p, att.Seq)
	} else {
		c.logger.Warnf("publish %s failed (attempt %d): %s", p, att.Seq, detail)
		c.abandonIfExhausted(ctx, p)
	}
	return pairResult{status: status, detail: detail, seq: att.Seq, latency: latency, resolved: true}
}

// attempt resolves the content record and invokes the adapter, mapping every
// fault to a terminal status with diagnostic detail.
func (c *Coordinator) attempt(ctx context.Context, p model.Pair) (model.AttemptStatus, string, string) {
	item, err := c.content.Get(ctx, p.ContentHash)
	if err != nil {
		return model.StatusFailed, fmt.Sprintf("content record unavailable: %v", err), ""
	}
	if c.blobs != nil {
		if err := c.blobs.Check(item.Location); err != nil {
			return model.StatusFailed, detailFileMissing, ""
		}
	}
	adapter, ok := c.registry.Adapter(p.Platform)
	if !ok {
		return model.StatusFailed, fmt.Sprintf("no adapter for platform %s", p.Platform), ""
	}
	out, err := c.publish(ctx, adapter, platform.PublishRequest{
		ContentRef:  item.Location,
		Name:        item.Name,
		Caption:     item.Caption,
		ScheduledAt: item.ScheduledAt,
	})
	if err != nil {
		return model.StatusFailed, err.Error(), ""
	}
	return model.StatusSucceeded, "", out.RemoteRef
}

// publish bounds the adapter call with the per-attempt timeout and isolates
// panics. An adapter that ignores its context cannot block the cycle: the
// call is abandoned on expiry and its goroutine left to finish on its own.
func (c *Coordinator) publish(ctx context.Context, a platform.Adapter, req platform.PublishRequest) (platform.Outcome, error) {
	cctx, cancel := context.WithTimeout(ctx, c.cfg.PerAttemptTimeout())
	defer cancel()

	type result struct {
		out platform.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("adapter error: %v", r)}
			}
		}()
		out, err := a.Publish(cctx, req)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return platform.Outcome{}, fmt.Errorf("adapter failure: %w", r.err)
		}
		return r.out, nil
	case <-cctx.Done():
		return platform.Outcome{}, errors.New(detailUnresponsive)
	}
}

// abandonIfExhausted consults the retry policy on the updated history and
// appends the terminal abandoned marker when the budget is spent, so the
// selector never surfaces the pair again.
func (c *Coordinator) abandonIfExhausted(ctx context.Context, p model.Pair) {
	history, err := c.ledger.History(ctx, p.ContentHash, p.Platform)
	if err != nil {
		c.logger.Errorf("history %s: %v", p, err)
		return
	}
	if c.policy.Decide(history).Retry {
		return
	}
	if err := c.ledger.MarkAbandoned(ctx, p.ContentHash, p.Platform, time.Now(), detailExhausted); err != nil {
		c.logger.Errorf("abandon %s: %v", p, err)
		return
	}
	c.logger.Warnf("pair %s abandoned: %s", p, detailExhausted)
}

// record forwards attempt and cycle records to the configured sink.
func (c *Coordinator) record(recs []metrics.AttemptRecord, rep CycleReport, now time.Time, dur time.Duration) {
	if c.metrics == nil {
		return
	}
	if len(recs) > 0 {
		if err := c.metrics.RecordAttempts(recs); err != nil {
			c.logger.Errorf("metrics error: %v", err)
		}
	}
	if cr, ok := c.metrics.(metrics.CycleRecorder); ok {
		if err := cr.RecordCycle(metrics.CycleRecord{
			Attempted: rep.Attempted,
			Succeeded: rep.Succeeded,
			Failed:    rep.Failed,
			Skipped:   rep.Skipped,
			Reaped:    rep.Reaped,
			Duration:  dur,
			Time:      now,
		}); err != nil {
			c.logger.Errorf("cycle metrics error: %v", err)
		}
	}
}
