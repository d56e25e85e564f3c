// Package selector derives the set of (content, platform) pairs that are due
// for a publish attempt. Selection is purely read-derived: it re-queries
// state fresh on every cycle and keeps no memory across cycles.
package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/clipcast/core/model"
	"github.com/kilianp07/clipcast/core/retry"
	"github.com/kilianp07/clipcast/core/store"
)

// Registry is the subset of the platform registry the selector needs.
type Registry interface {
	Enabled() []string
}

// Selector computes due pairs from the content store and the delivery ledger.
type Selector struct {
	content  store.ContentStore
	ledger   store.Ledger
	registry Registry
	policy   retry.Policy
}

// New creates a Selector.
func New(content store.ContentStore, ledger store.Ledger, registry Registry, policy retry.Policy) (*Selector, error) {
	if content == nil || ledger == nil || registry == nil || policy == nil {
		return nil, fmt.Errorf("selector: nil parameter provided to New")
	}
	return &Selector{content: content, ledger: ledger, registry: registry, policy: policy}, nil
}

// SelectDue returns the due pairs at the given instant, ordered by ascending
// scheduled time with the content hash as tiebreak. Platforms iterate in the
// registry's deterministic order, so the full sequence is reproducible.
func (s *Selector) SelectDue(ctx context.Context, now time.Time) ([]model.Pair, error) {
	items, err := s.content.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("selector: list due content: %w", err)
	}
	platforms := s.registry.Enabled()
	var pairs []model.Pair
	for _, item := range items {
		for _, p := range platforms {
			due, err := s.pairDue(ctx, item.Hash, p, now)
			if err != nil {
				return nil, err
			}
			if due {
				pairs = append(pairs, model.Pair{ContentHash: item.Hash, Platform: p})
			}
		}
	}
	return pairs, nil
}

// pairDue evaluates the latest attempt for the pair. Absent history and
// pending markers are immediately due; failures go through the retry policy
// and its backoff timing; terminal and in-flight states are skipped.
func (s *Selector) pairDue(ctx context.Context, hash, platform string, now time.Time) (bool, error) {
	latest, err := s.ledger.Latest(ctx, hash, platform)
	if err == store.ErrNotFound {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("selector: ledger latest %s/%s: %w", hash, platform, err)
	}
	switch latest.Status {
	case model.StatusPending:
		return true, nil
	case model.StatusSucceeded, model.StatusAbandoned, model.StatusInFlight:
		// Stale in-flight rows are reaped by the coordinator before
		// selection, so a remaining in-flight attempt is genuinely live.
		return false, nil
	}
	history, err := s.ledger.History(ctx, hash, platform)
	if err != nil {
		return false, fmt.Errorf("selector: ledger history %s/%s: %w", hash, platform, err)
	}
	d := s.policy.Decide(history)
	if !d.Retry {
		return false, nil
	}
	eligible := latest.StartedAt.Add(d.After)
	if latest.CompletedAt != nil {
		eligible = latest.CompletedAt.Add(d.After)
	}
	return !eligible.After(now), nil
}
