package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/clipcast/core/model"
	"github.com/kilianp07/clipcast/core/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testItem(hash string, at time.Time) model.ContentItem {
	return model.ContentItem{
		Hash:        hash,
		Name:        "clip " + hash,
		Caption:     "caption",
		ScheduledAt: at,
		Location:    "uploads/" + hash,
		SizeBytes:   1024,
		MimeType:    "video/mp4",
	}
}

func TestUpsertDeduplicatesByHash(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	if err := s.Upsert(ctx, testItem("abc", at)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	updated := testItem("abc", at.Add(time.Hour))
	updated.Caption = "new caption"
	if err := s.Upsert(ctx, updated); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item got %d", len(items))
	}
	if items[0].Caption != "new caption" {
		t.Errorf("caption not updated: %q", items[0].Caption)
	}
	if !items[0].ScheduledAt.Equal(at.Add(time.Hour)) {
		t.Errorf("schedule not updated: %v", items[0].ScheduledAt)
	}
}

func TestListDueOrdering(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for _, it := range []model.ContentItem{
		testItem("bbb", now.Add(-time.Minute)),
		testItem("aaa", now.Add(-time.Minute)),
		testItem("ccc", now.Add(-time.Hour)),
		testItem("ddd", now.Add(time.Hour)),
	} {
		if err := s.Upsert(ctx, it); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	due, err := s.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	var hashes []string
	for _, it := range due {
		hashes = append(hashes, it.Hash)
	}
	want := []string{"ccc", "aaa", "bbb"}
	if len(hashes) != len(want) {
		t.Fatalf("due hashes: %v", hashes)
	}
	for i := range want {
		if hashes[i] != want[i] {
			t.Fatalf("due order: got %v want %v", hashes, want)
		}
	}
}

func TestClaimConflict(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	a, err := s.Claim(ctx, "abc", "instagram", now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if a.Status != model.StatusInFlight || a.Seq != 1 {
		t.Fatalf("unexpected attempt: %+v", a)
	}

	if _, err := s.Claim(ctx, "abc", "instagram", now); err != store.ErrClaimConflict {
		t.Fatalf("expected claim conflict, got %v", err)
	}
	// A different platform for the same content is independent.
	if _, err := s.Claim(ctx, "abc", "tiktok", now); err != nil {
		t.Fatalf("claim other platform: %v", err)
	}
}

func TestClaimConcurrent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Claim(ctx, "abc", "instagram", now)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if err != store.ErrClaimConflict {
				t.Errorf("unexpected claim error: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", wins)
	}
}

func TestResolveExactlyOnce(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	a, err := s.Claim(ctx, "abc", "instagram", now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.Resolve(ctx, a.ID, model.StatusSucceeded, "", "remote-1", now); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := s.Resolve(ctx, a.ID, model.StatusFailed, "late", "", now); err != store.ErrNotInFlight {
		t.Fatalf("expected ErrNotInFlight on second resolve, got %v", err)
	}

	latest, err := s.Latest(ctx, "abc", "instagram")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Status != model.StatusSucceeded || latest.RemoteRef != "remote-1" {
		t.Fatalf("unexpected latest: %+v", latest)
	}
	if latest.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
}

func TestResolveRejectsNonTerminal(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	a, err := s.Claim(ctx, "abc", "instagram", time.Now())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.Resolve(ctx, a.ID, model.StatusPending, "", "", time.Now()); err == nil {
		t.Fatal("expected error for non-terminal resolve status")
	}
}

func TestReapStale(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)

	if _, err := s.Claim(ctx, "abc", "instagram", old); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := s.Claim(ctx, "def", "instagram", time.Now()); err != nil {
		t.Fatalf("claim fresh: %v", err)
	}

	n, err := s.ReapStale(ctx, time.Now().Add(-30*time.Minute), "liveness timeout exceeded")
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reaped, got %d", n)
	}

	latest, err := s.Latest(ctx, "abc", "instagram")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Status != model.StatusFailed {
		t.Fatalf("expected failed, got %s", latest.Status)
	}
	if latest.Detail != "liveness timeout exceeded" {
		t.Fatalf("unexpected detail: %q", latest.Detail)
	}
	// The pair can be claimed again once the stale row is gone.
	if _, err := s.Claim(ctx, "abc", "instagram", time.Now()); err != nil {
		t.Fatalf("re-claim after reap: %v", err)
	}
}

func TestSequenceIncrements(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 1; i <= 3; i++ {
		a, err := s.Claim(ctx, "abc", "instagram", now)
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if a.Seq != i {
			t.Fatalf("seq: got %d want %d", a.Seq, i)
		}
		if err := s.Resolve(ctx, a.ID, model.StatusFailed, "boom", "", now); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	hist, err := s.History(ctx, "abc", "instagram")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(hist))
	}
}

func TestRequestRetry(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	a, err := s.Claim(ctx, "abc", "instagram", now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	// Refused while an attempt is in flight.
	if _, err := s.RequestRetry(ctx, "abc", "instagram", now, "operator"); err != store.ErrClaimConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := s.Resolve(ctx, a.ID, model.StatusFailed, "boom", "", now); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	p, err := s.RequestRetry(ctx, "abc", "instagram", now, "operator")
	if err != nil {
		t.Fatalf("request retry: %v", err)
	}
	if p.Status != model.StatusPending || p.Seq != 2 {
		t.Fatalf("unexpected pending marker: %+v", p)
	}
}

func TestMarkAbandonedAndSuccessCounts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	a, err := s.Claim(ctx, "abc", "instagram", now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.Resolve(ctx, a.ID, model.StatusSucceeded, "", "r1", now); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, err := s.Claim(ctx, "abc", "tiktok", now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.Resolve(ctx, b.ID, model.StatusFailed, "boom", "", now); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := s.MarkAbandoned(ctx, "abc", "tiktok", now, "retry budget exhausted"); err != nil {
		t.Fatalf("mark abandoned: %v", err)
	}

	latest, err := s.Latest(ctx, "abc", "tiktok")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Status != model.StatusAbandoned {
		t.Fatalf("expected abandoned, got %s", latest.Status)
	}

	counts, err := s.SuccessCounts(ctx)
	if err != nil {
		t.Fatalf("success counts: %v", err)
	}
	if counts["abc"] != 1 {
		t.Fatalf("counts: %v", counts)
	}
}

func TestAttemptsQuery(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	a, _ := s.Claim(ctx, "abc", "instagram", now)
	_ = s.Resolve(ctx, a.ID, model.StatusSucceeded, "", "r", now)
	b, _ := s.Claim(ctx, "def", "tiktok", now)
	_ = s.Resolve(ctx, b.ID, model.StatusFailed, "boom", "", now)

	failed, err := s.Attempts(ctx, store.AttemptQuery{Status: model.StatusFailed})
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(failed) != 1 || failed[0].ContentHash != "def" {
		t.Fatalf("unexpected result: %+v", failed)
	}

	byPlatform, err := s.Attempts(ctx, store.AttemptQuery{Platform: "instagram"})
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(byPlatform) != 1 || byPlatform[0].ContentHash != "abc" {
		t.Fatalf("unexpected result: %+v", byPlatform)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newStore(t)
	if _, err := s.Get(context.Background(), "missing"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Latest(context.Background(), "missing", "instagram"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
