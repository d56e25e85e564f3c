package operator

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/clipcast/core/events"
	"github.com/kilianp07/clipcast/core/model"
	"github.com/kilianp07/clipcast/core/store"
	"github.com/kilianp07/clipcast/internal/eventbus"
)

// Registry is the subset of the platform registry the handlers need.
type Registry interface {
	Enabled() []string
}

func authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+token
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ContentSummary is one row of the content overview: the record plus the
// latest attempt status per enabled platform and the total success count.
type ContentSummary struct {
	model.ContentItem
	Platforms map[string]model.AttemptStatus `json:"platforms"`
	Successes int                            `json:"successes"`
}

// NewContentHandler returns an HTTP handler exposing the content overview via
// GET /api/content. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty.
func NewContentHandler(content store.ContentStore, ledger store.Ledger, reg Registry, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		items, err := content.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		counts, err := ledger.SuccessCounts(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		enabled := reg.Enabled()
		out := make([]ContentSummary, 0, len(items))
		for _, item := range items {
			s := ContentSummary{
				ContentItem: item,
				Platforms:   make(map[string]model.AttemptStatus, len(enabled)),
				Successes:   counts[item.Hash],
			}
			for _, p := range enabled {
				latest, err := ledger.Latest(r.Context(), item.Hash, p)
				switch {
				case errors.Is(err, store.ErrNotFound):
					continue
				case err != nil:
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				s.Platforms[p] = latest.Status
			}
			out = append(out, s)
		}
		writeJSON(w, out)
	})
}

// NewHistoryHandler exposes the full attempt history for one content item via
// GET /api/content/{hash}/attempts.
func NewHistoryHandler(ledger store.Ledger, reg Registry, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		hash := r.PathValue("hash")
		if hash == "" {
			http.Error(w, "missing content hash", http.StatusBadRequest)
			return
		}
		out := []model.DeliveryAttempt{}
		for _, p := range reg.Enabled() {
			attempts, err := ledger.History(r.Context(), hash, p)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			out = append(out, attempts...)
		}
		writeJSON(w, out)
	})
}

// NewAttemptsHandler exposes ledger queries via GET /api/attempts. Supported
// query parameters: content_hash, platform, status, start, end (RFC3339).
func NewAttemptsHandler(ledger store.Ledger, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := store.AttemptQuery{
			ContentHash: r.URL.Query().Get("content_hash"),
			Platform:    r.URL.Query().Get("platform"),
		}
		if s := r.URL.Query().Get("status"); s != "" {
			st := model.AttemptStatus(s)
			if !st.Valid() {
				http.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
			q.Status = st
		}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		attempts, err := ledger.Attempts(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, attempts)
	})
}

// NewRetryHandler triggers an immediate retry for one pair via
// POST /api/content/{hash}/platforms/{platform}/retry. The retry marker makes
// the pair due on the next cycle and resets its backoff budget. Accepted
// retries are announced on the bus when one is provided.
func NewRetryHandler(ledger store.Ledger, reg Registry, bus eventbus.EventBus, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		hash := r.PathValue("hash")
		platform := r.PathValue("platform")
		if hash == "" || platform == "" {
			http.Error(w, "missing content hash or platform", http.StatusBadRequest)
			return
		}
		known := false
		for _, p := range reg.Enabled() {
			if p == platform {
				known = true
				break
			}
		}
		if !known {
			http.Error(w, "unknown platform", http.StatusNotFound)
			return
		}
		attempt, err := ledger.RequestRetry(r.Context(), hash, platform, time.Now().UTC(), "operator retry")
		if err != nil {
			if errors.Is(err, store.ErrClaimConflict) {
				http.Error(w, "attempt in flight", http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if bus != nil {
			bus.Publish(events.RetryRequestedEvent{
				ContentHash: hash,
				Platform:    platform,
				Note:        attempt.Detail,
			})
		}
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, attempt)
	})
}

// Routes registers all operator endpoints on a new mux.
func Routes(content store.ContentStore, ledger store.Ledger, reg Registry, bus eventbus.EventBus, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/content", NewContentHandler(content, ledger, reg, token))
	mux.Handle("/api/content/{hash}/attempts", NewHistoryHandler(ledger, reg, token))
	mux.Handle("/api/attempts", NewAttemptsHandler(ledger, token))
	mux.Handle("/api/content/{hash}/platforms/{platform}/retry", NewRetryHandler(ledger, reg, bus, token))
	return mux
}
