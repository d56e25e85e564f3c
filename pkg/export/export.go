// Package export serializes delivery attempt history for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/clipcast/core/model"
)

// WriteJSON writes the attempts to w in JSON format.
func WriteJSON(w io.Writer, attempts []model.DeliveryAttempt) error {
	enc := json.NewEncoder(w)
	return enc.Encode(attempts)
}

// WriteCSV writes the attempts to w in CSV format.
func WriteCSV(w io.Writer, attempts []model.DeliveryAttempt) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"content_hash", "platform", "seq", "status", "detail", "remote_ref", "started_at", "completed_at"}); err != nil {
		return err
	}
	for _, a := range attempts {
		completed := ""
		if a.CompletedAt != nil {
			completed = a.CompletedAt.Format(time.RFC3339)
		}
		rec := []string{
			a.ContentHash,
			a.Platform,
			strconv.Itoa(a.Seq),
			string(a.Status),
			a.Detail,
			a.RemoteRef,
			a.StartedAt.Format(time.RFC3339),
			completed,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
