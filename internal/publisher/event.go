// Package publisher defines the run completion event pushed to subscribers.
package publisher

import (
	"time"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// RunEvent announces that a pipeline run finished.
type RunEvent struct {
	RunID      string    `json:"run_id"`
	RecordID   string    `json:"record_id"`
	VenueURL   string    `json:"venue_url"`
	State      string    `json:"state"`
	Kind       string    `json:"status_kind"`
	StatusLine string    `json:"status_line"`
	Chars      int       `json:"chars"`
	Truncated  bool      `json:"truncated"`
	Language   string    `json:"language,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRunEvent builds the event for a finished run.
func NewRunEvent(run venue.Run) RunEvent {
	ev := RunEvent{
		RunID:      run.ID,
		RecordID:   run.Request.RecordID,
		VenueURL:   run.Request.VenueURL,
		State:      string(run.State),
		Kind:       run.Kind,
		StatusLine: run.StatusLine,
		Chars:      run.Chars,
		Truncated:  run.Truncated,
		Language:   run.Language,
	}
	if run.Finished != nil {
		ev.FinishedAt = *run.Finished
	}
	return ev
}

// Attributes returns message attributes subscribers can filter on.
func (e RunEvent) Attributes() map[string]string {
	return map[string]string{
		"record_id":   e.RecordID,
		"status_kind": e.Kind,
	}
}
