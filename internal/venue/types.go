// Package venue defines core types shared across the ingestion subsystems.
package venue

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared by collaborators and the pipeline.
var (
	// ErrFetchFailed reports that a page produced no usable content.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrStoreWrite reports that the record store rejected a write.
	ErrStoreWrite = errors.New("record store write failed")
	// ErrNotFound reports a missing record or artifact.
	ErrNotFound = errors.New("not found")
	// ErrQueueClosed reports that a run queue no longer yields items.
	ErrQueueClosed = errors.New("queue closed")
)

// DiscoveredLink is one link reported by the mapping collaborator.
type DiscoveredLink struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// FetchPlan is the ordered list of URLs to fetch for the primary source.
// The primary URL is always first and no URL appears twice.
type FetchPlan struct {
	URLs []string
}

// Primary returns the first URL of the plan.
func (p FetchPlan) Primary() string {
	if len(p.URLs) == 0 {
		return ""
	}
	return p.URLs[0]
}

// PageContent is the fetched markdown for one URL.
type PageContent struct {
	URL      string
	Markdown string
	Cached   bool
}

// ScrapeRequest carries the options handed to a Scraper.
type ScrapeRequest struct {
	URL        string
	Timeout    time.Duration
	RenderWait time.Duration
}

// ScrapeResult is what a Scraper returns for one request. A non-2xx StatusCode is
// not an error; callers decide whether the status is retryable.
type ScrapeResult struct {
	URL        string
	StatusCode int
	Markdown   string
}

// Listing identifies one secondary directory source for a venue.
type Listing struct {
	Short string `json:"short" yaml:"short" mapstructure:"short" validate:"required"`
	Label string `json:"label" yaml:"label" mapstructure:"label"`
	URL   string `json:"url" yaml:"url" mapstructure:"url" validate:"omitempty,url"`
}

// Request describes one venue record to process.
type Request struct {
	RecordID   string    `json:"record_id" yaml:"record_id" validate:"required"`
	VenueURL   string    `json:"venue_url" yaml:"venue_url" validate:"required,url"`
	Listings   []Listing `json:"listings,omitempty" yaml:"listings" validate:"dive"`
	ScrapeOnly bool      `json:"scrape_only,omitempty" yaml:"scrape_only"`
}

// RunState is the lifecycle state of a queued pipeline run.
type RunState string

// Run states persisted in the run store.
const (
	RunStateQueued    RunState = "queued"
	RunStateRunning   RunState = "running"
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
)

// Run is the metadata kept for each pipeline invocation.
type Run struct {
	ID         string     `json:"id"`
	Request    Request    `json:"request"`
	State      RunState   `json:"state"`
	StatusLine string     `json:"status_line,omitempty"`
	Kind       string     `json:"kind,omitempty"`
	Chars      int        `json:"chars"`
	Pages      int        `json:"pages"`
	Listings   int        `json:"listings"`
	Sources    []string   `json:"sources,omitempty"`
	Language   string     `json:"language,omitempty"`
	Truncated  bool       `json:"truncated"`
	Submitted  time.Time  `json:"submitted_at"`
	Finished   *time.Time `json:"finished_at,omitempty"`
}

// StatusError reports a non-success HTTP status from an external collaborator.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}
