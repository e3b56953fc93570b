package venue

import (
	"context"
	"io"
	"time"
)

// Mapper discovers the links of a site. It is treated as unreliable.
type Mapper interface {
	Map(ctx context.Context, rootURL string) ([]DiscoveredLink, error)
}

// Scraper retrieves markdown for one URL.
type Scraper interface {
	Scrape(ctx context.Context, request ScrapeRequest) (ScrapeResult, error)
}

// RecordStore persists normalized fields on venue records.
type RecordStore interface {
	WriteFields(ctx context.Context, recordID string, fields map[string]string) error
	ReadFields(ctx context.Context, recordID string) (map[string]string, error)
}

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lon float64, ok bool, err error)
}

// BlobStore writes and reads pipeline artifacts (raw scrapes, payload dumps).
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
	DeleteObject(ctx context.Context, path string) error
}

// PageCache stores successful scrapes keyed by URL.
type PageCache interface {
	Get(ctx context.Context, url string) (string, bool, error)
	Set(ctx context.Context, url string, markdown string) error
}

// Publisher pushes run completion events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RunStore keeps run metadata.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	UpdateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, runID string) (Run, error)
}

// RunRecorder appends finished runs to an audit log.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// Queue provides enqueue/dequeue semantics for pipeline runs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// QueueItem wraps a run ready to execute.
type QueueItem struct {
	RunID     string
	Request   Request
	Submitted int64
}
