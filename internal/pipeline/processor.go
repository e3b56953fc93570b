// Package pipeline turns one venue record into a normalized document: it
// discovers and fetches pages, cleans them, categorizes the primary site,
// merges listing sources and writes the bounded result to the record store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/assemble"
	"github.com/JakeFAU/venue-ingest/internal/categorize"
	"github.com/JakeFAU/venue-ingest/internal/cleaner"
	"github.com/JakeFAU/venue-ingest/internal/discovery"
	"github.com/JakeFAU/venue-ingest/internal/fetch"
	"github.com/JakeFAU/venue-ingest/internal/metrics"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// Record fields written by the pipeline.
const (
	DefaultContentField = "venue_url_scraped"
	GPSField            = "gps_coordinates"
	FullJSONField       = "full_venue_json"
	SummaryJSONField    = "summary_venue_json"
	BrochureField       = "brochure_text"
)

// PrimarySource names the venue site in the sources list.
const PrimarySource = "Venue"

const pageHeaderPrefix = "## Page: "

// Reasons reported with MANUAL_CHECK.
const (
	ReasonEmptyContent = "Empty content returned"
	ReasonEmptyCleaned = "Empty content after cleaning"
)

// DefaultListings is the ordered set of known listing directories.
var DefaultListings = []venue.Listing{
	{Short: "CB", Label: "**ChateauBee**"},
	{Short: "WI", Label: "**WedInspire**"},
	{Short: "FWV", Label: "**French Wedding Venues**"},
}

// Deps are the collaborators a Processor calls. Mapper, Blobs, Cache and
// Geocoder may be nil.
type Deps struct {
	Mapper   venue.Mapper
	Scraper  venue.Scraper
	Store    venue.RecordStore
	Blobs    venue.BlobStore
	Cache    venue.PageCache
	Geocoder venue.Geocoder
	Clock    venue.Clock
	Pauser   fetch.Pauser
}

// Config tunes a Processor.
type Config struct {
	Limits         Limits
	Fetch          fetch.Config
	RateLimitDelay time.Duration
	ContentField   string
	Listings       []venue.Listing
	// ManualCheckMarker writes a review marker into ContentField when a run
	// ends in MANUAL_CHECK. When false such runs leave the record untouched.
	ManualCheckMarker bool
}

// Processor runs the pipeline. It holds no per-run state, so one Processor
// may serve concurrent runs; each run gets its own Pacer.
type Processor struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// Result is the outcome of Run.
type Result struct {
	Status   Status
	Language string
	Document string
}

type listingContent struct {
	listing venue.Listing
	text    string
}

// New validates deps and fills config defaults.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Processor, error) {
	if deps.Scraper == nil {
		return nil, errors.New("pipeline: scraper is required")
	}
	if deps.Store == nil {
		return nil, errors.New("pipeline: record store is required")
	}
	if deps.Clock == nil {
		return nil, errors.New("pipeline: clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Limits = cfg.Limits.withDefaults()
	if cfg.RateLimitDelay < 0 {
		cfg.RateLimitDelay = 0
	}
	if cfg.ContentField == "" {
		cfg.ContentField = DefaultContentField
	}
	if len(cfg.Listings) == 0 {
		cfg.Listings = DefaultListings
	}
	return &Processor{deps: deps, cfg: cfg, logger: logger.Named("pipeline")}, nil
}

// Run processes one venue record. It never panics; unexpected failures are
// reported as an ERROR status.
func (p *Processor) Run(ctx context.Context, req venue.Request) (res Result) {
	logger := p.logger.With(zap.String("record_id", req.RecordID), zap.String("venue_url", req.VenueURL))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panic", zap.Any("panic", r), zap.Stack("stack"))
			res = Result{Status: failure(fmt.Sprint(r))}
		}
		metrics.ObserveRun(string(res.Status.Kind))
	}()

	if strings.TrimSpace(req.RecordID) == "" || strings.TrimSpace(req.VenueURL) == "" {
		return Result{Status: failure("record id and venue url are required")}
	}
	if req.ScrapeOnly {
		logger.Info("scraping venue")
	} else {
		logger.Info("processing venue")
	}

	fetcher := fetch.New(p.deps.Scraper, p.deps.Cache, fetch.NewPacer(p.cfg.RateLimitDelay),
		p.deps.Pauser, p.cfg.Fetch, logger)

	raw, pages, err := p.scrapePrimary(ctx, fetcher, req.VenueURL, logger)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Status: failure(ctx.Err().Error())}
		}
		return Result{Status: p.writeManualCheck(ctx, req.RecordID, ReasonEmptyContent)}
	}

	cleaned := cleaner.Clean(raw)
	if cleaned == "" {
		return Result{Status: p.writeManualCheck(ctx, req.RecordID, ReasonEmptyCleaned)}
	}
	chars := utf8.RuneCountInString(cleaned)
	words := len(strings.Fields(cleaned))
	if chars < p.cfg.Limits.MinContentChars || words < p.cfg.Limits.MinContentWords {
		reason := fmt.Sprintf("Low quality content (%d chars, %d words)", chars, words)
		return Result{Status: p.writeManualCheck(ctx, req.RecordID, reason)}
	}

	lang := DetectLanguage(cleaned)
	logger.Info("primary content cleaned",
		zap.Int("pages", pages),
		zap.Int("chars", chars),
		zap.Int("words", words),
		zap.String("language", lang),
	)

	listings, err := p.scrapeListings(ctx, fetcher, req.Listings, logger)
	if err != nil {
		return Result{Status: failure(err.Error()), Language: lang}
	}
	sources := []string{PrimarySource}
	listingChars := 0
	for _, l := range listings {
		sources = append(sources, l.listing.Short)
		listingChars += utf8.RuneCountInString(l.text)
	}

	if req.ScrapeOnly {
		if err := p.saveScrape(ctx, req.RecordID, cleaned, listings); err != nil {
			logger.Error("save scrape artifacts", zap.Error(err))
			return Result{Status: failure(err.Error()), Language: lang}
		}
		return Result{
			Status: Status{
				Kind:         KindScraped,
				Chars:        chars,
				Pages:        pages,
				Listings:     len(listings),
				Sources:      sources,
				ListingChars: listingChars,
			},
			Language: lang,
			Document: cleaned,
		}
	}

	sections := make([]assemble.Section, 0, len(listings))
	for _, l := range listings {
		sections = append(sections, assemble.Section{Label: l.listing.Label, Body: l.text})
	}
	combined := assemble.Combine(categorize.Document(cleaned), sections)
	final, truncated := assemble.Truncate(combined, p.cfg.Limits.MaxChars)
	if truncated {
		logger.Info("document truncated", zap.Int("max_chars", p.cfg.Limits.MaxChars))
	}

	if err := p.writeContent(ctx, req.RecordID, final); err != nil {
		logger.Error("write document", zap.Error(err))
		return Result{Status: Status{Kind: KindStoreError, Reason: "PATCH failed"}, Language: lang, Document: final}
	}

	finalChars := utf8.RuneCountInString(final)
	metrics.ObserveDocument(finalChars)
	return Result{
		Status: Status{
			Kind:      KindSuccess,
			Chars:     finalChars,
			Pages:     pages,
			Listings:  len(listings),
			Sources:   sources,
			Truncated: truncated,
		},
		Language: lang,
		Document: final,
	}
}

// scrapePrimary maps the venue site, fetches every planned page and joins the
// survivors. It returns venue.ErrFetchFailed when no page produced content.
func (p *Processor) scrapePrimary(
	ctx context.Context,
	fetcher *fetch.Fetcher,
	venueURL string,
	logger *zap.Logger,
) (string, int, error) {
	var (
		links []venue.DiscoveredLink
		ok    bool
	)
	if p.deps.Mapper != nil {
		var err error
		links, err = fetcher.Map(ctx, p.deps.Mapper, venueURL)
		if err != nil {
			if ctx.Err() != nil {
				return "", 0, ctx.Err()
			}
			logger.Warn("site map failed, falling back to single page", zap.Error(err))
		} else {
			ok = true
		}
	}

	plan := discovery.Filter(links, ok, venueURL, p.cfg.Limits.MaxPages)
	logger.Info("fetch plan ready", zap.Int("pages", len(plan.URLs)))

	parts := make([]string, 0, len(plan.URLs))
	for _, url := range plan.URLs {
		page, err := fetcher.Fetch(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return "", 0, ctx.Err()
			}
			logger.Info("page skipped", zap.String("url", url), zap.Error(err))
			continue
		}
		parts = append(parts, pageHeaderPrefix+url+"\n\n"+strings.TrimSpace(page.Markdown))
	}
	if len(parts) == 0 {
		return "", 0, fmt.Errorf("%s: %w", ReasonEmptyContent, venue.ErrFetchFailed)
	}
	return strings.Join(parts, assemble.Divider), len(parts), nil
}

// scrapeListings fetches each listing URL once. Failed or thin listings are
// omitted. Only context cancellation is returned as an error.
func (p *Processor) scrapeListings(
	ctx context.Context,
	fetcher *fetch.Fetcher,
	requested []venue.Listing,
	logger *zap.Logger,
) ([]listingContent, error) {
	var out []listingContent
	for _, l := range p.orderListings(requested) {
		if strings.TrimSpace(l.URL) == "" {
			continue
		}
		page, err := fetcher.Fetch(ctx, l.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Info("listing skipped", zap.String("listing", l.Short), zap.Error(err))
			continue
		}
		text := cleaner.Clean(page.Markdown)
		if text == "" || utf8.RuneCountInString(text) < p.cfg.Limits.MinListingChars {
			logger.Info("listing too short after cleaning",
				zap.String("listing", l.Short),
				zap.Int("chars", utf8.RuneCountInString(text)),
			)
			continue
		}
		out = append(out, listingContent{listing: l, text: text})
	}
	return out, nil
}

// orderListings sorts requested listings into configured order and fills in
// labels. Unknown listings keep their request order after the known ones.
func (p *Processor) orderListings(requested []venue.Listing) []venue.Listing {
	rank := func(short string) int {
		for i, known := range p.cfg.Listings {
			if strings.EqualFold(known.Short, short) {
				return i
			}
		}
		return len(p.cfg.Listings)
	}
	out := make([]venue.Listing, 0, len(requested))
	for _, l := range requested {
		if l.Label == "" {
			if i := rank(l.Short); i < len(p.cfg.Listings) {
				l.Label = p.cfg.Listings[i].Label
			} else {
				l.Label = "**" + l.Short + "**"
			}
		}
		out = append(out, l)
	}
	slices.SortStableFunc(out, func(a, b venue.Listing) int {
		return rank(a.Short) - rank(b.Short)
	})
	return out
}

func (p *Processor) saveScrape(ctx context.Context, recordID, cleaned string, listings []listingContent) error {
	if err := p.putText(ctx, RawPath(recordID), cleaned); err != nil {
		return err
	}
	for _, l := range listings {
		if err := p.putText(ctx, ListingPath(recordID, l.listing.Short), l.text); err != nil {
			return err
		}
	}
	return nil
}

// writeContent dumps the payload and writes the document field.
func (p *Processor) writeContent(ctx context.Context, recordID, content string) error {
	fields := map[string]string{p.cfg.ContentField: content}
	p.dumpPayload(ctx, fields)
	if err := p.deps.Store.WriteFields(ctx, recordID, fields); err != nil {
		return fmt.Errorf("write %s: %w", p.cfg.ContentField, err)
	}
	return nil
}

// writeManualCheck reports a run that needs human review. When enabled the
// record is stamped too; that write is best effort.
func (p *Processor) writeManualCheck(ctx context.Context, recordID, reason string) Status {
	if p.cfg.ManualCheckMarker {
		marker := ManualCheckMarker(reason, p.deps.Clock.Now())
		err := p.deps.Store.WriteFields(ctx, recordID, map[string]string{p.cfg.ContentField: marker})
		if err != nil {
			p.logger.Warn("manual check marker not written", zap.String("record_id", recordID), zap.Error(err))
		}
	}
	p.logger.Info("manual check required", zap.String("record_id", recordID), zap.String("reason", reason))
	return manualCheck(reason)
}

// ManualCheckMarker formats the record value that flags a venue for review.
func ManualCheckMarker(reason string, at time.Time) string {
	return fmt.Sprintf("MANUAL_CHECK -- %s -- %s", reason, at.UTC().Format(time.RFC3339))
}
