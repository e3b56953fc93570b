package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

const (
	manualCheckPrefix   = "MANUAL_CHECK"
	brochureErrorPrefix = "[ERROR]"
)

// WriteFile writes a structured document from the artifact store to the
// record. On success the structured file and the record's scrape artifacts
// are removed.
func (p *Processor) WriteFile(ctx context.Context, recordID, path string) Status {
	if p.deps.Blobs == nil {
		return failure("no artifact store configured")
	}
	data, err := p.deps.Blobs.GetObject(ctx, path)
	if err != nil {
		if errors.Is(err, venue.ErrNotFound) {
			return failure("File not found: " + path)
		}
		return failure(err.Error())
	}
	content := string(data)
	chars := utf8.RuneCountInString(content)

	if err := p.writeContent(ctx, recordID, content); err != nil {
		p.logger.Error("write structured file", zap.String("record_id", recordID), zap.Error(err))
		return Status{Kind: KindStoreError, Reason: "PATCH failed", Chars: chars}
	}

	p.deleteArtifact(ctx, path)
	p.deleteArtifact(ctx, RawPath(recordID))
	for _, l := range p.cfg.Listings {
		p.deleteArtifact(ctx, ListingPath(recordID, l.Short))
	}
	return Status{Kind: KindWritten, Chars: chars}
}

// Geocode resolves address and stores "lat, lon" on the record.
func (p *Processor) Geocode(ctx context.Context, recordID, address string) Status {
	if strings.TrimSpace(address) == "" {
		return Status{Kind: KindGeocodeSkip}
	}
	if p.deps.Geocoder == nil {
		return failure("no geocoder configured")
	}
	lat, lon, ok, err := p.deps.Geocoder.Geocode(ctx, address)
	if err != nil {
		p.logger.Warn("geocode failed", zap.String("address", address), zap.Error(err))
	}
	if !ok {
		return Status{Kind: KindGeocodeFail, Reason: "no results for: " + address}
	}

	coords := formatCoord(lat) + ", " + formatCoord(lon)
	if err := p.deps.Store.WriteFields(ctx, recordID, map[string]string{GPSField: coords}); err != nil {
		return Status{Kind: KindGeocodeFail, Reason: fmt.Sprintf("Airtable PATCH failed (%s)", statusText(err))}
	}
	return Status{Kind: KindGeocoded, Lat: lat, Lon: lon}
}

// WriteJSON stores the full and summary JSON documents in one write.
func (p *Processor) WriteJSON(ctx context.Context, recordID, fullPath, summaryPath string) Status {
	if p.deps.Blobs == nil {
		return failure("no artifact store configured")
	}
	full, err := p.deps.Blobs.GetObject(ctx, fullPath)
	if err != nil {
		return failure("Full JSON not found: " + fullPath)
	}
	summary, err := p.deps.Blobs.GetObject(ctx, summaryPath)
	if err != nil {
		return failure("Summary JSON not found: " + summaryPath)
	}

	fullChars := utf8.RuneCount(full)
	summaryChars := utf8.RuneCount(summary)
	err = p.deps.Store.WriteFields(ctx, recordID, map[string]string{
		FullJSONField:    string(full),
		SummaryJSONField: string(summary),
	})
	if err != nil {
		return Status{
			Kind:   KindStoreError,
			Reason: fmt.Sprintf("JSON PATCH failed (%s)", statusText(err)),
			Chars:  fullChars,
			Aux:    summaryChars,
			Paired: true,
		}
	}
	return Status{Kind: KindJSONWritten, Chars: fullChars, Aux: summaryChars}
}

// FetchSources copies the stored document and brochure text of a record into
// the artifact store for downstream structuring.
func (p *Processor) FetchSources(ctx context.Context, recordID string) Status {
	if p.deps.Blobs == nil {
		return failure("no artifact store configured")
	}
	fields, err := p.deps.Store.ReadFields(ctx, recordID)
	if err != nil {
		return Status{Kind: KindFetchError, Reason: fmt.Sprintf("Airtable GET failed (%s)", statusText(err))}
	}

	scraped := fields[p.cfg.ContentField]
	trimmed := strings.TrimSpace(scraped)
	if trimmed == "" {
		return Status{Kind: KindNoContent, Reason: p.cfg.ContentField + " is empty"}
	}
	if strings.HasPrefix(trimmed, manualCheckPrefix) {
		return Status{Kind: KindNoContent, Reason: p.cfg.ContentField + " contains MANUAL_CHECK marker"}
	}
	if err := p.putText(ctx, ScrapedPath(recordID), scraped); err != nil {
		return failure(err.Error())
	}

	brochureChars := 0
	brochure := fields[BrochureField]
	if b := strings.TrimSpace(brochure); b != "" && !strings.HasPrefix(b, brochureErrorPrefix) {
		if err := p.putText(ctx, BrochurePath(recordID), brochure); err != nil {
			return failure(err.Error())
		}
		brochureChars = utf8.RuneCountInString(brochure)
	}
	return Status{Kind: KindFetched, Chars: utf8.RuneCountInString(scraped), Aux: brochureChars}
}

// statusText returns the HTTP status of a store error when one is known.
func statusText(err error) string {
	var statusErr *venue.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprint(statusErr.StatusCode)
	}
	if errors.Is(err, venue.ErrNotFound) {
		return "404"
	}
	return err.Error()
}
