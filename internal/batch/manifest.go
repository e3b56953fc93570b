// Package batch reads manifests of venue records for the batch command.
package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// ErrEmptyManifest is returned when a manifest lists no venues.
var ErrEmptyManifest = errors.New("manifest lists no venues")

// Manifest is the YAML document accepted by the batch command:
//
//	scrape_only: false
//	venues:
//	  - record_id: recABC
//	    venue_url: https://chateau.example
//	    listings:
//	      - short: CB
//	        url: https://chateaubee.example/chateau
type Manifest struct {
	ScrapeOnly bool            `yaml:"scrape_only"`
	Venues     []venue.Request `yaml:"venues" validate:"dive"`
}

// FromFile reads and validates a manifest from disk.
func FromFile(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return FromYAML(data)
}

// FromYAML parses and validates a manifest. Unknown keys are rejected.
func FromYAML(data []byte) (Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Venues) == 0 {
		return Manifest{}, ErrEmptyManifest
	}
	if err := validator.New().Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Manifest{}, fmt.Errorf("manifest %s failed %s validation", verrs[0].Namespace(), verrs[0].Tag())
		}
		return Manifest{}, fmt.Errorf("validate manifest: %w", err)
	}
	return m, nil
}

// Requests returns the venues in manifest order with the manifest-wide
// scrape-only flag applied.
func (m Manifest) Requests() []venue.Request {
	out := make([]venue.Request, len(m.Venues))
	for i, r := range m.Venues {
		r.ScrapeOnly = r.ScrapeOnly || m.ScrapeOnly
		out[i] = r
	}
	return out
}
