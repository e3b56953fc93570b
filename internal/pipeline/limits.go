package pipeline

import (
	"github.com/JakeFAU/venue-ingest/internal/assemble"
	"github.com/JakeFAU/venue-ingest/internal/discovery"
)

// Limits bounds what a run accepts and produces.
type Limits struct {
	MaxChars        int
	MaxPages        int
	MinContentChars int
	MinContentWords int
	MinListingChars int
}

// DefaultLimits returns the production thresholds.
func DefaultLimits() Limits {
	return Limits{
		MaxChars:        assemble.DefaultMaxChars,
		MaxPages:        discovery.DefaultMaxPages,
		MinContentChars: 500,
		MinContentWords: 50,
		MinListingChars: 200,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxChars <= 0 {
		l.MaxChars = d.MaxChars
	}
	if l.MaxPages <= 0 {
		l.MaxPages = d.MaxPages
	}
	if l.MinContentChars < 0 {
		l.MinContentChars = 0
	}
	if l.MinContentWords < 0 {
		l.MinContentWords = 0
	}
	if l.MinListingChars < 0 {
		l.MinListingChars = 0
	}
	return l
}
