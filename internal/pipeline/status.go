package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the leading token of a status line.
type Kind string

// Status kinds reported on stdout.
const (
	KindSuccess     Kind = "SUCCESS"
	KindScraped     Kind = "SCRAPED"
	KindManualCheck Kind = "MANUAL_CHECK"
	KindStoreError  Kind = "AIRTABLE_ERROR"
	KindError       Kind = "ERROR"
	KindWritten     Kind = "WRITTEN"
	KindJSONWritten Kind = "JSON_WRITTEN"
	KindFetched     Kind = "FETCHED"
	KindNoContent   Kind = "NO_CONTENT"
	KindFetchError  Kind = "FETCH_ERROR"
	KindGeocoded    Kind = "GEOCODED"
	KindGeocodeFail Kind = "GEOCODE_FAIL"
	KindGeocodeSkip Kind = "GEOCODE_SKIP"
)

// Status is the machine-readable outcome of one operation.
type Status struct {
	Kind   Kind
	Reason string

	// Chars is the primary character count; Aux is the second count
	// reported by JSON_WRITTEN, FETCHED and paired store errors.
	Chars  int
	Aux    int
	Paired bool

	Pages        int
	Listings     int
	Sources      []string
	Truncated    bool
	ListingChars int

	Lat, Lon float64
}

// OK reports whether the status is a successful outcome.
func (s Status) OK() bool {
	switch s.Kind {
	case KindSuccess, KindScraped, KindWritten, KindJSONWritten, KindFetched, KindGeocoded, KindGeocodeSkip:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s.Kind {
	case KindSuccess:
		line := fmt.Sprintf("SUCCESS|%d|%d+%d|%s", s.Chars, s.Pages, s.Listings, strings.Join(s.Sources, ","))
		if s.Truncated {
			line += " Truncated"
		}
		return line
	case KindScraped:
		return fmt.Sprintf("SCRAPED|%d|%d+%d|%s|%d",
			s.Chars, s.Pages, s.Listings, strings.Join(s.Sources, ","), s.ListingChars)
	case KindManualCheck:
		return fmt.Sprintf("MANUAL_CHECK|%s|0", s.Reason)
	case KindStoreError:
		if s.Paired {
			return fmt.Sprintf("AIRTABLE_ERROR|%s|%d+%d", s.Reason, s.Chars, s.Aux)
		}
		return fmt.Sprintf("AIRTABLE_ERROR|%s|%d", s.Reason, s.Chars)
	case KindWritten:
		return fmt.Sprintf("WRITTEN|%d", s.Chars)
	case KindJSONWritten:
		return fmt.Sprintf("JSON_WRITTEN|%d|%d", s.Chars, s.Aux)
	case KindFetched:
		return fmt.Sprintf("FETCHED|%d|%d", s.Chars, s.Aux)
	case KindGeocoded:
		return "GEOCODED|" + formatCoord(s.Lat) + "," + formatCoord(s.Lon)
	case KindGeocodeSkip:
		return "GEOCODE_SKIP|no address"
	case KindNoContent, KindFetchError, KindGeocodeFail, KindError:
		return string(s.Kind) + "|" + s.Reason
	default:
		return "ERROR|unknown status " + string(s.Kind)
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func manualCheck(reason string) Status {
	return Status{Kind: KindManualCheck, Reason: reason}
}

func failure(reason string) Status {
	return Status{Kind: KindError, Reason: reason}
}
