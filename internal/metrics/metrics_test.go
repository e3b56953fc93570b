package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObservePageCountsBytes(t *testing.T) {
	before := testutil.ToFloat64(pagesTotal.WithLabelValues("venue.test", "ok"))
	beforeBytes := testutil.ToFloat64(bytesTotal.WithLabelValues("venue.test"))

	ObservePage("https://venue.test/rooms", "ok", 120)
	ObservePage("https://VENUE.test/", "ok", 0)

	if got := testutil.ToFloat64(pagesTotal.WithLabelValues("venue.test", "ok")) - before; got != 2 {
		t.Errorf("expected 2 pages recorded, got %f", got)
	}
	if got := testutil.ToFloat64(bytesTotal.WithLabelValues("venue.test")) - beforeBytes; got != 120 {
		t.Errorf("expected 120 bytes recorded, got %f", got)
	}
}

func TestObserveRunAndRetry(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues("SUCCESS"))
	ObserveRun("SUCCESS")
	if got := testutil.ToFloat64(runsTotal.WithLabelValues("SUCCESS")) - before; got != 1 {
		t.Errorf("expected run counter to advance by 1, got %f", got)
	}

	beforeRetry := testutil.ToFloat64(retriesTotal.WithLabelValues("rate_limited"))
	ObserveRetry("rate_limited")
	if got := testutil.ToFloat64(retriesTotal.WithLabelValues("rate_limited")) - beforeRetry; got != 1 {
		t.Errorf("expected retry counter to advance by 1, got %f", got)
	}

	ObserveDocument(1234)
	ObservePacerDelay(2 * time.Second)
	if testutil.CollectAndCount(documentChars) == 0 {
		t.Error("expected document histogram to be collected")
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
