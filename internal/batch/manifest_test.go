package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
scrape_only: true
venues:
  - record_id: rec1
    venue_url: https://chateau-one.example
    listings:
      - short: CB
        url: https://chateaubee.example/one
  - record_id: rec2
    venue_url: https://chateau-two.example
`

func TestFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "venues.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	m, err := FromFile(path)
	require.NoError(t, err)
	require.Len(t, m.Venues, 2)

	reqs := m.Requests()
	require.Equal(t, "rec1", reqs[0].RecordID)
	require.Equal(t, "CB", reqs[0].Listings[0].Short)
	require.True(t, reqs[0].ScrapeOnly)
	require.True(t, reqs[1].ScrapeOnly)
	require.False(t, m.Venues[1].ScrapeOnly)
}

func TestFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := FromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestFromYAMLRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "empty", doc: "", wantErr: ErrEmptyManifest.Error()},
		{name: "no venues", doc: "venues: []", wantErr: ErrEmptyManifest.Error()},
		{name: "unknown key", doc: "venue:\n  - record_id: r", wantErr: "field venue not found"},
		{name: "missing url", doc: "venues:\n  - record_id: r", wantErr: "VenueURL failed required validation"},
		{name: "bad url", doc: "venues:\n  - record_id: r\n    venue_url: not a url", wantErr: "VenueURL failed url validation"},
		{
			name:    "listing without short",
			doc:     "venues:\n  - record_id: r\n    venue_url: https://a.example\n    listings:\n      - url: https://b.example",
			wantErr: "Short failed required validation",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := FromYAML([]byte(tc.doc))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
