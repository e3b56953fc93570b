package firecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New("", " ")
	require.ErrorIs(t, err, ErrMissingAPIKey)

	c, err := New("", "key")
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, c.baseURL)
}

func TestMapDecodesBothLinkForms(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/map", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "https://v.example.com", body["url"])
		_, _ = w.Write([]byte(`{"success":true,"links":["https://v.example.com/a",{"url":"https://v.example.com/b","title":"B"},{"title":"no url"},""]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret")
	require.NoError(t, err)

	links, err := c.Map(context.Background(), "https://v.example.com")
	require.NoError(t, err)
	require.Equal(t, []venue.DiscoveredLink{
		{URL: "https://v.example.com/a"},
		{URL: "https://v.example.com/b", Title: "B"},
	}, links)
}

func TestMapReportsStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret")
	require.NoError(t, err)

	_, err = c.Map(context.Background(), "https://v.example.com")
	var statusErr *venue.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	require.Contains(t, statusErr.Body, "slow down")
}

func TestMapUnsuccessful(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret")
	require.NoError(t, err)
	_, err = c.Map(context.Background(), "https://v.example.com")
	require.Error(t, err)
}

func TestScrapeSendsOptions(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/scrape", r.URL.Path)
		var body scrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, []string{"markdown"}, body.Formats)
		require.False(t, body.OnlyMainContent)
		require.EqualValues(t, 120000, body.Timeout)
		require.EqualValues(t, 8000, body.WaitFor)
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# Château"}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret")
	require.NoError(t, err)

	res, err := c.Scrape(context.Background(), venue.ScrapeRequest{
		URL:        "https://v.example.com",
		Timeout:    120 * time.Second,
		RenderWait: 8 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "# Château", res.Markdown)
}

func TestScrapeNonSuccess(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `oops`},
		{"unsuccessful", http.StatusOK, `{"success":false,"data":{"markdown":"ignored"}}`},
		{"bad json", http.StatusOK, `not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, err := New(srv.URL, "secret")
			require.NoError(t, err)
			res, err := c.Scrape(context.Background(), venue.ScrapeRequest{URL: "https://v.example.com"})
			require.NoError(t, err)
			require.Equal(t, tc.status, res.StatusCode)
			require.Empty(t, res.Markdown)
		})
	}
}
