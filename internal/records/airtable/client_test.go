package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

func newTestStore(t *testing.T, h http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := New(Config{BaseURL: srv.URL, APIKey: "pat", BaseID: "appBase"}, srv.Client(), nil)
	require.NoError(t, err)
	return s
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(Config{BaseID: "app"}, nil, nil)
	require.Error(t, err)
	_, err = New(Config{APIKey: "pat"}, nil, nil)
	require.Error(t, err)

	s, err := New(Config{APIKey: "pat", BaseID: "app"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "https://api.airtable.com/v0/app/Venues/rec1", s.recordURL("rec1"))
}

func TestWriteFieldsPatchesRecord(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/v0/appBase/Venues/rec123", r.URL.Path)
		require.Equal(t, "Bearer pat", r.Header.Get("Authorization"))

		var body struct {
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]string{"venue_url_scraped": "**Venue Website**\n\nChâteau"}, body.Fields)
		_, _ = w.Write([]byte(`{"id":"rec123"}`))
	})

	err := s.WriteFields(context.Background(), "rec123", map[string]string{"venue_url_scraped": "**Venue Website**\n\nChâteau"})
	require.NoError(t, err)
}

func TestWriteFieldsRejected(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"INVALID_VALUE"}`))
	})

	err := s.WriteFields(context.Background(), "rec123", map[string]string{"a": "b"})
	require.ErrorIs(t, err, venue.ErrStoreWrite)
	var statusErr *venue.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
}

func TestReadFields(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"id":"rec1","fields":{"venue_url_scraped":"text","capacity":120,"brochure_text":null}}`))
	})

	fields, err := s.ReadFields(context.Background(), "rec1")
	require.NoError(t, err)
	require.Equal(t, "text", fields["venue_url_scraped"])
	require.Equal(t, "120", fields["capacity"])
	require.Empty(t, fields["brochure_text"])
}

func TestReadFieldsNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := s.ReadFields(context.Background(), "missing")
	require.ErrorIs(t, err, venue.ErrNotFound)
}
