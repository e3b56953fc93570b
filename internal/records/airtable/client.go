// Package airtable implements venue.RecordStore against the Airtable REST API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// DefaultBaseURL is the hosted Airtable API.
const DefaultBaseURL = "https://api.airtable.com"

// DefaultTable is the table holding venue records.
const DefaultTable = "Venues"

// Config identifies the Airtable base and table.
type Config struct {
	BaseURL string
	APIKey  string
	BaseID  string
	Table   string
}

// Store reads and writes venue record fields.
type Store struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Store. The API key and base ID are required.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("airtable api key is required")
	}
	if strings.TrimSpace(cfg.BaseID) == "" {
		return nil, errors.New("airtable base id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{cfg: cfg, httpClient: httpClient, logger: logger}, nil
}

type recordBody struct {
	Fields map[string]any `json:"fields"`
}

// WriteFields patches fields on a record in one request. Any status other than
// 200 is reported as venue.ErrStoreWrite and is not retried.
func (s *Store) WriteFields(ctx context.Context, recordID string, fields map[string]string) error {
	payload := recordBody{Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		payload.Fields[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal record fields: %w", err)
	}

	status, body, err := s.do(ctx, http.MethodPatch, recordID, data)
	if err != nil {
		return fmt.Errorf("%w: %w", venue.ErrStoreWrite, err)
	}
	if status != http.StatusOK {
		s.logger.Warn("airtable patch rejected",
			zap.String("record_id", recordID),
			zap.Int("status", status),
		)
		return fmt.Errorf("%w: %w", venue.ErrStoreWrite,
			&venue.StatusError{Op: "airtable patch", StatusCode: status, Body: snippet(body)})
	}
	return nil
}

// ReadFields fetches the fields of a record as strings. Non-string values are
// rendered as JSON.
func (s *Store) ReadFields(ctx context.Context, recordID string) (map[string]string, error) {
	status, body, err := s.do(ctx, http.MethodGet, recordID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("record %s: %w", recordID, venue.ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, &venue.StatusError{Op: "airtable get", StatusCode: status, Body: snippet(body)}
	}

	var rec recordBody
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", recordID, err)
	}
	out := make(map[string]string, len(rec.Fields))
	for k, v := range rec.Fields {
		switch tv := v.(type) {
		case string:
			out[k] = tv
		case nil:
			out[k] = ""
		default:
			raw, err := json.Marshal(tv)
			if err != nil {
				return nil, fmt.Errorf("encode field %s: %w", k, err)
			}
			out[k] = string(raw)
		}
	}
	return out, nil
}

func (s *Store) recordURL(recordID string) string {
	return fmt.Sprintf("%s/v0/%s/%s/%s",
		s.cfg.BaseURL,
		url.PathEscape(s.cfg.BaseID),
		url.PathEscape(s.cfg.Table),
		url.PathEscape(recordID),
	)
}

func (s *Store) do(ctx context.Context, method, recordID string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.recordURL(recordID), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build airtable request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("airtable %s %s: %w", method, recordID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read airtable response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
