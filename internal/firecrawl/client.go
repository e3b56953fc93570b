// Package firecrawl is a client for the Firecrawl map and scrape endpoints.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// DefaultBaseURL is the hosted Firecrawl API.
const DefaultBaseURL = "https://api.firecrawl.dev"

// ErrMissingAPIKey is returned by New when no key is configured.
var ErrMissingAPIKey = errors.New("firecrawl api key is required")

// Client implements venue.Mapper and venue.Scraper against Firecrawl v2.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// New creates a Client. An empty baseURL selects DefaultBaseURL.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 150 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type mapRequest struct {
	URL string `json:"url"`
}

type mapResponse struct {
	Success bool              `json:"success"`
	Links   []json.RawMessage `json:"links"`
}

type mapLink struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	Timeout         int64    `json:"timeout"`
	WaitFor         int64    `json:"waitFor"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// Map lists the links Firecrawl discovers under rootURL. Non-200 responses are
// reported as *venue.StatusError so callers can decide about retrying.
func (c *Client) Map(ctx context.Context, rootURL string) ([]venue.DiscoveredLink, error) {
	status, body, err := c.post(ctx, "/v2/map", mapRequest{URL: rootURL}, 0)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &venue.StatusError{Op: "firecrawl map", StatusCode: status, Body: snippet(body)}
	}

	var resp mapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode map response: %w", err)
	}
	if !resp.Success {
		return nil, errors.New("firecrawl map: unsuccessful response")
	}

	links := make([]venue.DiscoveredLink, 0, len(resp.Links))
	for _, raw := range resp.Links {
		if link, ok := decodeLink(raw); ok {
			links = append(links, link)
		}
	}
	return links, nil
}

// Scrape fetches the markdown rendering of one page. A 200 response that is not
// marked successful yields an empty document.
func (c *Client) Scrape(ctx context.Context, req venue.ScrapeRequest) (venue.ScrapeResult, error) {
	payload := scrapeRequest{
		URL:             req.URL,
		Formats:         []string{"markdown"},
		OnlyMainContent: false,
		Timeout:         req.Timeout.Milliseconds(),
		WaitFor:         req.RenderWait.Milliseconds(),
	}
	status, body, err := c.post(ctx, "/v2/scrape", payload, req.Timeout)
	if err != nil {
		return venue.ScrapeResult{}, err
	}
	result := venue.ScrapeResult{URL: req.URL, StatusCode: status}
	if status != http.StatusOK {
		c.logger.Debug("firecrawl scrape non-200", zap.String("url", req.URL), zap.Int("status", status))
		return result, nil
	}

	var resp scrapeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("firecrawl scrape returned invalid json", zap.String("url", req.URL), zap.Error(err))
		return result, nil
	}
	if resp.Success {
		result.Markdown = resp.Data.Markdown
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, timeout time.Duration) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s request: %w", path, err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		// Allow the service its own timeout plus transfer time.
		ctx, cancel = context.WithTimeout(ctx, timeout+30*time.Second)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("firecrawl %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return resp.StatusCode, body, nil
}

// decodeLink accepts both the bare-string and the object link forms.
func decodeLink(raw json.RawMessage) (venue.DiscoveredLink, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return venue.DiscoveredLink{URL: s}, s != ""
	}
	var l mapLink
	if err := json.Unmarshal(raw, &l); err != nil || l.URL == "" {
		return venue.DiscoveredLink{}, false
	}
	return venue.DiscoveredLink{URL: l.URL, Title: l.Title, Description: l.Description}, true
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
