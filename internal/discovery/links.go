package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// LinkMapperConfig controls the local link harvester.
type LinkMapperConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// LinkMapper implements venue.Mapper by reading the anchors of the root page. It is
// the fallback when no hosted mapping service is configured.
type LinkMapper struct {
	cfg    LinkMapperConfig
	logger *zap.Logger
}

// NewLinkMapper builds a LinkMapper.
func NewLinkMapper(cfg LinkMapperConfig, logger *zap.Logger) *LinkMapper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkMapper{cfg: cfg, logger: logger}
}

// Map fetches rootURL and returns every same-host link found on it.
func (m *LinkMapper) Map(ctx context.Context, rootURL string) ([]venue.DiscoveredLink, error) {
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("parse root url: %w", err)
	}

	collector := colly.NewCollector(colly.Async(false))
	if m.cfg.UserAgent != "" {
		collector.UserAgent = m.cfg.UserAgent
	}
	collector.SetRequestTimeout(m.cfg.Timeout)

	var (
		links    []venue.DiscoveredLink
		visitErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		links, visitErr = ExtractLinks(root, r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		visitErr = fmt.Errorf("map %s (status %d): %w", rootURL, status, err)
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rootURL)
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("link map canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("colly visit failed: %w", err)
		}
	}
	if visitErr != nil {
		return nil, visitErr
	}
	m.logger.Debug("links harvested", zap.String("url", rootURL), zap.Int("count", len(links)))
	return links, nil
}

// ExtractLinks parses body as HTML and returns the absolute, fragment-free links
// that share root's host, in document order and without duplicates.
func ExtractLinks(root *url.URL, body []byte) ([]venue.DiscoveredLink, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	seen := map[string]struct{}{}
	var links []venue.DiscoveredLink
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := root.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Hostname(), root.Hostname()) {
			return
		}
		abs.Fragment = ""
		key := abs.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, venue.DiscoveredLink{
			URL:   key,
			Title: strings.Join(strings.Fields(s.Text()), " "),
		})
	})
	return links, nil
}
