// Package collyfetcher implements venue.Scraper with a plain HTTP fetch through
// gocolly followed by HTML to markdown conversion.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/fetcher/markdown"
	"github.com/JakeFAU/venue-ingest/internal/metrics"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Promoter decides whether a fetched page needs a browser render.
type Promoter interface {
	ShouldPromote(status int, body []byte) bool
}

// Scraper fetches pages without executing JavaScript. With promotion enabled,
// pages that look script-rendered are handed to a rendering scraper.
type Scraper struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
	promoter      Promoter
	renderer      venue.Scraper
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// page is what the collector callbacks capture for one visit.
type page struct {
	status int
	body   []byte
	err    error
}

// New builds a Scraper.
func New(cfg Config, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	transport := newRobotsTransport(newHTTPTransport(), logger)
	c.WithTransport(transport)
	return &Scraper{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
		logger:        logger,
	}
}

// WithPromotion routes pages flagged by promoter to renderer.
func (s *Scraper) WithPromotion(promoter Promoter, renderer venue.Scraper) *Scraper {
	s.promoter = promoter
	s.renderer = renderer
	return s
}

// Scrape performs a single GET and converts the body to markdown. HTTP error
// statuses are returned in the result; only transport failures are errors.
func (s *Scraper) Scrape(ctx context.Context, req venue.ScrapeRequest) (venue.ScrapeResult, error) {
	var p page
	collector := s.buildCollector(req.Timeout)
	s.configureHooks(collector, &p)

	if err := runCollector(ctx, collector, req.URL); err != nil {
		if ctx.Err() != nil || p.status == 0 {
			return venue.ScrapeResult{}, err
		}
	}
	if p.status == 0 && p.err != nil {
		return venue.ScrapeResult{}, fmt.Errorf("colly response failed: %w", p.err)
	}

	result := venue.ScrapeResult{URL: req.URL, StatusCode: p.status}
	if p.status < 200 || p.status >= 300 {
		return result, nil
	}
	if s.promoter != nil && s.renderer != nil && s.promoter.ShouldPromote(p.status, p.body) {
		s.logger.Info("promoting page to headless render", zap.String("url", req.URL))
		metrics.ObservePage(req.URL, "promoted", len(p.body))
		return s.renderer.Scrape(ctx, req)
	}
	md, err := markdown.Convert(p.body)
	if err != nil {
		s.logger.Warn("markdown conversion failed", zap.String("url", req.URL), zap.Error(err))
		return result, nil
	}
	result.Markdown = md
	return result, nil
}

func (s *Scraper) buildCollector(timeout time.Duration) *colly.Collector {
	collector := s.baseCollector.Clone()
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !s.cfg.RespectRobots
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(s.transport)
	return collector
}

func (s *Scraper) configureHooks(hooks collectorHooks, p *page) {
	hooks.OnResponse(func(r *colly.Response) {
		p.status = r.StatusCode
		p.body = append([]byte(nil), r.Body...)
	})
	hooks.OnError(func(r *colly.Response, err error) {
		p.err = err
		if r != nil && r.StatusCode != 0 {
			p.status = r.StatusCode
		}
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
