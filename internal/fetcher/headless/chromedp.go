// Package headless implements venue.Scraper with headless Chrome for venue
// sites that only render their content through JavaScript.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/fetcher/markdown"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// Config controls the behavior of the headless scraper.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
}

// Scraper renders pages in headless Chrome and converts the DOM to markdown.
type Scraper struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewChromedp creates a headless scraper backed by chromedp.
func NewChromedp(cfg Config, logger *zap.Logger) (*Scraper, error) {
	if cfg.MaxParallel < 0 {
		return nil, errors.New("max parallel must be >= 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Scraper{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close shuts the browser allocator down.
func (s *Scraper) Close() {
	s.allocCancel()
}

// Scrape navigates to the page, waits for the render delay and returns the
// rendered DOM as markdown along with the document's HTTP status.
func (s *Scraper) Scrape(ctx context.Context, req venue.ScrapeRequest) (venue.ScrapeResult, error) {
	if err := s.acquire(ctx); err != nil {
		return venue.ScrapeResult{}, err
	}
	defer s.release()

	taskCtx, taskCancel := chromedp.NewContext(s.allocator)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, s.navTimeout(req.Timeout))
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	meta := &responseMeta{}
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	html, err := s.render(taskCtx, req)
	if err != nil {
		return venue.ScrapeResult{}, err
	}

	result := venue.ScrapeResult{URL: req.URL, StatusCode: meta.statusOrOK()}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return result, nil
	}
	md, err := markdown.Convert([]byte(html))
	if err != nil {
		s.logger.Warn("markdown conversion failed", zap.String("url", req.URL), zap.Error(err))
		return result, nil
	}
	result.Markdown = md
	return result, nil
}

func (s *Scraper) render(ctx context.Context, req venue.ScrapeRequest) (string, error) {
	var html string
	actions := []chromedp.Action{
		s.networkSetupAction(),
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if req.RenderWait > 0 {
		actions = append(actions, chromedp.Sleep(req.RenderWait))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (s *Scraper) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (s *Scraper) acquire(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	select {
	case s.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (s *Scraper) release() {
	if s.limiter == nil {
		return
	}
	select {
	case <-s.limiter:
	default:
	}
}

// navTimeout covers navigation plus the render wait.
func (s *Scraper) navTimeout(requested time.Duration) time.Duration {
	switch {
	case requested > 0:
		return requested
	case s.cfg.NavigationTimeout > 0:
		return s.cfg.NavigationTimeout
	default:
		return 45 * time.Second
	}
}

// responseMeta records the status of the main document response.
type responseMeta struct {
	mu     sync.Mutex
	status int
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == 0 {
		m.status = int(resp.Response.Status)
	}
}

// statusOrOK reports the captured status, assuming success when the browser
// never surfaced a document response.
func (m *responseMeta) statusOrOK() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == 0 {
		return http.StatusOK
	}
	return m.status
}
