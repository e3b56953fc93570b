package fetch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/metrics"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// Default request options handed to the scraper.
const (
	DefaultTimeout    = 120 * time.Second
	DefaultRenderWait = 8 * time.Second
)

// Config controls Fetcher behavior.
type Config struct {
	Timeout    time.Duration
	RenderWait time.Duration
	Policy     Policy
}

// Fetcher retrieves page markdown one URL at a time.
type Fetcher struct {
	scraper venue.Scraper
	cache   venue.PageCache
	pacer   *Pacer
	pauser  Pauser
	cfg     Config
	logger  *zap.Logger
}

// New builds a Fetcher. cache may be nil.
func New(
	scraper venue.Scraper,
	cache venue.PageCache,
	pacer *Pacer,
	pauser Pauser,
	cfg Config,
	logger *zap.Logger,
) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RenderWait < 0 {
		cfg.RenderWait = 0
	}
	if len(cfg.Policy.Rules) == 0 {
		cfg.Policy = NewPolicy(0, 0)
	}
	if pauser == nil {
		pauser = TimerPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		scraper: scraper,
		cache:   cache,
		pacer:   pacer,
		pauser:  pauser,
		cfg:     cfg,
		logger:  logger,
	}
}

// Fetch returns the markdown for url. Any outcome other than a successful,
// non-blank page is reported as venue.ErrFetchFailed; callers skip that page.
func (f *Fetcher) Fetch(ctx context.Context, url string) (venue.PageContent, error) {
	if md, ok := f.cached(ctx, url); ok {
		metrics.ObservePage(url, "cache_hit", len(md))
		return venue.PageContent{URL: url, Markdown: md, Cached: true}, nil
	}

	used := map[string]bool{}
	for attempt := 1; ; attempt++ {
		if err := f.pacer.Wait(ctx, f.pauser); err != nil {
			return venue.PageContent{}, err
		}
		result, err := f.scraper.Scrape(ctx, venue.ScrapeRequest{
			URL:        url,
			Timeout:    f.cfg.Timeout,
			RenderWait: f.cfg.RenderWait,
		})
		f.pacer.Done()
		if err != nil {
			if ctx.Err() != nil {
				return venue.PageContent{}, fmt.Errorf("scrape %s: %w", url, ctx.Err())
			}
			metrics.ObservePage(url, "error", 0)
			f.logger.Warn("scrape failed", zap.String("url", url), zap.Error(err))
			return venue.PageContent{}, fmt.Errorf("scrape %s: %w: %w", url, venue.ErrFetchFailed, err)
		}

		if isSuccess(result.StatusCode) {
			if strings.TrimSpace(result.Markdown) == "" {
				metrics.ObservePage(url, "empty", 0)
				return venue.PageContent{}, fmt.Errorf("scrape %s: empty content: %w", url, venue.ErrFetchFailed)
			}
			metrics.ObservePage(url, "ok", len(result.Markdown))
			f.store(ctx, url, result.Markdown)
			return venue.PageContent{URL: url, Markdown: result.Markdown}, nil
		}

		wait, retry := f.cfg.Policy.Next(result.StatusCode, attempt, used)
		if !retry {
			metrics.ObservePage(url, "status_"+strconv.Itoa(result.StatusCode), 0)
			return venue.PageContent{}, fmt.Errorf("scrape %s: status %d: %w", url, result.StatusCode, venue.ErrFetchFailed)
		}
		metrics.ObserveRetry(ruleName(f.cfg.Policy, result.StatusCode))
		f.logger.Info("retrying after cooldown",
			zap.String("url", url),
			zap.Int("status", result.StatusCode),
			zap.Duration("wait", wait),
		)
		if err := f.pauser.Pause(ctx, wait); err != nil {
			return venue.PageContent{}, fmt.Errorf("retry wait: %w", err)
		}
	}
}

// Map calls mapper for rootURL, waiting out a single rate-limit response.
func (f *Fetcher) Map(ctx context.Context, mapper venue.Mapper, rootURL string) ([]venue.DiscoveredLink, error) {
	if mapper == nil {
		return nil, errors.New("no mapper configured")
	}
	used := map[string]bool{}
	for attempt := 1; ; attempt++ {
		if err := f.pacer.Wait(ctx, f.pauser); err != nil {
			return nil, err
		}
		links, err := mapper.Map(ctx, rootURL)
		f.pacer.Done()
		if err == nil {
			return links, nil
		}
		var statusErr *venue.StatusError
		if !errors.As(err, &statusErr) || !IsRateLimited(statusErr.StatusCode) {
			return nil, err
		}
		wait, retry := f.cfg.Policy.Next(statusErr.StatusCode, attempt, used)
		if !retry {
			return nil, err
		}
		metrics.ObserveRetry(ruleName(f.cfg.Policy, statusErr.StatusCode))
		f.logger.Info("map rate limited, waiting", zap.String("url", rootURL), zap.Duration("wait", wait))
		if err := f.pauser.Pause(ctx, wait); err != nil {
			return nil, fmt.Errorf("retry wait: %w", err)
		}
	}
}

func (f *Fetcher) cached(ctx context.Context, url string) (string, bool) {
	if f.cache == nil {
		return "", false
	}
	md, ok, err := f.cache.Get(ctx, url)
	if err != nil {
		f.logger.Warn("page cache read failed", zap.String("url", url), zap.Error(err))
		return "", false
	}
	if !ok || strings.TrimSpace(md) == "" {
		return "", false
	}
	return md, true
}

func (f *Fetcher) store(ctx context.Context, url, md string) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Set(ctx, url, md); err != nil {
		f.logger.Warn("page cache write failed", zap.String("url", url), zap.Error(err))
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func ruleName(p Policy, status int) string {
	for _, rule := range p.Rules {
		if rule.Match(status) {
			return rule.Name
		}
	}
	return "unknown"
}
