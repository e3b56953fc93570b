package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

type scriptedScraper struct {
	mu        sync.Mutex
	responses []venue.ScrapeResult
	errs      []error
	requests  []venue.ScrapeRequest
}

func (s *scriptedScraper) Scrape(_ context.Context, req venue.ScrapeRequest) (venue.ScrapeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.requests)
	s.requests = append(s.requests, req)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return venue.ScrapeResult{}, s.errs[idx]
	}
	if idx >= len(s.responses) {
		return venue.ScrapeResult{URL: req.URL, StatusCode: http.StatusInternalServerError}, nil
	}
	return s.responses[idx], nil
}

func (s *scriptedScraper) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type recordingPauser struct {
	waits []time.Duration
}

func (p *recordingPauser) Pause(_ context.Context, d time.Duration) error {
	p.waits = append(p.waits, d)
	return nil
}

type mapCache struct {
	data map[string]string
	sets int
}

func (c *mapCache) Get(_ context.Context, url string) (string, bool, error) {
	md, ok := c.data[url]
	return md, ok, nil
}

func (c *mapCache) Set(_ context.Context, url, md string) error {
	c.data[url] = md
	c.sets++
	return nil
}

func newTestFetcher(s venue.Scraper, p Pauser, cache venue.PageCache) *Fetcher {
	return New(s, cache, NewPacer(0), p, Config{Policy: NewPolicy(30*time.Second, 5*time.Second)}, nil)
}

func TestFetchSucceedsFirstTry(t *testing.T) {
	t.Parallel()

	s := &scriptedScraper{responses: []venue.ScrapeResult{{StatusCode: 200, Markdown: "# Hello"}}}
	p := &recordingPauser{}
	page, err := newTestFetcher(s, p, nil).Fetch(context.Background(), "https://v.example.com")

	require.NoError(t, err)
	require.Equal(t, "# Hello", page.Markdown)
	require.Equal(t, "https://v.example.com", page.URL)
	require.Empty(t, p.waits)
	require.Equal(t, DefaultTimeout, s.requests[0].Timeout)
}

func TestFetchRetriesOnceAfterRateLimit(t *testing.T) {
	t.Parallel()

	s := &scriptedScraper{responses: []venue.ScrapeResult{
		{StatusCode: http.StatusTooManyRequests},
		{StatusCode: 200, Markdown: "content"},
	}}
	p := &recordingPauser{}
	page, err := newTestFetcher(s, p, nil).Fetch(context.Background(), "https://v.example.com")

	require.NoError(t, err)
	require.Equal(t, "content", page.Markdown)
	require.Equal(t, []time.Duration{30 * time.Second}, p.waits)
}

func TestFetchRateLimitRetriedOnlyOnce(t *testing.T) {
	t.Parallel()

	s := &scriptedScraper{responses: []venue.ScrapeResult{
		{StatusCode: http.StatusTooManyRequests},
		{StatusCode: http.StatusTooManyRequests},
		{StatusCode: 200, Markdown: "never reached"},
	}}
	p := &recordingPauser{}
	_, err := newTestFetcher(s, p, nil).Fetch(context.Background(), "https://v.example.com")

	require.ErrorIs(t, err, venue.ErrFetchFailed)
	require.Equal(t, 2, s.calls())
}

func TestFetchRetriesTransientStatuses(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusRequestTimeout, http.StatusGatewayTimeout, http.StatusBadGateway, 500} {
		s := &scriptedScraper{responses: []venue.ScrapeResult{
			{StatusCode: status},
			{StatusCode: 200, Markdown: "ok"},
		}}
		p := &recordingPauser{}
		_, err := newTestFetcher(s, p, nil).Fetch(context.Background(), "https://v.example.com")
		require.NoError(t, err, "status %d", status)
		require.Equal(t, []time.Duration{5 * time.Second}, p.waits, "status %d", status)
	}
}

func TestFetchRateLimitThenServerError(t *testing.T) {
	t.Parallel()

	s := &scriptedScraper{responses: []venue.ScrapeResult{
		{StatusCode: http.StatusTooManyRequests},
		{StatusCode: http.StatusServiceUnavailable},
		{StatusCode: 200, Markdown: "third time"},
	}}
	p := &recordingPauser{}
	page, err := newTestFetcher(s, p, nil).Fetch(context.Background(), "https://v.example.com")

	require.NoError(t, err)
	require.Equal(t, "third time", page.Markdown)
	require.Equal(t, []time.Duration{30 * time.Second, 5 * time.Second}, p.waits)
}

func TestFetchServerErrorThenRateLimitStops(t *testing.T) {
	t.Parallel()

	s := &scriptedScraper{responses: []venue.ScrapeResult{
		{StatusCode: http.StatusServiceUnavailable},
		{StatusCode: http.StatusTooManyRequests},
		{StatusCode: 200, Markdown: "never reached"},
	}}
	p := &recordingPauser{}
	_, err := newTestFetcher(s, p, nil).Fetch(context.Background(), "https://v.example.com")

	require.ErrorIs(t, err, venue.ErrFetchFailed)
	require.Len(t, s.requests, 2)
	require.Equal(t, []time.Duration{5 * time.Second}, p.waits)
}

func TestFetchNonRetryableStatusFails(t *testing.T) {
	t.Parallel()

	s := &scriptedScraper{responses: []venue.ScrapeResult{{StatusCode: http.StatusNotFound}}}
	p := &recordingPauser{}
	_, err := newTestFetcher(s, p, nil).Fetch(context.Background(), "https://v.example.com")

	require.ErrorIs(t, err, venue.ErrFetchFailed)
	require.Equal(t, 1, s.calls())
	require.Empty(t, p.waits)
}

func TestFetchBlankContentIsFailure(t *testing.T) {
	t.Parallel()

	s := &scriptedScraper{responses: []venue.ScrapeResult{{StatusCode: 200, Markdown: "  \n\t "}}}
	_, err := newTestFetcher(s, &recordingPauser{}, nil).Fetch(context.Background(), "https://v.example.com")
	require.ErrorIs(t, err, venue.ErrFetchFailed)
}

func TestFetchTransportErrorIsFailure(t *testing.T) {
	t.Parallel()

	s := &scriptedScraper{errs: []error{errors.New("connection reset")}}
	_, err := newTestFetcher(s, &recordingPauser{}, nil).Fetch(context.Background(), "https://v.example.com")
	require.ErrorIs(t, err, venue.ErrFetchFailed)
	require.Equal(t, 1, s.calls())
}

func TestFetchUsesCache(t *testing.T) {
	t.Parallel()

	cache := &mapCache{data: map[string]string{"https://v.example.com/cached": "from cache"}}
	s := &scriptedScraper{responses: []venue.ScrapeResult{{StatusCode: 200, Markdown: "fresh"}}}
	f := newTestFetcher(s, &recordingPauser{}, cache)

	page, err := f.Fetch(context.Background(), "https://v.example.com/cached")
	require.NoError(t, err)
	require.True(t, page.Cached)
	require.Equal(t, "from cache", page.Markdown)
	require.Zero(t, s.calls())

	page, err = f.Fetch(context.Background(), "https://v.example.com/fresh")
	require.NoError(t, err)
	require.False(t, page.Cached)
	require.Equal(t, 1, cache.sets)
	require.Equal(t, "fresh", cache.data["https://v.example.com/fresh"])
}

type flakyMapper struct {
	errs  []error
	calls int
}

func (m *flakyMapper) Map(_ context.Context, root string) ([]venue.DiscoveredLink, error) {
	idx := m.calls
	m.calls++
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	return []venue.DiscoveredLink{{URL: root}}, nil
}

func TestMapRetriesRateLimitOnce(t *testing.T) {
	t.Parallel()

	m := &flakyMapper{errs: []error{&venue.StatusError{Op: "map", StatusCode: 429}}}
	p := &recordingPauser{}
	links, err := newTestFetcher(&scriptedScraper{}, p, nil).Map(context.Background(), m, "https://v.example.com")

	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, []time.Duration{30 * time.Second}, p.waits)
}

func TestMapDoesNotRetryOtherErrors(t *testing.T) {
	t.Parallel()

	m := &flakyMapper{errs: []error{&venue.StatusError{Op: "map", StatusCode: 502}}}
	_, err := newTestFetcher(&scriptedScraper{}, &recordingPauser{}, nil).Map(context.Background(), m, "https://v.example.com")

	require.Error(t, err)
	require.Equal(t, 1, m.calls)
}

func TestPolicyNext(t *testing.T) {
	t.Parallel()

	p := NewPolicy(0, 0)
	used := map[string]bool{}

	wait, ok := p.Next(429, 1, used)
	require.True(t, ok)
	require.Equal(t, DefaultRateLimitCooldown, wait)

	_, ok = p.Next(429, 2, used)
	require.False(t, ok)

	wait, ok = p.Next(504, 2, used)
	require.True(t, ok)
	require.Equal(t, DefaultServerErrorCooldown, wait)

	_, ok = p.Next(500, 3, map[string]bool{})
	require.False(t, ok, "attempt budget exhausted")

	afterTransient := map[string]bool{}
	_, ok = p.Next(503, 1, afterTransient)
	require.True(t, ok)
	_, ok = p.Next(429, 2, afterTransient)
	require.False(t, ok, "no rate-limit retry after a transient one")

	_, ok = p.Next(403, 1, map[string]bool{})
	require.False(t, ok)
}

func TestTimerPauserHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := TimerPauser{}.Pause(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, TimerPauser{}.Pause(context.Background(), 0))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// clockScraper spends a fixed amount of fake time per call.
type clockScraper struct {
	clock *fakeClock
	cost  time.Duration
}

func (s *clockScraper) Scrape(_ context.Context, req venue.ScrapeRequest) (venue.ScrapeResult, error) {
	s.clock.advance(s.cost)
	return venue.ScrapeResult{URL: req.URL, StatusCode: http.StatusOK, Markdown: "# page"}, nil
}

// clockPauser records waits and moves the fake clock forward by each.
type clockPauser struct {
	clock *fakeClock
	waits []time.Duration
}

func (p *clockPauser) Pause(_ context.Context, d time.Duration) error {
	p.waits = append(p.waits, d)
	p.clock.advance(d)
	return nil
}

func TestPacerWaitsAfterSlowCalls(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	pauser := &clockPauser{clock: clock}
	pacer := NewPacer(200 * time.Millisecond)
	pacer.now = clock.Now

	s := &clockScraper{clock: clock, cost: 300 * time.Millisecond}
	f := New(s, nil, pacer, pauser, Config{}, nil)
	for _, u := range []string{"https://v.example.com/", "https://v.example.com/a", "https://v.example.com/b"} {
		_, err := f.Fetch(context.Background(), u)
		require.NoError(t, err)
	}

	require.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, pauser.waits)
}

func TestPacerCountsIdleTime(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	pauser := &clockPauser{clock: clock}
	pacer := NewPacer(2 * time.Second)
	pacer.now = clock.Now

	require.NoError(t, pacer.Wait(context.Background(), pauser))
	pacer.Done()
	clock.advance(1500 * time.Millisecond)
	require.NoError(t, pacer.Wait(context.Background(), pauser))
	pacer.Done()
	clock.advance(3 * time.Second)
	require.NoError(t, pacer.Wait(context.Background(), pauser))

	require.Equal(t, []time.Duration{500 * time.Millisecond}, pauser.waits)
}

type sleepyScraper struct {
	mu     sync.Mutex
	cost   time.Duration
	starts []time.Time
	ends   []time.Time
}

func (s *sleepyScraper) Scrape(_ context.Context, req venue.ScrapeRequest) (venue.ScrapeResult, error) {
	s.mu.Lock()
	s.starts = append(s.starts, time.Now())
	s.mu.Unlock()
	time.Sleep(s.cost)
	s.mu.Lock()
	s.ends = append(s.ends, time.Now())
	s.mu.Unlock()
	return venue.ScrapeResult{URL: req.URL, StatusCode: http.StatusOK, Markdown: "# page"}, nil
}

func TestPacerGapBetweenRealCalls(t *testing.T) {
	t.Parallel()

	s := &sleepyScraper{cost: 60 * time.Millisecond}
	f := New(s, nil, NewPacer(40*time.Millisecond), nil, Config{}, nil)
	for _, u := range []string{"https://v.example.com/", "https://v.example.com/a"} {
		_, err := f.Fetch(context.Background(), u)
		require.NoError(t, err)
	}

	require.Len(t, s.starts, 2)
	require.GreaterOrEqual(t, s.starts[1].Sub(s.ends[0]), 35*time.Millisecond)
}

func TestPacerDisabled(t *testing.T) {
	t.Parallel()

	p := &recordingPauser{}
	pacer := NewPacer(0)
	pacer.Done()
	require.NoError(t, pacer.Wait(context.Background(), p))
	require.Empty(t, p.waits)

	var nilPacer *Pacer
	nilPacer.Done()
	require.NoError(t, nilPacer.Wait(context.Background(), p))
}
