package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Robots probes get a few quick attempts before the page fetch proceeds as if
// everything were allowed.
const (
	robotsAttempts = 3
	robotsBackoff  = 250 * time.Millisecond
)

const allowAllBody = "User-agent: *\nAllow: /\n"

// robotsTransport shields venue fetches from broken robots.txt endpoints.
// Small venue sites on shared hosting often time out or answer 5xx for
// /robots.txt while serving pages fine; both cases become an allow-all answer.
type robotsTransport struct {
	base    http.RoundTripper
	backoff time.Duration
	logger  *zap.Logger
}

func newRobotsTransport(base http.RoundTripper, logger *zap.Logger) *robotsTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &robotsTransport{base: base, backoff: robotsBackoff, logger: logger}
}

func (t *robotsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("robots transport: nil request")
	}
	if !strings.EqualFold(req.URL.Path, "/robots.txt") {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
		}
		return resp, nil
	}

	var lastErr error
	for attempt := 1; attempt <= robotsAttempts; attempt++ {
		resp, err := t.base.RoundTrip(req.Clone(req.Context()))
		switch {
		case err == nil && resp.StatusCode < http.StatusInternalServerError:
			return resp, nil
		case err == nil:
			_ = resp.Body.Close()
			t.logger.Info("robots.txt server error, allowing all",
				zap.String("host", req.URL.Host), zap.Int("status", resp.StatusCode))
			return allowAll(req), nil
		case !isTimeout(err):
			return nil, fmt.Errorf("fetch robots.txt: %w", err)
		}
		lastErr = err
		if attempt == robotsAttempts {
			break
		}
		if err := waitCtx(req.Context(), time.Duration(attempt)*t.backoff); err != nil {
			return nil, err
		}
	}
	t.logger.Info("robots.txt unreachable, allowing all",
		zap.String("host", req.URL.Host), zap.Error(lastErr))
	return allowAll(req), nil
}

func waitCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("robots backoff: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func allowAll(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"text/plain"}},
		Body:          io.NopCloser(strings.NewReader(allowAllBody)),
		ContentLength: int64(len(allowAllBody)),
		Request:       req,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "handshake timeout")
}
