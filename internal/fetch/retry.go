// Package fetch retrieves page markdown through a Scraper with fixed-cooldown retries.
package fetch

import (
	"context"
	"net/http"
	"time"
)

// Rule pairs a status predicate with the cooldown observed before retrying.
// Once a Final rule has granted a retry, no later rule grants another.
type Rule struct {
	Name  string
	Match func(status int) bool
	Wait  time.Duration
	Final bool
}

// Policy decides whether a response status warrants another attempt. Each matching
// rule grants at most one retry; MaxAttempts bounds the total number of requests.
type Policy struct {
	Rules       []Rule
	MaxAttempts int
}

// Default cooldowns.
const (
	DefaultRateLimitCooldown   = 30 * time.Second
	DefaultServerErrorCooldown = 5 * time.Second
)

// IsRateLimited matches 429 responses.
func IsRateLimited(status int) bool {
	return status == http.StatusTooManyRequests
}

// IsTransient matches request timeouts, gateway timeouts and other 5xx responses.
func IsTransient(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusGatewayTimeout ||
		status >= http.StatusInternalServerError
}

// NewPolicy builds the standard policy: 429 waits rateLimit, transient errors wait
// serverError, and the request is issued at most three times. A rate limit may be
// followed by a transient retry but not the other way round.
func NewPolicy(rateLimit, serverError time.Duration) Policy {
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimitCooldown
	}
	if serverError <= 0 {
		serverError = DefaultServerErrorCooldown
	}
	return Policy{
		Rules: []Rule{
			{Name: "rate_limited", Match: IsRateLimited, Wait: rateLimit},
			{Name: "transient", Match: IsTransient, Wait: serverError, Final: true},
		},
		MaxAttempts: 3,
	}
}

// Next returns the cooldown before the next attempt given the status of the last
// one. used records the rules already spent; the matched rule is added to it.
func (p Policy) Next(status, attempt int, used map[string]bool) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return 0, false
	}
	for _, rule := range p.Rules {
		if rule.Final && used[rule.Name] {
			return 0, false
		}
	}
	for _, rule := range p.Rules {
		if !rule.Match(status) {
			continue
		}
		if used[rule.Name] {
			return 0, false
		}
		used[rule.Name] = true
		return rule.Wait, true
	}
	return 0, false
}

// Pauser blocks for a cooldown.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration) error
}

// TimerPauser waits on a timer, returning early when ctx ends.
type TimerPauser struct{}

// Pause sleeps for delay or until ctx is done.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
