package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/venue-ingest/internal/metrics"
)

// DefaultDelay is the pause observed between successive network calls.
const DefaultDelay = 2 * time.Second

// Pacer keeps a fixed gap between the end of one network call and the start of
// the next. The first call passes immediately. A Pacer belongs to one pipeline
// instance and is not shared.
type Pacer struct {
	delay time.Duration
	now   func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewPacer creates a Pacer. A non-positive delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, now: time.Now}
}

// Wait pauses until delay has elapsed since the last call completed.
func (p *Pacer) Wait(ctx context.Context, pauser Pauser) error {
	if p == nil || p.delay <= 0 {
		return nil
	}
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last.IsZero() {
		return nil
	}
	remaining := p.delay - p.now().Sub(last)
	if remaining <= 0 {
		return nil
	}
	if pauser == nil {
		pauser = TimerPauser{}
	}
	if err := pauser.Pause(ctx, remaining); err != nil {
		return fmt.Errorf("pacer wait: %w", err)
	}
	metrics.ObservePacerDelay(remaining)
	return nil
}

// Done marks the end of a network call; the next Wait measures from here.
func (p *Pacer) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.last = p.now()
	p.mu.Unlock()
}
