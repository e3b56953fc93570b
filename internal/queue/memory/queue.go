// Package memory provides a bounded in-process run queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// ErrClosed is returned once the queue has been closed and drained.
var ErrClosed = venue.ErrQueueClosed

// Queue is a bounded channel of pending runs.
type Queue struct {
	ch     chan venue.QueueItem
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a Queue holding up to capacity items.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan venue.QueueItem, capacity)}
}

// Enqueue adds item, blocking while the queue is full.
func (q *Queue) Enqueue(ctx context.Context, item venue.QueueItem) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue run %s: %w", item.RunID, ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue returns the next item, blocking until one is available.
func (q *Queue) Dequeue(ctx context.Context) (venue.QueueItem, error) {
	select {
	case <-ctx.Done():
		return venue.QueueItem{}, fmt.Errorf("dequeue: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return venue.QueueItem{}, ErrClosed
		}
		return item, nil
	}
}

// Len reports the number of pending items.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting items. Pending items can still be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
