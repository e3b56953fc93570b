// Package dispatcher submits runs to the queue and fans them out to workers.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/venue-ingest/internal/pipeline"
	"github.com/JakeFAU/venue-ingest/internal/runs"
	"github.com/JakeFAU/venue-ingest/internal/venue"
	"github.com/JakeFAU/venue-ingest/internal/worker"
)

// enqueueTimeout bounds how long Submit waits for queue space.
const enqueueTimeout = 5 * time.Second

// Dispatcher owns the run queue and its worker pool.
type Dispatcher struct {
	queue   venue.Queue
	tracker *runs.Tracker
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue venue.Queue, tracker *runs.Tracker, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{queue: queue, tracker: tracker, workers: workers}
}

// Run starts all workers and blocks until the context finishes and every
// worker has returned.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	wg.Wait()
}

// Submit records a queued run for req and enqueues it. A run that cannot be
// enqueued is closed as failed before the error is returned.
func (d *Dispatcher) Submit(ctx context.Context, req venue.Request) (venue.Run, error) {
	run, err := d.tracker.Submit(ctx, req)
	if err != nil {
		return venue.Run{}, err
	}

	queueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	item := venue.QueueItem{RunID: run.ID, Request: req, Submitted: run.Submitted.Unix()}
	if err := d.queue.Enqueue(queueCtx, item); err != nil {
		failed := pipeline.Result{Status: pipeline.Status{Kind: pipeline.KindError, Reason: "enqueue failed"}}
		if _, finishErr := d.tracker.Finish(context.WithoutCancel(ctx), run, failed); finishErr != nil {
			return venue.Run{}, fmt.Errorf("enqueue run %s: %w (closing run: %w)", run.ID, err, finishErr)
		}
		return venue.Run{}, fmt.Errorf("enqueue run %s: %w", run.ID, err)
	}
	return run, nil
}
