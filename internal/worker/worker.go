// Package worker executes queued pipeline runs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/metrics"
	"github.com/JakeFAU/venue-ingest/internal/pipeline"
	"github.com/JakeFAU/venue-ingest/internal/runs"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// Runner processes one venue request.
type Runner interface {
	Run(ctx context.Context, req venue.Request) pipeline.Result
}

// DefaultRetryDelay is the pause after a failed dequeue.
const DefaultRetryDelay = time.Second

// Config controls Worker behavior.
type Config struct {
	// RunTimeout bounds a single run. Zero means no limit.
	RunTimeout time.Duration
	// RetryDelay is the pause after a failed dequeue before trying again.
	RetryDelay time.Duration
}

// Worker consumes queue items and executes the pipeline for each.
type Worker struct {
	queue   venue.Queue
	tracker *runs.Tracker
	runner  Runner
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Worker.
func New(queue venue.Queue, tracker *runs.Tracker, runner Runner, cfg Config, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Worker{
		queue:   queue,
		tracker: tracker,
		runner:  runner,
		cfg:     cfg,
		logger:  logger.Named("worker"),
	}
}

// Run blocks, consuming queue items until the context finishes or the queue
// is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, venue.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			if !w.pause(ctx) {
				return
			}
			continue
		}
		w.logger.Debug("dequeued run", zap.String("run_id", item.RunID))
		if _, err := w.Execute(ctx, item); err != nil {
			w.logger.Error("run failed", zap.String("run_id", item.RunID), zap.Error(err))
		}
	}
}

// pause waits out RetryDelay and reports false when ctx ended first.
func (w *Worker) pause(ctx context.Context) bool {
	timer := time.NewTimer(w.cfg.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Execute runs one queued item to completion and returns the finished run.
func (w *Worker) Execute(ctx context.Context, item venue.QueueItem) (venue.Run, error) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	run, err := w.tracker.Start(ctx, item.RunID)
	if err != nil {
		return venue.Run{}, fmt.Errorf("start run: %w", err)
	}

	runCtx := ctx
	if w.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.cfg.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	res := w.runner.Run(runCtx, item.Request)
	w.logger.Info("run finished",
		zap.String("run_id", item.RunID),
		zap.String("record_id", item.Request.RecordID),
		zap.String("status", res.Status.String()),
		zap.Duration("duration", time.Since(start)),
	)

	// Persist the outcome even when the run context expired.
	finished, err := w.tracker.Finish(context.WithoutCancel(ctx), run, res)
	if err != nil {
		return finished, fmt.Errorf("finish run: %w", err)
	}
	return finished, nil
}
