// Package runs tracks the lifecycle of pipeline runs: submission, start and
// completion, with completed runs fanned out to the audit log and subscribers.
package runs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-ingest/internal/pipeline"
	"github.com/JakeFAU/venue-ingest/internal/publisher"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// Tracker persists run state transitions. Recorder and Publisher are optional.
type Tracker struct {
	store     venue.RunStore
	recorder  venue.RunRecorder
	publisher venue.Publisher
	ids       venue.IDGenerator
	clock     venue.Clock
	topic     string
	logger    *zap.Logger
}

// Options configures a Tracker.
type Options struct {
	Store     venue.RunStore
	Recorder  venue.RunRecorder
	Publisher venue.Publisher
	IDs       venue.IDGenerator
	Clock     venue.Clock
	Topic     string
	Logger    *zap.Logger
}

// NewTracker validates opts.
func NewTracker(opts Options) (*Tracker, error) {
	if opts.Store == nil || opts.IDs == nil || opts.Clock == nil {
		return nil, errors.New("runs: store, id generator and clock are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Tracker{
		store:     opts.Store,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		ids:       opts.IDs,
		clock:     opts.Clock,
		topic:     opts.Topic,
		logger:    opts.Logger.Named("runs"),
	}, nil
}

// Submit creates a queued run for req.
func (t *Tracker) Submit(ctx context.Context, req venue.Request) (venue.Run, error) {
	id, err := t.ids.NewID()
	if err != nil {
		return venue.Run{}, fmt.Errorf("generate run id: %w", err)
	}
	run := venue.Run{
		ID:        id,
		Request:   req,
		State:     venue.RunStateQueued,
		Submitted: t.clock.Now(),
	}
	if err := t.store.CreateRun(ctx, run); err != nil {
		return venue.Run{}, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// Start marks a run as running.
func (t *Tracker) Start(ctx context.Context, runID string) (venue.Run, error) {
	run, err := t.store.GetRun(ctx, runID)
	if err != nil {
		return venue.Run{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	run.State = venue.RunStateRunning
	if err := t.store.UpdateRun(ctx, run); err != nil {
		return venue.Run{}, fmt.Errorf("update run %s: %w", runID, err)
	}
	return run, nil
}

// Finish stores the outcome of a run, then records and publishes it. Audit
// and publish failures are logged and do not fail the run.
func (t *Tracker) Finish(ctx context.Context, run venue.Run, res pipeline.Result) (venue.Run, error) {
	finished := t.clock.Now()
	run.Finished = &finished
	run.Kind = string(res.Status.Kind)
	run.StatusLine = res.Status.String()
	run.Chars = res.Status.Chars
	run.Pages = res.Status.Pages
	run.Listings = res.Status.Listings
	run.Sources = res.Status.Sources
	run.Truncated = res.Status.Truncated
	run.Language = res.Language
	run.State = venue.RunStateFailed
	if res.Status.OK() {
		run.State = venue.RunStateSucceeded
	}

	if err := t.store.UpdateRun(ctx, run); err != nil {
		return run, fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if t.recorder != nil {
		if err := t.recorder.RecordRun(ctx, run); err != nil {
			t.logger.Warn("record run failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	if t.publisher != nil {
		msgID, err := t.publisher.Publish(ctx, t.topic, publisher.NewRunEvent(run))
		if err != nil {
			t.logger.Warn("publish run event failed", zap.String("run_id", run.ID), zap.Error(err))
		} else {
			t.logger.Debug("run event published", zap.String("run_id", run.ID), zap.String("message_id", msgID))
		}
	}
	return run, nil
}

// Get returns a run by ID.
func (t *Tracker) Get(ctx context.Context, runID string) (venue.Run, error) {
	run, err := t.store.GetRun(ctx, runID)
	if err != nil {
		return venue.Run{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	return run, nil
}
