package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-ingest/internal/clock/system"
	"github.com/JakeFAU/venue-ingest/internal/id/uuid"
	"github.com/JakeFAU/venue-ingest/internal/pipeline"
	queuememory "github.com/JakeFAU/venue-ingest/internal/queue/memory"
	"github.com/JakeFAU/venue-ingest/internal/runs"
	"github.com/JakeFAU/venue-ingest/internal/storage/memory"
	"github.com/JakeFAU/venue-ingest/internal/venue"
	"github.com/JakeFAU/venue-ingest/internal/worker"
)

type countingRunner struct {
	mu   sync.Mutex
	seen []string
	done chan struct{}
}

func (r *countingRunner) Run(_ context.Context, req venue.Request) pipeline.Result {
	r.mu.Lock()
	r.seen = append(r.seen, req.RecordID)
	n := len(r.seen)
	r.mu.Unlock()
	if n == cap(r.done) {
		close(r.done)
	}
	return pipeline.Result{Status: pipeline.Status{Kind: pipeline.KindSuccess, Sources: []string{"Venue"}}}
}

func newTracker(t *testing.T) *runs.Tracker {
	t.Helper()
	tr, err := runs.NewTracker(runs.Options{
		Store: memory.NewRunStore(),
		IDs:   uuid.New(),
		Clock: system.New(),
	})
	require.NoError(t, err)
	return tr
}

func TestDispatcherProcessesSubmittedRuns(t *testing.T) {
	t.Parallel()

	tr := newTracker(t)
	q := queuememory.NewQueue(8)
	runner := &countingRunner{done: make(chan struct{}, 3)}
	workers := []*worker.Worker{
		worker.New(q, tr, runner, worker.Config{}, nil),
		worker.New(q, tr, runner, worker.Config{}, nil),
	}
	d := New(q, tr, workers)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(stopped)
	}()

	var ids []string
	for _, rec := range []string{"rec1", "rec2", "rec3"} {
		run, err := d.Submit(context.Background(), venue.Request{RecordID: rec, VenueURL: "https://v.example.com"})
		require.NoError(t, err)
		require.Equal(t, venue.RunStateQueued, run.State)
		ids = append(ids, run.ID)
	}

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("runs were not processed")
	}
	require.Eventually(t, func() bool {
		for _, id := range ids {
			run, err := tr.Get(context.Background(), id)
			if err != nil || run.State != venue.RunStateSucceeded {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestSubmitFailsRunWhenQueueRejects(t *testing.T) {
	t.Parallel()

	tr := newTracker(t)
	q := queuememory.NewQueue(1)
	q.Close()
	d := New(q, tr, nil)

	_, err := d.Submit(context.Background(), venue.Request{RecordID: "rec1", VenueURL: "https://v.example.com"})
	require.ErrorIs(t, err, venue.ErrQueueClosed)
}
