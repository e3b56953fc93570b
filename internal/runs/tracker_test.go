package runs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-ingest/internal/clock/system"
	"github.com/JakeFAU/venue-ingest/internal/pipeline"
	pubmemory "github.com/JakeFAU/venue-ingest/internal/publisher/memory"
	"github.com/JakeFAU/venue-ingest/internal/storage/memory"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

type sequenceIDs struct{ next []string }

func (s *sequenceIDs) NewID() (string, error) {
	if len(s.next) == 0 {
		return "", errors.New("out of ids")
	}
	id := s.next[0]
	s.next = s.next[1:]
	return id, nil
}

type recorder struct {
	runs []venue.Run
	err  error
}

func (r *recorder) RecordRun(_ context.Context, run venue.Run) error {
	r.runs = append(r.runs, run)
	return r.err
}

var submittedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTracker(t *testing.T, rec venue.RunRecorder, pub venue.Publisher) (*Tracker, *memory.RunStore) {
	t.Helper()
	store := memory.NewRunStore()
	tr, err := NewTracker(Options{
		Store:     store,
		Recorder:  rec,
		Publisher: pub,
		IDs:       &sequenceIDs{next: []string{"run-1", "run-2"}},
		Clock:     system.Fixed{At: submittedAt},
		Topic:     "venue-runs",
	})
	require.NoError(t, err)
	return tr, store
}

func TestTrackerLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := &recorder{}
	pub := pubmemory.New()
	tr, _ := newTracker(t, rec, pub)

	run, err := tr.Submit(ctx, venue.Request{RecordID: "rec1", VenueURL: "https://v.example.com"})
	require.NoError(t, err)
	require.Equal(t, "run-1", run.ID)
	require.Equal(t, venue.RunStateQueued, run.State)

	run, err = tr.Start(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, venue.RunStateRunning, run.State)

	res := pipeline.Result{
		Status: pipeline.Status{
			Kind: pipeline.KindSuccess, Chars: 1200, Pages: 2, Listings: 1,
			Sources: []string{"Venue", "CB"},
		},
		Language: "fra",
	}
	done, err := tr.Finish(ctx, run, res)
	require.NoError(t, err)
	require.Equal(t, venue.RunStateSucceeded, done.State)
	require.Equal(t, "SUCCESS|1200|2+1|Venue,CB", done.StatusLine)
	require.Equal(t, "fra", done.Language)
	require.NotNil(t, done.Finished)

	stored, err := tr.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, done, stored)

	require.Len(t, rec.runs, 1)
	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "venue-runs", msgs[0].Topic)
	events := pub.RunEvents("rec1")
	require.Len(t, events, 1)
	require.Equal(t, "SUCCESS", events[0].Kind)
	require.Equal(t, submittedAt, events[0].FinishedAt)
}

func TestTrackerFinishFailureStates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := &recorder{err: errors.New("db down")}
	pub := pubmemory.New()
	pub.FailWith(errors.New("pubsub down"))
	tr, _ := newTracker(t, rec, pub)

	run, err := tr.Submit(ctx, venue.Request{RecordID: "rec1", VenueURL: "https://v.example.com"})
	require.NoError(t, err)

	res := pipeline.Result{Status: pipeline.Status{Kind: pipeline.KindManualCheck, Reason: "Empty content returned"}}
	done, err := tr.Finish(ctx, run, res)
	require.NoError(t, err)
	require.Equal(t, venue.RunStateFailed, done.State)
	require.Equal(t, "MANUAL_CHECK|Empty content returned|0", done.StatusLine)
	require.Len(t, rec.runs, 1)
}

func TestTrackerErrors(t *testing.T) {
	t.Parallel()

	_, err := NewTracker(Options{})
	require.Error(t, err)

	ctx := context.Background()
	tr, _ := newTracker(t, nil, nil)
	_, err = tr.Start(ctx, "missing")
	require.ErrorIs(t, err, venue.ErrNotFound)
	_, err = tr.Finish(ctx, venue.Run{ID: "missing"}, pipeline.Result{})
	require.ErrorIs(t, err, venue.ErrNotFound)

	_, err = tr.Submit(ctx, venue.Request{})
	require.NoError(t, err)
	_, err = tr.Submit(ctx, venue.Request{})
	require.NoError(t, err)
	_, err = tr.Submit(ctx, venue.Request{})
	require.ErrorContains(t, err, "out of ids")
}
