package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-ingest/internal/publisher"
	"github.com/JakeFAU/venue-ingest/internal/venue"
)

func TestPublisherRecordsRunEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	ev := publisher.NewRunEvent(venue.Run{
		ID:         "run-1",
		Request:    venue.Request{RecordID: "rec1"},
		Kind:       "SUCCESS",
		StatusLine: "SUCCESS|900|1+0|Venue",
	})

	id, err := pub.Publish(context.Background(), "venue-runs", ev)
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)
	_, err = pub.Publish(context.Background(), "venue-runs", "not an event")
	require.NoError(t, err)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "venue-runs", msgs[0].Topic)
	require.Equal(t, "memory-2", msgs[1].ID)

	require.Equal(t, []publisher.RunEvent{ev}, pub.RunEvents("rec1"))
	require.Empty(t, pub.RunEvents("rec2"))
	require.Equal(t, map[string]string{"record_id": "rec1", "status_kind": "SUCCESS"}, ev.Attributes())

	msgs[0].Topic = "modified"
	require.Equal(t, "venue-runs", pub.Messages()[0].Topic)
}

func TestPublisherFailWith(t *testing.T) {
	t.Parallel()

	pub := New()
	boom := errors.New("unavailable")
	pub.FailWith(boom)
	_, err := pub.Publish(context.Background(), "venue-runs", "x")
	require.ErrorIs(t, err, boom)
	require.Empty(t, pub.Messages())

	pub.FailWith(nil)
	id, err := pub.Publish(context.Background(), "venue-runs", "x")
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)
}
