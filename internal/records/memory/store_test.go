package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

func TestStoreWriteAndRead(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	_, err := s.ReadFields(ctx, "rec1")
	require.ErrorIs(t, err, venue.ErrNotFound)

	require.NoError(t, s.WriteFields(ctx, "rec1", map[string]string{"a": "1"}))
	require.NoError(t, s.WriteFields(ctx, "rec1", map[string]string{"b": "2"}))

	got, err := s.ReadFields(ctx, "rec1")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, got)
	require.Equal(t, 2, s.Writes())

	got["a"] = "mutated"
	again, err := s.ReadFields(ctx, "rec1")
	require.NoError(t, err)
	require.Equal(t, "1", again["a"])
}

func TestStoreFailWrites(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.FailWrites = true
	err := s.WriteFields(context.Background(), "rec1", map[string]string{"a": "1"})
	require.ErrorIs(t, err, venue.ErrStoreWrite)
	require.Zero(t, s.Writes())
}
