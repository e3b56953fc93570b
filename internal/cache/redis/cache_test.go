package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*PageCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	cache, err := Open(context.Background(), Config{Addr: srv.Addr(), TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, srv
}

func TestPageCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "https://venue.example.com/weddings")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, "https://venue.example.com/weddings", "# Weddings"))
	md, ok, err := cache.Get(ctx, "https://VENUE.example.com/weddings/")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "# Weddings", md)
}

func TestPageCacheExpires(t *testing.T) {
	t.Parallel()

	cache, srv := newTestCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "https://venue.example.com", "home"))
	require.Equal(t, time.Minute, srv.TTL(cache.Key("https://venue.example.com")))

	srv.FastForward(2 * time.Minute)
	_, ok, err := cache.Get(ctx, "https://venue.example.com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPageCacheKeys(t *testing.T) {
	t.Parallel()

	cache := New(nil, Config{})
	require.Equal(t, DefaultTTL, cache.ttl)
	key := cache.Key("https://venue.example.com/Rooms")
	require.Contains(t, key, DefaultKeyPrefix)
	require.NotEqual(t, key, cache.Key("https://venue.example.com/rooms"))
	require.Equal(t, key, cache.Key("HTTPS://venue.EXAMPLE.com/Rooms/"))
}

func TestOpenRequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{})
	require.ErrorIs(t, err, ErrEmptyAddress)
}

func TestGetReportsServerErrors(t *testing.T) {
	t.Parallel()

	cache, srv := newTestCache(t, time.Minute)
	srv.SetError("READONLY")
	_, _, err := cache.Get(context.Background(), "https://venue.example.com")
	require.ErrorContains(t, err, "redis get")
}

func TestPing(t *testing.T) {
	t.Parallel()

	cache, srv := newTestCache(t, time.Hour)
	require.NoError(t, cache.Ping(context.Background()))

	srv.Close()
	require.Error(t, cache.Ping(context.Background()))
}
