package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterWaitsPerHost(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://nominatim.example/search?q=a"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://nominatim.example/search?q=b"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)

	start = time.Now()
	require.NoError(t, l.Wait(ctx, "https://other.example/"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, 2, l.Hosts())
}

func TestLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	for range 5 {
		require.NoError(t, l.Wait(context.Background(), "https://nominatim.example/"))
	}
}

func TestLimiterRespectsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0.1, DefaultBurst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://nominatim.example/"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "https://nominatim.example/"))
}

func TestLimiterUnknownHost(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 1})
	require.NoError(t, l.Wait(context.Background(), "::not a url"))
	require.Equal(t, 1, l.Hosts())
}
