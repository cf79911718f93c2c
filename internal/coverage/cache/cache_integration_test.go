//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"zonegrid/internal/coverage/cache"
	zonemodels "zonegrid/internal/zone/models"
	"zonegrid/pkg/testutil/containers"
)

func TestCoverageCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	redis := containers.NewRedisContainer(t)
	c := cache.New(redis.Client, time.Minute)

	zone, err := zonemodels.NewZone(uuid.New(), "CACHED", "Cached Zone", "", nil, "tester", time.Now().UTC())
	require.NoError(t, err)

	t.Run("round-trips a positive resolution", func(t *testing.T) {
		c.Set(ctx, 40.5, -3.5, zone)

		got, ok := c.Get(ctx, 40.5, -3.5)
		require.True(t, ok)
		require.NotNil(t, got)
		require.Equal(t, zone.ID, got.ID)
	})

	t.Run("round-trips a negative resolution", func(t *testing.T) {
		c.Set(ctx, 10.0, 10.0, nil)

		got, ok := c.Get(ctx, 10.0, 10.0)
		require.True(t, ok)
		require.Nil(t, got)
	})

	t.Run("nearby points share a bucket", func(t *testing.T) {
		c.Set(ctx, 41.00001, -3.00001, zone)

		_, ok := c.Get(ctx, 41.00002, -3.00002)
		require.True(t, ok)
	})

	t.Run("flush invalidates every entry", func(t *testing.T) {
		c.Set(ctx, 40.5, -3.5, zone)
		require.NoError(t, c.Flush(ctx))

		_, ok := c.Get(ctx, 40.5, -3.5)
		require.False(t, ok)
	})

	t.Run("miss on a cold key", func(t *testing.T) {
		_, ok := c.Get(ctx, 80.0, 80.0)
		require.False(t, ok)
	})
}
