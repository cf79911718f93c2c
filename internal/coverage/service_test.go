package coverage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zonemodels "zonegrid/internal/zone/models"
	zonestore "zonegrid/internal/zone/store"
	dErrors "zonegrid/pkg/domain-errors"
)

// recordingStore counts FindByPoint calls so tests can assert validation
// short-circuits before storage.
type recordingStore struct {
	inner *zonestore.InMemory
	calls int
}

func (r *recordingStore) FindByPoint(ctx context.Context, lat, lon float64) (*zonemodels.Zone, error) {
	r.calls++
	return r.inner.FindByPoint(ctx, lat, lon)
}

type mapCache struct {
	entries map[[2]float64]*zonemodels.Zone
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[[2]float64]*zonemodels.Zone)}
}

func (c *mapCache) Get(_ context.Context, lat, lon float64) (*zonemodels.Zone, bool) {
	zone, ok := c.entries[[2]float64{lat, lon}]
	return zone, ok
}

func (c *mapCache) Set(_ context.Context, lat, lon float64, zone *zonemodels.Zone) {
	c.entries[[2]float64{lat, lon}] = zone
}

func newCoveredStore(t *testing.T) *recordingStore {
	t.Helper()
	zones := zonestore.NewInMemory()
	zone, err := zonemodels.NewZone(uuid.New(), "COV", "Covered", "", &zonemodels.MultiPolygon{
		Type: "MultiPolygon",
		Coordinates: [][][][]float64{{{
			{-4.0, 40.0},
			{-3.0, 40.0},
			{-3.0, 41.0},
			{-4.0, 41.0},
			{-4.0, 40.0},
		}}},
	}, "tester", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, zones.CreateIfCodeAvailable(context.Background(), zone))
	return &recordingStore{inner: zones}
}

func TestResolveZone(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves the containing zone", func(t *testing.T) {
		store := newCoveredStore(t)
		svc := New(store)

		zone, err := svc.ResolveZone(ctx, 40.5, -3.5)
		require.NoError(t, err)
		require.NotNil(t, zone)
		assert.Equal(t, "COV", zone.Code)
	})

	t.Run("uncovered point resolves to nil without error", func(t *testing.T) {
		store := newCoveredStore(t)
		svc := New(store)

		zone, err := svc.ResolveZone(ctx, 10.0, 10.0)
		require.NoError(t, err)
		assert.Nil(t, zone)
	})

	t.Run("out-of-range coordinates never reach storage", func(t *testing.T) {
		store := newCoveredStore(t)
		svc := New(store)

		_, err := svc.ResolveZone(ctx, 91.0, 0.0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = svc.ResolveZone(ctx, 0.0, -181.0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		assert.Zero(t, store.calls)
	})

	t.Run("cache hit skips storage", func(t *testing.T) {
		store := newCoveredStore(t)
		svc := New(store, WithCache(newMapCache()))

		first, err := svc.ResolveZone(ctx, 40.5, -3.5)
		require.NoError(t, err)
		second, err := svc.ResolveZone(ctx, 40.5, -3.5)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, store.calls)
	})

	t.Run("negative lookups are cached too", func(t *testing.T) {
		store := newCoveredStore(t)
		svc := New(store, WithCache(newMapCache()))

		zone, err := svc.ResolveZone(ctx, 10.0, 10.0)
		require.NoError(t, err)
		assert.Nil(t, zone)

		zone, err = svc.ResolveZone(ctx, 10.0, 10.0)
		require.NoError(t, err)
		assert.Nil(t, zone)
		assert.Equal(t, 1, store.calls)
	})
}
