package store

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"zonegrid/internal/zone/models"
)

type ZoneStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *ZoneStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestZoneStoreSuite(t *testing.T) {
	suite.Run(t, new(ZoneStoreSuite))
}

func (s *ZoneStoreSuite) newZone(code string) *models.Zone {
	zone, err := models.NewZone(uuid.New(), code, "Zone "+code, "", nil, "tester", time.Now().UTC())
	s.Require().NoError(err)
	return zone
}

func (s *ZoneStoreSuite) square(minLon, minLat, maxLon, maxLat float64) *models.MultiPolygon {
	return &models.MultiPolygon{
		Type: "MultiPolygon",
		Coordinates: [][][][]float64{{{
			{minLon, minLat},
			{maxLon, minLat},
			{maxLon, maxLat},
			{minLon, maxLat},
			{minLon, minLat},
		}}},
	}
}

func (s *ZoneStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds zone by ID", func() {
		zone := s.newZone("NORTH")
		s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, zone))

		found, err := s.store.FindByID(s.ctx, zone.ID)
		s.Require().NoError(err)
		s.Equal(zone.Code, found.Code)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, uuid.New())
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *ZoneStoreSuite) TestCodeUniqueness() {
	s.Run("rejects duplicate code", func() {
		s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, s.newZone("DUP")))

		err := s.store.CreateIfCodeAvailable(s.ctx, s.newZone("DUP"))
		s.Require().ErrorIs(err, ErrCodeTaken)
	})

	s.Run("soft-deleted zone frees its code", func() {
		zone := s.newZone("FREED")
		s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, zone))

		zone.ApplySoftDelete("tester", time.Now().UTC())
		s.Require().NoError(s.store.Update(s.ctx, zone, 1))

		s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, s.newZone("FREED")))
	})

	s.Run("CodeInUse excludes the given zone", func() {
		zone := s.newZone("SELF")
		s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, zone))

		taken, err := s.store.CodeInUse(s.ctx, "SELF", zone.ID)
		s.Require().NoError(err)
		s.False(taken)

		taken, err = s.store.CodeInUse(s.ctx, "SELF", uuid.New())
		s.Require().NoError(err)
		s.True(taken)
	})
}

func (s *ZoneStoreSuite) TestVersionCompareAndSwap() {
	zone := s.newZone("CAS")
	s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, zone))

	s.Run("update with matching version succeeds", func() {
		zone.Touch("tester", time.Now().UTC())
		s.Require().NoError(s.store.Update(s.ctx, zone, 1))

		found, err := s.store.FindByID(s.ctx, zone.ID)
		s.Require().NoError(err)
		s.Equal(2, found.Version)
	})

	s.Run("stale expected version is rejected", func() {
		zone.Touch("tester", time.Now().UTC())
		err := s.store.Update(s.ctx, zone, 1)
		s.Require().ErrorIs(err, ErrStaleVersion)
	})

	s.Run("update of missing zone reports not found", func() {
		ghost := s.newZone("GHOST")
		err := s.store.Update(s.ctx, ghost, 1)
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *ZoneStoreSuite) TestFindByPoint() {
	west := s.newZone("WEST")
	west.Geometry = s.square(-4.0, 40.0, -3.0, 41.0)
	east := s.newZone("EAST")
	east.Geometry = s.square(0.0, 40.0, 1.0, 41.0)
	s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, west))
	s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, east))

	s.Run("resolves containing zone", func() {
		zone, err := s.store.FindByPoint(s.ctx, 40.5, -3.5)
		s.Require().NoError(err)
		s.Equal("WEST", zone.Code)
	})

	s.Run("uncovered point reports not found", func() {
		_, err := s.store.FindByPoint(s.ctx, 50.0, 10.0)
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("inactive zone never matches", func() {
		west.Active = false
		west.Touch("tester", time.Now().UTC())
		s.Require().NoError(s.store.Update(s.ctx, west, 1))

		_, err := s.store.FindByPoint(s.ctx, 40.5, -3.5)
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("multiple matches tie-break on lowest code", func() {
		a := s.newZone("AAA")
		a.Geometry = s.square(0.0, 40.0, 1.0, 41.0)
		s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, a))

		zone, err := s.store.FindByPoint(s.ctx, 40.5, 0.5)
		s.Require().NoError(err)
		s.Equal("AAA", zone.Code)
	})
}

func (s *ZoneStoreSuite) TestFindPage() {
	for _, code := range []string{"ALPHA", "BRAVO", "CHARLIE"} {
		s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, s.newZone(code)))
	}
	inactive := s.newZone("DELTA")
	inactive.Active = false
	s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, inactive))

	s.Run("filters by status", func() {
		zones, total, err := s.store.FindPage(s.ctx,
			models.ListFilter{Status: models.StatusInactive},
			models.PageRequest{Page: 1, Limit: 10, SortBy: "code", SortOrder: models.SortAsc})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Equal("DELTA", zones[0].Code)
	})

	s.Run("search matches code substring", func() {
		zones, total, err := s.store.FindPage(s.ctx,
			models.ListFilter{Search: "rav"},
			models.PageRequest{Page: 1, Limit: 10, SortBy: "code", SortOrder: models.SortAsc})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Equal("BRAVO", zones[0].Code)
	})

	s.Run("paginates with stable sort", func() {
		zones, total, err := s.store.FindPage(s.ctx,
			models.ListFilter{},
			models.PageRequest{Page: 2, Limit: 2, SortBy: "code", SortOrder: models.SortAsc})
		s.Require().NoError(err)
		s.Equal(4, total)
		s.Len(zones, 2)
		s.Equal("CHARLIE", zones[0].Code)
		s.Equal("DELTA", zones[1].Code)
	})
}

// TestFindPageEqualKeysTieBreak pins the id-ascending tie-break for rows that
// share a sort key, in both sort directions.
func (s *ZoneStoreSuite) TestFindPageEqualKeysTieBreak() {
	now := time.Now().UTC()
	ids := make([]string, 0, 3)
	for _, code := range []string{"TIE1", "TIE2", "TIE3"} {
		zone, err := models.NewZone(uuid.New(), code, "Zone "+code, "", nil, "tester", now)
		s.Require().NoError(err)
		s.Require().NoError(s.store.CreateIfCodeAvailable(s.ctx, zone))
		ids = append(ids, zone.ID.String())
	}
	sort.Strings(ids)

	collect := func(order models.SortOrder) []string {
		zones, _, err := s.store.FindPage(s.ctx, models.ListFilter{},
			models.PageRequest{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: order})
		s.Require().NoError(err)
		got := make([]string, 0, len(zones))
		for _, zone := range zones {
			got = append(got, zone.ID.String())
		}
		return got
	}

	s.Equal(ids, collect(models.SortAsc))
	s.Equal(ids, collect(models.SortDesc))
}
