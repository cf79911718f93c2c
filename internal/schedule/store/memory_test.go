package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"zonegrid/internal/schedule/models"
	zonemodels "zonegrid/internal/zone/models"
	zonestore "zonegrid/internal/zone/store"
)

type ScheduleStoreSuite struct {
	suite.Suite
	zones  *zonestore.InMemory
	store  *InMemory
	ctx    context.Context
	zoneID uuid.UUID
}

func (s *ScheduleStoreSuite) SetupTest() {
	s.zones = zonestore.NewInMemory()
	s.store = NewInMemory(s.zones)
	s.ctx = context.Background()

	zone, err := zonemodels.NewZone(uuid.New(), "SCHED", "Schedule Zone", "", nil, "tester", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.zones.CreateIfCodeAvailable(s.ctx, zone))
	s.zoneID = zone.ID
}

func TestScheduleStoreSuite(t *testing.T) {
	suite.Run(t, new(ScheduleStoreSuite))
}

func (s *ScheduleStoreSuite) row(weekday int, deliveries, visits bool) *models.Schedule {
	return &models.Schedule{
		ID:                uuid.New(),
		ZoneID:            s.zoneID,
		Weekday:           weekday,
		DeliveriesEnabled: deliveries,
		VisitsEnabled:     visits,
		CreatedAt:         time.Now().UTC(),
		CreatedBy:         "tester",
	}
}

func (s *ScheduleStoreSuite) TestReplaceForZone() {
	s.Run("swaps the whole weekly schedule", func() {
		s.Require().NoError(s.store.ReplaceForZone(s.ctx, s.zoneID, []*models.Schedule{
			s.row(1, true, false),
			s.row(2, false, true),
		}))

		rows, err := s.store.FindByZone(s.ctx, s.zoneID)
		s.Require().NoError(err)
		s.Len(rows, 2)

		s.Require().NoError(s.store.ReplaceForZone(s.ctx, s.zoneID, []*models.Schedule{
			s.row(5, true, true),
		}))
		rows, err = s.store.FindByZone(s.ctx, s.zoneID)
		s.Require().NoError(err)
		s.Len(rows, 1)
		s.Equal(5, rows[0].Weekday)
	})

	s.Run("duplicate weekday leaves prior rows intact", func() {
		s.Require().NoError(s.store.ReplaceForZone(s.ctx, s.zoneID, []*models.Schedule{
			s.row(3, true, true),
		}))

		err := s.store.ReplaceForZone(s.ctx, s.zoneID, []*models.Schedule{
			s.row(1, true, true),
			s.row(1, false, false),
		})
		s.Require().ErrorIs(err, ErrDuplicateWeekday)

		rows, err := s.store.FindByZone(s.ctx, s.zoneID)
		s.Require().NoError(err)
		s.Len(rows, 1)
		s.Equal(3, rows[0].Weekday)
	})
}

func (s *ScheduleStoreSuite) TestUpsert() {
	s.Run("inserts a new pair", func() {
		persisted, err := s.store.Upsert(s.ctx, s.row(4, true, false))
		s.Require().NoError(err)

		row, err := s.store.FindByZoneDay(s.ctx, s.zoneID, 4)
		s.Require().NoError(err)
		s.Equal(persisted.ID, row.ID)
		s.True(row.DeliveriesEnabled)
		s.False(row.VisitsEnabled)
	})

	s.Run("existing pair keeps its row identity", func() {
		original, err := s.store.FindByZoneDay(s.ctx, s.zoneID, 4)
		s.Require().NoError(err)

		incoming := s.row(4, false, true)
		persisted, err := s.store.Upsert(s.ctx, incoming)
		s.Require().NoError(err)
		s.Equal(original.ID, persisted.ID, "returned row must carry the stored id, not the incoming one")
		s.NotEqual(incoming.ID, persisted.ID)
		s.Equal(original.CreatedAt, persisted.CreatedAt)
		s.Equal(original.CreatedBy, persisted.CreatedBy)

		updated, err := s.store.FindByZoneDay(s.ctx, s.zoneID, 4)
		s.Require().NoError(err)
		s.Equal(original.ID, updated.ID)
		s.Equal(original.CreatedAt, updated.CreatedAt)
		s.False(updated.DeliveriesEnabled)
		s.True(updated.VisitsEnabled)
	})

	s.Run("missing pair reports not found", func() {
		_, err := s.store.FindByZoneDay(s.ctx, s.zoneID, 6)
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *ScheduleStoreSuite) TestZonesByWeekday() {
	other, err := zonemodels.NewZone(uuid.New(), "AAA", "First Zone", "", nil, "tester", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.zones.CreateIfCodeAvailable(s.ctx, other))

	_, err = s.store.Upsert(s.ctx, s.row(1, true, false))
	s.Require().NoError(err)
	_, err = s.store.Upsert(s.ctx, &models.Schedule{
		ID: uuid.New(), ZoneID: other.ID, Weekday: 1,
		DeliveriesEnabled: true, VisitsEnabled: true,
		CreatedAt: time.Now().UTC(), CreatedBy: "tester",
	})
	s.Require().NoError(err)

	s.Run("orders matching zones by code", func() {
		zones, err := s.store.ZonesByWeekday(s.ctx, 1, models.ServiceDelivery)
		s.Require().NoError(err)
		s.Require().Len(zones, 2)
		s.Equal("AAA", zones[0].Code)
		s.Equal("SCHED", zones[1].Code)
	})

	s.Run("filters by the requested service flag", func() {
		zones, err := s.store.ZonesByWeekday(s.ctx, 1, models.ServiceVisit)
		s.Require().NoError(err)
		s.Require().Len(zones, 1)
		s.Equal("AAA", zones[0].Code)
	})

	s.Run("weekday without rows matches nothing", func() {
		zones, err := s.store.ZonesByWeekday(s.ctx, 2, models.ServiceDelivery)
		s.Require().NoError(err)
		s.Empty(zones)
	})
}
