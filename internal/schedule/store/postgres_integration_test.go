//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"zonegrid/internal/schedule/models"
	"zonegrid/internal/schedule/store"
	zonemodels "zonegrid/internal/zone/models"
	zonestore "zonegrid/internal/zone/store"
	"zonegrid/pkg/platform/tx"
	"zonegrid/pkg/testutil/containers"
)

type SchedulePostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	zones    *zonestore.Postgres
	store    *store.Postgres
	runner   *tx.Runner
	zoneID   uuid.UUID
}

func TestSchedulePostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SchedulePostgresSuite))
}

func (s *SchedulePostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.zones = zonestore.NewPostgres(s.postgres.DB)
	s.store = store.NewPostgres(s.postgres.DB)
	s.runner = tx.NewRunner(s.postgres.DB)
}

func (s *SchedulePostgresSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx))

	zone, err := zonemodels.NewZone(uuid.New(), "SCHED", "Schedule Zone", "", nil, "tester", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.zones.CreateIfCodeAvailable(ctx, zone))
	s.zoneID = zone.ID
}

func (s *SchedulePostgresSuite) row(weekday int, deliveries, visits bool) *models.Schedule {
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

// TestReplaceRollsBackOnDuplicate pins the no-partial-state guarantee: a
// duplicate weekday inside a replace must roll back the delete too.
func (s *SchedulePostgresSuite) TestReplaceRollsBackOnDuplicate() {
	ctx := context.Background()

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.ReplaceForZone(ctx, s.zoneID, []*models.Schedule{s.row(3, true, true)})
	})
	s.Require().NoError(err)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.ReplaceForZone(ctx, s.zoneID, []*models.Schedule{
			s.row(1, true, true),
			s.row(1, false, false),
		})
	})
	s.Require().ErrorIs(err, store.ErrDuplicateWeekday)

	rows, err := s.store.FindByZone(ctx, s.zoneID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(3, rows[0].Weekday)
}

func (s *SchedulePostgresSuite) TestUpsertKeepsRowIdentity() {
	ctx := context.Background()

	first := s.row(2, true, true)
	_, err := s.store.Upsert(ctx, first)
	s.Require().NoError(err)

	second := s.row(2, false, true)
	persisted, err := s.store.Upsert(ctx, second)
	s.Require().NoError(err)
	s.Equal(first.ID, persisted.ID, "returned row must carry the stored id, not the incoming one")
	s.Equal(first.CreatedBy, persisted.CreatedBy)

	found, err := s.store.FindByZoneDay(ctx, s.zoneID, 2)
	s.Require().NoError(err)
	s.Equal(first.ID, found.ID)
	s.Equal(persisted.CreatedAt, found.CreatedAt)
	s.False(found.DeliveriesEnabled)
	s.True(found.VisitsEnabled)
}

func (s *SchedulePostgresSuite) TestWeekdayRangeConstraint() {
	ctx := context.Background()
	_, err := s.store.Upsert(ctx, s.row(9, true, true))
	s.Require().Error(err)
}

func (s *SchedulePostgresSuite) TestCascadeOnZoneRowRemoval() {
	ctx := context.Background()
	_, err := s.store.Upsert(ctx, s.row(1, true, true))
	s.Require().NoError(err)

	_, err = s.postgres.DB.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, s.zoneID)
	s.Require().NoError(err)

	rows, err := s.store.FindByZone(ctx, s.zoneID)
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *SchedulePostgresSuite) TestZonesByWeekday() {
	ctx := context.Background()

	other, err := zonemodels.NewZone(uuid.New(), "AAA", "First Zone", "", nil, "tester", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.zones.CreateIfCodeAvailable(ctx, other))

	_, err = s.store.Upsert(ctx, s.row(1, true, false))
	s.Require().NoError(err)
	_, err = s.store.Upsert(ctx, &models.Schedule{
		ID: uuid.New(), ZoneID: other.ID, Weekday: 1,
		DeliveriesEnabled: true, VisitsEnabled: true,
		CreatedAt: time.Now().UTC(), CreatedBy: "tester",
	})
	s.Require().NoError(err)

	zones, err := s.store.ZonesByWeekday(ctx, 1, models.ServiceDelivery)
	s.Require().NoError(err)
	s.Require().Len(zones, 2)
	s.Equal("AAA", zones[0].Code)

	zones, err = s.store.ZonesByWeekday(ctx, 1, models.ServiceVisit)
	s.Require().NoError(err)
	s.Require().Len(zones, 1)
	s.Equal("AAA", zones[0].Code)
}
