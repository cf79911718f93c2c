package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"zonegrid/internal/schedule/models"
	zonemodels "zonegrid/internal/zone/models"
	zonestore "zonegrid/internal/zone/store"
)

// InMemory mirrors the PostgreSQL schedule store for unit tests, including
// the duplicate-weekday rejection and its no-partial-state guarantee. It
// shares the zone in-memory store so ZonesByWeekday can join.
type InMemory struct {
	mu    sync.RWMutex
	rows  map[uuid.UUID]map[int]*models.Schedule
	zones *zonestore.InMemory
}

func NewInMemory(zones *zonestore.InMemory) *InMemory {
	return &InMemory{
		rows:  make(map[uuid.UUID]map[int]*models.Schedule),
		zones: zones,
	}
}

func cloneSchedule(s *models.Schedule) *models.Schedule {
	copied := *s
	return &copied
}

func (s *InMemory) ReplaceForZone(_ context.Context, zoneID uuid.UUID, schedules []*models.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reject duplicates before touching state so a failed replace leaves
	// the prior rows intact, matching the transactional store.
	replacement := make(map[int]*models.Schedule, len(schedules))
	for _, schedule := range schedules {
		if _, dup := replacement[schedule.Weekday]; dup {
			return ErrDuplicateWeekday
		}
		replacement[schedule.Weekday] = cloneSchedule(schedule)
	}
	s.rows[zoneID] = replacement
	return nil
}

func (s *InMemory) Upsert(_ context.Context, schedule *models.Schedule) (*models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDay, ok := s.rows[schedule.ZoneID]
	if !ok {
		byDay = make(map[int]*models.Schedule)
		s.rows[schedule.ZoneID] = byDay
	}
	persisted := *schedule
	if existing, ok := byDay[schedule.Weekday]; ok {
		// Row identity survives an upsert of an existing pair; only the
		// flags change.
		persisted.ID = existing.ID
		persisted.CreatedAt = existing.CreatedAt
		persisted.CreatedBy = existing.CreatedBy
	}
	byDay[schedule.Weekday] = cloneSchedule(&persisted)
	return cloneSchedule(&persisted), nil
}

func (s *InMemory) FindByZoneDay(_ context.Context, zoneID uuid.UUID, weekday int) (*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedule, ok := s.rows[zoneID][weekday]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSchedule(schedule), nil
}

func (s *InMemory) FindByZone(_ context.Context, zoneID uuid.UUID) ([]*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var schedules []*models.Schedule
	for _, schedule := range s.rows[zoneID] {
		schedules = append(schedules, cloneSchedule(schedule))
	}
	sort.Slice(schedules, func(i, j int) bool { return schedules[i].Weekday < schedules[j].Weekday })
	return schedules, nil
}

func (s *InMemory) ZonesByWeekday(ctx context.Context, weekday int, serviceType models.ServiceType) ([]*zonemodels.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zones []*zonemodels.Zone
	for zoneID, byDay := range s.rows {
		schedule, ok := byDay[weekday]
		if !ok {
			continue
		}
		enabled := schedule.DeliveriesEnabled
		if serviceType == models.ServiceVisit {
			enabled = schedule.VisitsEnabled
		}
		if !enabled {
			continue
		}
		zone, err := s.zones.FindByID(ctx, zoneID)
		if err != nil || !zone.Active {
			continue
		}
		zones = append(zones, zone)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].Code < zones[j].Code })
	return zones, nil
}

// DeleteForZone mimics the storage-level cascade when a zone row disappears.
func (s *InMemory) DeleteForZone(_ context.Context, zoneID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, zoneID)
}
