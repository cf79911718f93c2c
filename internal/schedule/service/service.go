package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"zonegrid/internal/outbox"
	"zonegrid/internal/platform/middleware"
	"zonegrid/internal/schedule/models"
	"zonegrid/internal/schedule/store"
	zonemodels "zonegrid/internal/zone/models"
	zonestore "zonegrid/internal/zone/store"
	dErrors "zonegrid/pkg/domain-errors"
	"zonegrid/pkg/platform/tx"
)

// Store is the schedule persistence contract. ReplaceForZone must observe
// the caller's transaction so a duplicate weekday rolls back the delete too.
// Upsert returns the row as persisted: when the (zone, weekday) pair already
// exists the stored row keeps its id, created_at, and created_by.
type Store interface {
	ReplaceForZone(ctx context.Context, zoneID uuid.UUID, schedules []*models.Schedule) error
	Upsert(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error)
	FindByZoneDay(ctx context.Context, zoneID uuid.UUID, weekday int) (*models.Schedule, error)
	FindByZone(ctx context.Context, zoneID uuid.UUID) ([]*models.Schedule, error)
	ZonesByWeekday(ctx context.Context, weekday int, serviceType models.ServiceType) ([]*zonemodels.Zone, error)
}

// ZoneStore is the narrow zone read the schedule manager needs for its
// exists-and-active preconditions.
type ZoneStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*zonemodels.Zone, error)
}

// Service owns per-zone weekday schedules and derives date availability.
type Service struct {
	schedules Store
	zones     ZoneStore
	events    outbox.Store
	txRunner  tx.TxRunner
	logger    *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(schedules Store, zones ZoneStore, events outbox.Store, txRunner tx.TxRunner, opts ...Option) *Service {
	s := &Service{schedules: schedules, zones: zones, events: events, txRunner: txRunner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type schedulesReplacedPayload struct {
	ZoneID        string `json:"zoneId"`
	ScheduleCount int    `json:"scheduleCount"`
}

type scheduleUpsertedPayload struct {
	ZoneID  string `json:"zoneId"`
	Weekday int    `json:"weekday"`
}

// ReplaceForZone atomically swaps the zone's whole weekly schedule: delete
// all rows, insert the supplied entries, emit one event. Any failure rolls
// the whole swap back; a duplicate weekday in the input surfaces the unique
// pair constraint as a conflict.
func (s *Service) ReplaceForZone(ctx context.Context, zoneID uuid.UUID, entries []models.ReplaceEntry, actorID string) ([]*models.Schedule, error) {
	for _, entry := range entries {
		if err := models.ValidateWeekday(entry.Weekday); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	schedules := make([]*models.Schedule, 0, len(entries))
	for _, entry := range entries {
		schedules = append(schedules, entry.ToSchedule(zoneID, actorID, now))
	}

	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.requireActiveZone(ctx, zoneID); err != nil {
			return err
		}
		if err := s.schedules.ReplaceForZone(ctx, zoneID, schedules); err != nil {
			if errors.Is(err, store.ErrDuplicateWeekday) {
				return dErrors.New(dErrors.CodeConflict, "schedule entries contain a duplicate weekday")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace zone schedules")
		}
		_, err := s.events.Append(ctx, outbox.AggregateZone, outbox.EventSchedulesReplacedForZone, zoneID,
			schedulesReplacedPayload{ZoneID: zoneID.String(), ScheduleCount: len(schedules)})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, outbox.EventSchedulesReplacedForZone, "zone_id", zoneID, "schedule_count", len(schedules))
	return schedules, nil
}

// UpsertForZoneDay writes the single (zone, weekday) row and returns it as
// persisted, so an update of an existing pair reports the stored row's
// identity. Omitted flags default to enabled on insert but preserve the
// current value when the row already exists; partial updates never silently
// reset a flag.
func (s *Service) UpsertForZoneDay(ctx context.Context, zoneID uuid.UUID, weekday int, change models.UpsertChange, actorID string) (*models.Schedule, error) {
	if err := models.ValidateWeekday(weekday); err != nil {
		return nil, err
	}

	var schedule *models.Schedule
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.requireActiveZone(ctx, zoneID); err != nil {
			return err
		}

		deliveries, visits := true, true
		existing, err := s.schedules.FindByZoneDay(ctx, zoneID, weekday)
		switch {
		case err == nil:
			deliveries, visits = existing.DeliveriesEnabled, existing.VisitsEnabled
		case errors.Is(err, store.ErrNotFound):
			// insert path, defaults stand
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone schedule")
		}
		if change.DeliveriesEnabled != nil {
			deliveries = *change.DeliveriesEnabled
		}
		if change.VisitsEnabled != nil {
			visits = *change.VisitsEnabled
		}

		candidate := &models.Schedule{
			ID:                uuid.New(),
			ZoneID:            zoneID,
			Weekday:           weekday,
			DeliveriesEnabled: deliveries,
			VisitsEnabled:     visits,
			CreatedAt:         time.Now().UTC(),
			CreatedBy:         actorID,
		}
		schedule, err = s.schedules.Upsert(ctx, candidate)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to upsert zone schedule")
		}
		_, err = s.events.Append(ctx, outbox.AggregateZone, outbox.EventScheduleUpsertedForZone, zoneID,
			scheduleUpsertedPayload{ZoneID: zoneID.String(), Weekday: weekday})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, outbox.EventScheduleUpsertedForZone, "zone_id", zoneID, "weekday", weekday)
	return schedule, nil
}

// FindByZone lists the zone's schedule rows, weekday ascending.
func (s *Service) FindByZone(ctx context.Context, zoneID uuid.UUID) ([]*models.Schedule, error) {
	if _, err := s.zones.FindByID(ctx, zoneID); err != nil {
		if errors.Is(err, zonestore.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "zone not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone")
	}
	schedules, err := s.schedules.FindByZone(ctx, zoneID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list zone schedules")
	}
	if schedules == nil {
		schedules = []*models.Schedule{}
	}
	return schedules, nil
}

// AvailabilityForDate derives whether the zone serves the given date. The
// date string must be a civil YYYY-MM-DD calendar date; no timezone shifting
// happens beyond what the date itself encodes. A weekday with no schedule
// row resolves as unavailable with both flags off.
func (s *Service) AvailabilityForDate(ctx context.Context, zoneID uuid.UUID, date string, serviceType string) (*models.Availability, error) {
	parsedType, err := models.ParseServiceType(serviceType)
	if err != nil {
		return nil, err
	}
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "date must be a valid YYYY-MM-DD calendar date")
	}

	if _, err := s.requireActiveZone(ctx, zoneID); err != nil {
		return nil, err
	}

	weekday := int(day.Weekday())
	schedule, err := s.schedules.FindByZoneDay(ctx, zoneID, weekday)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// fail closed: no explicit configuration means unavailable
			return &models.Availability{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone schedule")
	}
	availability := schedule.ForService(parsedType)
	return &availability, nil
}

// ZonesByWeekday lists active zones whose schedule enables the service on
// that weekday, ordered by zone code.
func (s *Service) ZonesByWeekday(ctx context.Context, weekday int, serviceType string) ([]*zonemodels.Zone, error) {
	if err := models.ValidateWeekday(weekday); err != nil {
		return nil, err
	}
	parsedType, err := models.ParseServiceType(serviceType)
	if err != nil {
		return nil, err
	}
	zones, err := s.schedules.ZonesByWeekday(ctx, weekday, parsedType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list zones by weekday")
	}
	if zones == nil {
		zones = []*zonemodels.Zone{}
	}
	return zones, nil
}

func (s *Service) requireActiveZone(ctx context.Context, zoneID uuid.UUID) (*zonemodels.Zone, error) {
	zone, err := s.zones.FindByID(ctx, zoneID)
	if err != nil {
		if errors.Is(err, zonestore.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "zone not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone")
	}
	if !zone.Active {
		return nil, dErrors.New(dErrors.CodeNotFound, "zone not found")
	}
	return zone, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
