package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"zonegrid/internal/outbox"
	"zonegrid/internal/platform/middleware"
	"zonegrid/internal/zone/metrics"
	"zonegrid/internal/zone/models"
	"zonegrid/internal/zone/store"
	dErrors "zonegrid/pkg/domain-errors"
	"zonegrid/pkg/platform/tx"
)

// Store is the persistence contract the zone registry needs. The uniqueness
// pre-checks here are advisory; the backing unique constraint is what makes
// concurrent creates race-free.
type Store interface {
	CreateIfCodeAvailable(ctx context.Context, zone *models.Zone) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Zone, error)
	CodeInUse(ctx context.Context, code string, excludeID uuid.UUID) (bool, error)
	FindPage(ctx context.Context, filter models.ListFilter, page models.PageRequest) ([]*models.Zone, int, error)
	Update(ctx context.Context, zone *models.Zone, expectedVersion int) error
	AnyActiveGeometryIntersecting(ctx context.Context, excludeID uuid.UUID, geometry *models.MultiPolygon) (bool, error)
}

// CoverageInvalidator drops cached coverage lookups after zone mutations.
type CoverageInvalidator interface {
	Flush(ctx context.Context) error
}

// Service owns the zone lifecycle: creation, partial updates, wholesale
// geometry replacement, deactivation, and soft deletion. Every mutation and
// its outbox event commit in one transaction.
type Service struct {
	zones       Store
	events      outbox.Store
	txRunner    tx.TxRunner
	logger      *slog.Logger
	metrics     *metrics.Metrics
	invalidator CoverageInvalidator
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCoverageInvalidator(inv CoverageInvalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

// New constructs a Service.
func New(zones Store, events outbox.Store, txRunner tx.TxRunner, opts ...Option) *Service {
	s := &Service{zones: zones, events: events, txRunner: txRunner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type zoneCreatedPayload struct {
	ZoneID string `json:"zoneId"`
	Code   string `json:"code"`
	Name   string `json:"name"`
}

type zoneUpdatedPayload struct {
	ZoneID  string   `json:"zoneId"`
	Version int      `json:"version"`
	Changed []string `json:"changed"`
}

type zoneDeactivatedPayload struct {
	ZoneID string `json:"zoneId"`
}

type zoneDeletedPayload struct {
	ZoneID    string `json:"zoneId"`
	DeletedBy string `json:"deletedBy"`
}

// Create registers a new zone. Fails with a conflict when another not-deleted
// zone holds the same normalized code, or when the supplied geometry overlaps
// an existing active zone's geometry.
func (s *Service) Create(ctx context.Context, in models.CreateZoneInput, actorID string) (*models.Zone, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	zone, err := models.NewZone(uuid.New(), in.Code, in.Name, in.Description, in.Geometry, actorID, time.Now().UTC())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	err = s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if zone.Geometry != nil {
			overlap, err := s.zones.AnyActiveGeometryIntersecting(ctx, zone.ID, zone.Geometry)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check geometry overlap")
			}
			if overlap {
				return dErrors.New(dErrors.CodeConflict, "zone geometry overlaps an existing active zone")
			}
		}
		if err := s.zones.CreateIfCodeAvailable(ctx, zone); err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				return dErrors.New(dErrors.CodeConflict, "zone code must be unique")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create zone")
		}
		_, err := s.events.Append(ctx, outbox.AggregateZone, outbox.EventZoneCreated, zone.ID,
			zoneCreatedPayload{ZoneID: zone.ID.String(), Code: zone.Code, Name: zone.Name})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, outbox.EventZoneCreated, "zone_id", zone.ID, "code", zone.Code)
	if s.metrics != nil {
		s.metrics.IncrementZonesCreated()
	}
	s.flushCoverage(ctx)
	return zone, nil
}

// Get fetches a zone that is not soft-deleted.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	zone, err := s.zones.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "zone not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone")
	}
	return zone, nil
}

// List returns a filtered, sorted page of zones.
func (s *Service) List(ctx context.Context, filter models.ListFilter, page models.PageRequest) (*models.Page, error) {
	start := time.Now()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	page.Normalize()
	if err := page.Validate(); err != nil {
		return nil, err
	}

	zones, total, err := s.zones.FindPage(ctx, filter, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list zones")
	}
	if s.metrics != nil {
		s.metrics.ObserveList(start)
	}
	if zones == nil {
		zones = []*models.Zone{}
	}
	return &models.Page{Items: zones, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

// Update applies a partial field merge, bumping the version. A code change
// re-checks uniqueness against not-deleted zones.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in models.UpdateZoneInput, actorID string) (*models.Zone, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var zone *models.Zone
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		zone, err = s.zones.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "zone not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone")
		}
		expected := zone.Version

		var changed []string
		if in.Code != nil && *in.Code != zone.Code {
			taken, err := s.zones.CodeInUse(ctx, *in.Code, zone.ID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check zone code")
			}
			if taken {
				return dErrors.New(dErrors.CodeConflict, "zone code must be unique")
			}
			zone.Code = *in.Code
			changed = append(changed, "code")
		}
		if in.Name != nil && *in.Name != zone.Name {
			zone.Name = *in.Name
			changed = append(changed, "name")
		}
		if in.Description != nil && *in.Description != zone.Description {
			zone.Description = *in.Description
			changed = append(changed, "description")
		}
		if in.Active != nil && *in.Active != zone.Active {
			zone.Active = *in.Active
			changed = append(changed, "active")
		}

		zone.Touch(actorID, time.Now().UTC())
		if err := s.saveZone(ctx, zone, expected); err != nil {
			return err
		}
		_, err = s.events.Append(ctx, outbox.AggregateZone, outbox.EventZoneUpdated, zone.ID,
			zoneUpdatedPayload{ZoneID: zone.ID.String(), Version: zone.Version, Changed: changed})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, outbox.EventZoneUpdated, "zone_id", zone.ID, "version", zone.Version)
	s.flushCoverage(ctx)
	return zone, nil
}

// UpdateGeometry replaces the zone's geometry wholesale. The event type stays
// ZoneUpdated; consumers distinguish the geometry variant by payload.
func (s *Service) UpdateGeometry(ctx context.Context, id uuid.UUID, geometry models.MultiPolygon, actorID string) (*models.Zone, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}

	var zone *models.Zone
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		zone, err = s.zones.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "zone not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone")
		}
		expected := zone.Version

		overlap, err := s.zones.AnyActiveGeometryIntersecting(ctx, zone.ID, &geometry)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check geometry overlap")
		}
		if overlap {
			return dErrors.New(dErrors.CodeConflict, "zone geometry overlaps an existing active zone")
		}

		zone.Geometry = &geometry
		zone.Touch(actorID, time.Now().UTC())
		if err := s.saveZone(ctx, zone, expected); err != nil {
			return err
		}
		_, err = s.events.Append(ctx, outbox.AggregateZone, outbox.EventZoneUpdated, zone.ID,
			zoneUpdatedPayload{ZoneID: zone.ID.String(), Version: zone.Version, Changed: []string{"geometry"}})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, outbox.EventZoneUpdated, "zone_id", zone.ID, "changed", "geometry")
	s.flushCoverage(ctx)
	return zone, nil
}

// Deactivate flips the zone inactive. Re-deactivating an inactive zone is
// allowed and still emits an event; repeated identical states are not
// suppressed.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, actorID string) (*models.Zone, error) {
	var zone *models.Zone
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		zone, err = s.zones.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "zone not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone")
		}
		expected := zone.Version

		zone.Active = false
		zone.Touch(actorID, time.Now().UTC())
		if err := s.saveZone(ctx, zone, expected); err != nil {
			return err
		}
		_, err = s.events.Append(ctx, outbox.AggregateZone, outbox.EventZoneDeactivated, zone.ID,
			zoneDeactivatedPayload{ZoneID: zone.ID.String()})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, outbox.EventZoneDeactivated, "zone_id", zone.ID)
	s.flushCoverage(ctx)
	return zone, nil
}

// SoftDelete marks the zone deleted, keeping the row for audit. Schedules
// cascade at the storage layer; the freed code becomes reusable.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID, actorID string) error {
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		zone, err := s.zones.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "zone not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone")
		}
		expected := zone.Version

		zone.ApplySoftDelete(actorID, time.Now().UTC())
		if err := s.saveZone(ctx, zone, expected); err != nil {
			return err
		}
		_, err = s.events.Append(ctx, outbox.AggregateZone, outbox.EventZoneDeleted, zone.ID,
			zoneDeletedPayload{ZoneID: zone.ID.String(), DeletedBy: actorID})
		return err
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, outbox.EventZoneDeleted, "zone_id", id, "deleted_by", actorID)
	if s.metrics != nil {
		s.metrics.IncrementZonesDeleted()
	}
	s.flushCoverage(ctx)
	return nil
}

func (s *Service) saveZone(ctx context.Context, zone *models.Zone, expectedVersion int) error {
	if err := s.zones.Update(ctx, zone, expectedVersion); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "zone not found")
		case errors.Is(err, store.ErrCodeTaken):
			return dErrors.New(dErrors.CodeConflict, "zone code must be unique")
		case errors.Is(err, store.ErrStaleVersion):
			return dErrors.New(dErrors.CodeConflict, "zone was modified concurrently")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update zone")
		}
	}
	return nil
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

// flushCoverage drops cached coverage lookups after a mutation. Failures are
// logged, not surfaced: the cache is TTL-bounded, so staleness self-heals.
func (s *Service) flushCoverage(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Flush(ctx); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "coverage cache flush failed", "error", err)
	}
}
