// Package coverage resolves which zone, if any, contains a coordinate.
// Containment itself is the storage engine's spatial predicate; this package
// validates input, consults an optional cache, and applies the stable
// tie-break when the non-overlap invariant is violated upstream.
package coverage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"zonegrid/internal/coverage/metrics"
	zonemodels "zonegrid/internal/zone/models"
	zonestore "zonegrid/internal/zone/store"
	dErrors "zonegrid/pkg/domain-errors"
)

// SpatialStore is the containment predicate the resolver delegates to. Only
// active, not-deleted zones with geometry participate.
type SpatialStore interface {
	FindByPoint(ctx context.Context, lat, lon float64) (*zonemodels.Zone, error)
}

// Cache is an optional read-through lookup cache.
type Cache interface {
	Get(ctx context.Context, lat, lon float64) (*zonemodels.Zone, bool)
	Set(ctx context.Context, lat, lon float64, zone *zonemodels.Zone)
}

// Service is the coverage resolver.
type Service struct {
	zones   SpatialStore
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(zones SpatialStore, opts ...Option) *Service {
	s := &Service{zones: zones}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveZone returns the active zone containing the coordinate, or nil when
// no zone covers it. Coordinates are validated before any storage access.
func (s *Service) ResolveZone(ctx context.Context, lat, lon float64) (*zonemodels.Zone, error) {
	start := time.Now()
	if !zonemodels.ValidLatitude(lat) {
		return nil, dErrors.New(dErrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if !zonemodels.ValidLongitude(lon) {
		return nil, dErrors.New(dErrors.CodeValidation, "longitude must be between -180 and 180")
	}

	if s.metrics != nil {
		s.metrics.IncrementLookups()
	}
	if s.cache != nil {
		if zone, ok := s.cache.Get(ctx, lat, lon); ok {
			if s.metrics != nil {
				s.metrics.IncrementCacheHits()
				s.metrics.ObserveResolve(start)
			}
			return zone, nil
		}
	}

	zone, err := s.zones.FindByPoint(ctx, lat, lon)
	if err != nil {
		if errors.Is(err, zonestore.ErrNotFound) {
			if s.cache != nil {
				s.cache.Set(ctx, lat, lon, nil)
			}
			if s.metrics != nil {
				s.metrics.ObserveResolve(start)
			}
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve zone by point")
	}

	if s.cache != nil {
		s.cache.Set(ctx, lat, lon, zone)
	}
	if s.metrics != nil {
		s.metrics.ObserveResolve(start)
	}
	return zone, nil
}
