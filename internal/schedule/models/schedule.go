package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "zonegrid/pkg/domain-errors"
)

// Schedule is one zone's availability flags for one weekday.
//
// Invariants:
//   - Weekday is 0..6, where 0 is Sunday (the time.Weekday convention used
//     for date-to-weekday mapping)
//   - at most one row exists per (ZoneID, Weekday) pair
//
// A weekday with no row means "no explicit configuration" and resolves as
// unavailable, a deliberate fail-closed default.
type Schedule struct {
	ID                uuid.UUID `json:"id"`
	ZoneID            uuid.UUID `json:"zone_id"`
	Weekday           int       `json:"weekday"`
	DeliveriesEnabled bool      `json:"deliveries_enabled"`
	VisitsEnabled     bool      `json:"visits_enabled"`
	CreatedAt         time.Time `json:"created_at"`
	CreatedBy         string    `json:"created_by,omitempty"`
}

// ValidateWeekday enforces the 0..6 range.
func ValidateWeekday(weekday int) error {
	if weekday < 0 || weekday > 6 {
		return dErrors.New(dErrors.CodeValidation, "weekday must be between 0 and 6")
	}
	return nil
}

// ServiceType selects which availability flag a query reads.
type ServiceType string

const (
	ServiceDelivery ServiceType = "delivery"
	ServiceVisit    ServiceType = "visit"
)

// ParseServiceType validates a caller-supplied service type.
func ParseServiceType(raw string) (ServiceType, error) {
	switch ServiceType(raw) {
	case ServiceDelivery, ServiceVisit:
		return ServiceType(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "service type must be delivery or visit")
	}
}

// ReplaceEntry is one weekday's flags in a bulk replace. Omitted booleans
// default to enabled.
type ReplaceEntry struct {
	Weekday           int   `json:"weekday"`
	DeliveriesEnabled *bool `json:"deliveries_enabled"`
	VisitsEnabled     *bool `json:"visits_enabled"`
}

func (e ReplaceEntry) deliveries() bool {
	return e.DeliveriesEnabled == nil || *e.DeliveriesEnabled
}

func (e ReplaceEntry) visits() bool {
	return e.VisitsEnabled == nil || *e.VisitsEnabled
}

// ToSchedule materializes the entry as a row for the given zone.
func (e ReplaceEntry) ToSchedule(zoneID uuid.UUID, actorID string, now time.Time) *Schedule {
	return &Schedule{
		ID:                uuid.New(),
		ZoneID:            zoneID,
		Weekday:           e.Weekday,
		DeliveriesEnabled: e.deliveries(),
		VisitsEnabled:     e.visits(),
		CreatedAt:         now,
		CreatedBy:         actorID,
	}
}

// UpsertChange is a partial flag change for a single (zone, weekday) row.
// On insert, omitted flags default to enabled; on update of an existing row
// they preserve the current value.
type UpsertChange struct {
	DeliveriesEnabled *bool `json:"deliveries_enabled"`
	VisitsEnabled     *bool `json:"visits_enabled"`
}

// Availability is the derived answer for one zone and calendar date.
type Availability struct {
	Available         bool `json:"available"`
	DeliveriesEnabled bool `json:"deliveries_enabled"`
	VisitsEnabled     bool `json:"visits_enabled"`
}

// ForService returns the availability view for the requested service type
// given an explicit schedule row.
func (s *Schedule) ForService(serviceType ServiceType) Availability {
	available := s.DeliveriesEnabled
	if serviceType == ServiceVisit {
		available = s.VisitsEnabled
	}
	return Availability{
		Available:         available,
		DeliveriesEnabled: s.DeliveriesEnabled,
		VisitsEnabled:     s.VisitsEnabled,
	}
}
