// Package outbox implements the write side of the transactional outbox: one
// durable event row per committed business mutation, appended inside the
// caller's transaction. An external relay polls unprocessed rows in commit
// order and delivers them at least once; this package never marks rows
// processed.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Aggregate types named in event rows.
const (
	AggregateZone = "zone"
)

// Event types emitted by the zone registry and schedule manager.
const (
	EventZoneCreated              = "ZoneCreated"
	EventZoneUpdated              = "ZoneUpdated"
	EventZoneDeactivated          = "ZoneDeactivated"
	EventZoneDeleted              = "ZoneDeleted"
	EventSchedulesReplacedForZone = "SchedulesReplacedForZone"
	EventScheduleUpsertedForZone  = "ScheduleUpsertedForZone"
)

// Event is one outbox row. CreatedAt is assigned by the database's
// transaction clock so ordering is consistent with commit order; ProcessedAt
// and Attempts belong to the external relay and are never written here beyond
// their initial values.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	AggregateKey  uuid.UUID       `json:"aggregate_key"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	Attempts      int             `json:"attempts"`
}

// Store appends event rows. Append must be called with the caller's
// transaction already open; the insert commits or rolls back with it and has
// no independent success path.
type Store interface {
	Append(ctx context.Context, aggregateType, eventType string, aggregateKey uuid.UUID, payload any) (*Event, error)
	ListUnprocessed(ctx context.Context, limit int) ([]*Event, error)
}
