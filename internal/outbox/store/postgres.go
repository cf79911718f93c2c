package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"zonegrid/internal/outbox"
	"zonegrid/internal/platform/metrics"
	dErrors "zonegrid/pkg/domain-errors"
	txcontext "zonegrid/pkg/platform/tx"
)

// Postgres persists outbox rows. created_at is filled by the database's
// now(), the transaction clock, so rows order consistently with commit order
// even when the application clock drifts or a caller retries.
type Postgres struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

type Option func(s *Postgres)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Postgres) {
		s.metrics = m
	}
}

// NewPostgres constructs a PostgreSQL-backed outbox store.
func NewPostgres(db *sql.DB, opts ...Option) *Postgres {
	s := &Postgres{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append inserts one event row inside the caller's transaction. Calling it
// without a transaction in context is a programming error: the outbox insert
// must never commit independently of the mutation it describes.
func (s *Postgres) Append(ctx context.Context, aggregateType, eventType string, aggregateKey uuid.UUID, payload any) (*outbox.Event, error) {
	sqlTx, ok := txcontext.From(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "outbox append requires an open transaction")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal outbox payload")
	}

	event := &outbox.Event{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		EventType:     eventType,
		AggregateKey:  aggregateKey,
		Payload:       payloadBytes,
	}

	const query = `
		INSERT INTO outbox_events (id, aggregate_type, event_type, aggregate_key, payload, created_at, attempts)
		VALUES ($1, $2, $3, $4, $5, now(), 0)
		RETURNING created_at
	`
	err = sqlTx.QueryRowContext(ctx, query,
		event.ID,
		event.AggregateType,
		event.EventType,
		event.AggregateKey,
		payloadBytes,
	).Scan(&event.CreatedAt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "insert outbox event")
	}
	if s.metrics != nil {
		s.metrics.IncrementOutboxEventsAppended()
	}
	return event, nil
}

// ListUnprocessed returns undelivered rows in commit order. This is the
// relay's polling contract; the core only reads it in tests.
func (s *Postgres) ListUnprocessed(ctx context.Context, limit int) ([]*outbox.Event, error) {
	const query = `
		SELECT id, aggregate_type, event_type, aggregate_key, payload, created_at, processed_at, attempts
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*outbox.Event
	for rows.Next() {
		var event outbox.Event
		var processedAt sql.NullTime
		if err := rows.Scan(
			&event.ID,
			&event.AggregateType,
			&event.EventType,
			&event.AggregateKey,
			&event.Payload,
			&event.CreatedAt,
			&processedAt,
			&event.Attempts,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		if processedAt.Valid {
			event.ProcessedAt = &processedAt.Time
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return events, nil
}
