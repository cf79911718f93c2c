package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"zonegrid/internal/outbox"
	dErrors "zonegrid/pkg/domain-errors"
)

// InMemory keeps appended events in order for unit tests. CreatedAt uses a
// strictly increasing wall-clock reading so ordering assertions hold even
// when appends happen within one tick.
type InMemory struct {
	mu     sync.Mutex
	events []*outbox.Event
	last   time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, aggregateType, eventType string, aggregateKey uuid.UUID, payload any) (*outbox.Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal outbox payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now

	event := &outbox.Event{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		EventType:     eventType,
		AggregateKey:  aggregateKey,
		Payload:       payloadBytes,
		CreatedAt:     now,
	}
	s.events = append(s.events, event)
	return event, nil
}

func (s *InMemory) ListUnprocessed(_ context.Context, limit int) ([]*outbox.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*outbox.Event, 0, len(s.events))
	for _, e := range s.events {
		if e.ProcessedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
