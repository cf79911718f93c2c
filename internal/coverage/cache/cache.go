// Package cache keeps recently resolved coverage lookups in Redis. Entries
// are TTL-bounded and the whole namespace is invalidated on any zone
// mutation, so a cached answer is never older than the shorter of the TTL
// and the last mutation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	zonemodels "zonegrid/internal/zone/models"
)

const (
	generationKey = "coverage:generation"
	// coordinatePrecision buckets lookups to ~11m cells; points that close
	// together resolve to the same zone except on borders, where the TTL
	// bounds the error window.
	coordinatePrecision = 4
)

// Cache is a read-through coverage lookup cache. Flush bumps a generation
// counter embedded in every key, orphaning prior entries to expire via TTL
// instead of scanning for them.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a coverage cache with the given entry TTL.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

type entry struct {
	Covered bool             `json:"covered"`
	Zone    *zonemodels.Zone `json:"zone,omitempty"`
}

// Get returns the cached resolution for the coordinate. The second return
// reports whether a cached answer existed; a nil zone with ok=true is a
// cached negative lookup.
func (c *Cache) Get(ctx context.Context, lat, lon float64) (*zonemodels.Zone, bool) {
	key, err := c.key(ctx, lat, lon)
	if err != nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var cached entry
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false
	}
	if !cached.Covered {
		return nil, true
	}
	return cached.Zone, true
}

// Set stores a resolution, positive or negative.
func (c *Cache) Set(ctx context.Context, lat, lon float64, zone *zonemodels.Zone) {
	key, err := c.key(ctx, lat, lon)
	if err != nil {
		return
	}
	raw, err := json.Marshal(entry{Covered: zone != nil, Zone: zone})
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttl)
}

// Flush invalidates every cached lookup by advancing the generation.
func (c *Cache) Flush(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("advance coverage cache generation: %w", err)
	}
	return nil
}

func (c *Cache) key(ctx context.Context, lat, lon float64) (string, error) {
	generation, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("coverage:%d:%.*f:%.*f",
		generation, coordinatePrecision, lat, coordinatePrecision, lon), nil
}
