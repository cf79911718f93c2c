package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"zonegrid/internal/zone/models"
)

// InMemory mirrors the PostgreSQL store's contract for unit tests, including
// the code-uniqueness constraint, version compare-and-swap, and a ray-cast
// stand-in for the spatial containment predicate.
type InMemory struct {
	mu    sync.RWMutex
	zones map[uuid.UUID]*models.Zone
}

func NewInMemory() *InMemory {
	return &InMemory{zones: make(map[uuid.UUID]*models.Zone)}
}

func cloneZone(z *models.Zone) *models.Zone {
	copied := *z
	if z.DeletedAt != nil {
		t := *z.DeletedAt
		copied.DeletedAt = &t
	}
	if z.Geometry != nil {
		g := *z.Geometry
		copied.Geometry = &g
	}
	return &copied
}

func (s *InMemory) CreateIfCodeAvailable(_ context.Context, zone *models.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.zones {
		if existing.DeletedAt == nil && existing.Code == zone.Code {
			return ErrCodeTaken
		}
	}
	s.zones[zone.ID] = cloneZone(zone)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	zone, ok := s.zones[id]
	if !ok || zone.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return cloneZone(zone), nil
}

func (s *InMemory) CodeInUse(_ context.Context, code string, excludeID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, existing := range s.zones {
		if existing.ID != excludeID && existing.DeletedAt == nil && existing.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) FindPage(_ context.Context, filter models.ListFilter, page models.PageRequest) ([]*models.Zone, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Zone
	search := strings.ToLower(filter.Search)
	for _, zone := range s.zones {
		if zone.DeletedAt != nil {
			continue
		}
		if filter.Status == models.StatusActive && !zone.Active {
			continue
		}
		if filter.Status == models.StatusInactive && zone.Active {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(zone.Code), search) &&
			!strings.Contains(strings.ToLower(zone.Name), search) {
			continue
		}
		matched = append(matched, cloneZone(zone))
	}

	// Equal sort keys fall back to id ascending, matching the SQL ORDER BY
	// tie-break, and keep the comparator strict in both directions.
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less, equal bool
		switch page.SortBy {
		case "code":
			less, equal = a.Code < b.Code, a.Code == b.Code
		case "name":
			less, equal = a.Name < b.Name, a.Name == b.Name
		case "updated_at":
			less, equal = a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		default:
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			return a.ID.String() < b.ID.String()
		}
		if page.SortOrder == models.SortDesc {
			return !less
		}
		return less
	})

	total := len(matched)
	offset := page.Offset()
	if offset >= total {
		return nil, total, nil
	}
	end := offset + page.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *InMemory) Update(_ context.Context, zone *models.Zone, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.zones[zone.ID]
	if !ok || existing.DeletedAt != nil {
		return ErrNotFound
	}
	if existing.Version != expectedVersion {
		return ErrStaleVersion
	}
	for _, other := range s.zones {
		if other.ID != zone.ID && other.DeletedAt == nil && other.Code == zone.Code {
			return ErrCodeTaken
		}
	}
	s.zones[zone.ID] = cloneZone(zone)
	return nil
}

func (s *InMemory) FindByPoint(_ context.Context, lat, lon float64) (*models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*models.Zone
	for _, zone := range s.zones {
		if !zone.Resolvable() {
			continue
		}
		if zone.Geometry.Contains(lat, lon) {
			matches = append(matches, cloneZone(zone))
		}
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Code < matches[j].Code })
	return matches[0], nil
}

// AnyActiveGeometryIntersecting approximates overlap via bounding boxes,
// which is enough for the disjoint and overlapping fixtures unit tests use.
func (s *InMemory) AnyActiveGeometryIntersecting(_ context.Context, excludeID uuid.UUID, geometry *models.MultiPolygon) (bool, error) {
	if geometry == nil {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidate := geometry.BoundingBox()
	for _, zone := range s.zones {
		if zone.ID == excludeID || !zone.Resolvable() {
			continue
		}
		box := zone.Geometry.BoundingBox()
		if boxesIntersect(candidate, box) {
			return true, nil
		}
	}
	return false, nil
}

func boxesIntersect(a, b [4]float64) bool {
	return a[0] < b[2] && b[0] < a[2] && a[1] < b[3] && b[1] < a[3]
}
