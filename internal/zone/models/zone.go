package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "zonegrid/pkg/domain-errors"
)

// Zone is the aggregate root for a geographic service zone.
//
// Invariants:
//   - Code is non-empty, at most 20 characters, stored upper-cased, and
//     unique among zones that are not soft-deleted
//   - Name is non-empty and at most 100 characters
//   - Version starts at 1 and increments on every mutation
//   - ID and CreatedAt are immutable after construction
//   - DeletedAt, once set, permanently excludes the zone from lookups and
//     coverage resolution; the row is retained for audit
//
// Active is a business-level enable/disable flag distinct from deletion: an
// inactive zone still appears in admin listings but never matches coverage
// resolution and rejects schedule operations.
type Zone struct {
	ID          uuid.UUID     `json:"id"`
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Active      bool          `json:"active"`
	Geometry    *MultiPolygon `json:"geometry,omitempty"`
	Version     int           `json:"version"`
	CreatedBy   string        `json:"created_by,omitempty"`
	UpdatedBy   string        `json:"updated_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
}

const (
	maxCodeLength = 20
	maxNameLength = 100
)

// NormalizeCode upper-cases and trims a zone code for comparison and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode enforces the code length invariant on a normalized code.
func ValidateCode(code string) error {
	if code == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "zone code cannot be empty")
	}
	if len(code) > maxCodeLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "zone code must be 20 characters or less")
	}
	return nil
}

// ValidateName enforces the name length invariant.
func ValidateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "zone name cannot be empty")
	}
	if len(name) > maxNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "zone name must be 100 characters or less")
	}
	return nil
}

// NewZone constructs an active version-1 zone, normalizing the code and
// validating construction invariants.
func NewZone(id uuid.UUID, code, name, description string, geometry *MultiPolygon, actorID string, now time.Time) (*Zone, error) {
	code = NormalizeCode(code)
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	if err := ValidateName(strings.TrimSpace(name)); err != nil {
		return nil, err
	}
	if geometry != nil {
		if err := geometry.Validate(); err != nil {
			return nil, err
		}
	}
	return &Zone{
		ID:          id,
		Code:        code,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Active:      true,
		Geometry:    geometry,
		Version:     1,
		CreatedBy:   actorID,
		UpdatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsDeleted reports whether the zone is soft-deleted.
func (z *Zone) IsDeleted() bool {
	return z.DeletedAt != nil
}

// Resolvable reports whether the zone participates in coverage resolution.
func (z *Zone) Resolvable() bool {
	return z.Active && !z.IsDeleted() && z.Geometry != nil
}

// Touch stamps a mutation: bumps the version and records actor and time.
func (z *Zone) Touch(actorID string, now time.Time) {
	z.Version++
	z.UpdatedBy = actorID
	z.UpdatedAt = now
}

// ApplySoftDelete marks the zone deleted. Schedules cascade at the storage
// layer via the zone_id foreign key.
func (z *Zone) ApplySoftDelete(actorID string, now time.Time) {
	z.DeletedAt = &now
	z.Touch(actorID, now)
}
