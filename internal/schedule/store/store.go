// Package store persists per-zone weekday schedules.
package store

import (
	dErrors "zonegrid/pkg/domain-errors"
)

var (
	// ErrNotFound covers missing (zone, weekday) rows.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "schedule not found")
	// ErrDuplicateWeekday surfaces the unique (zone_id, weekday) constraint.
	ErrDuplicateWeekday = dErrors.New(dErrors.CodeConflict, "duplicate weekday for zone")
)
