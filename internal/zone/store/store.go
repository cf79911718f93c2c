// Package store persists zones. The PostgreSQL implementation owns the
// spatial predicate and the code-uniqueness constraint; the in-memory
// implementation mirrors both for unit tests.
package store

import (
	dErrors "zonegrid/pkg/domain-errors"
)

var (
	// ErrNotFound covers zones that are absent or soft-deleted.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "zone not found")
	// ErrCodeTaken surfaces the unique constraint on (code, not-deleted).
	ErrCodeTaken = dErrors.New(dErrors.CodeConflict, "zone code already in use")
	// ErrStaleVersion surfaces a lost optimistic-concurrency race: the row
	// changed between read and write.
	ErrStaleVersion = dErrors.New(dErrors.CodeConflict, "zone was modified concurrently")
)
