package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUpdatedBeforeCreated is returned when updated_at would precede created_at
	// or an already recorded updated_at.
	ErrUpdatedBeforeCreated = errors.New("updated_at cannot be earlier than created_at")
	// ErrArchivedBeforeCreated is returned when archived_at would precede created_at.
	ErrArchivedBeforeCreated = errors.New("archived_at cannot be earlier than created_at")
	// ErrArchivedBeforeUpdated is returned when archived_at would precede updated_at.
	ErrArchivedBeforeUpdated = errors.New("archived_at cannot be earlier than updated_at")
)

// TemporalMetadata tracks the instants of a memory's lifecycle. Transitions
// re-check ordering against the current state and fail rather than clamp.
type TemporalMetadata struct {
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// NewTemporal starts a fresh record with only created_at set.
func NewTemporal(createdAt time.Time) TemporalMetadata {
	return TemporalMetadata{CreatedAt: createdAt}
}

// TemporalWithTimes rebuilds a record from stored instants, validating ordering.
func TemporalWithTimes(createdAt time.Time, updatedAt, archivedAt *time.Time) (TemporalMetadata, error) {
	t := TemporalMetadata{CreatedAt: createdAt, UpdatedAt: updatedAt, ArchivedAt: archivedAt}
	if err := t.Validate(); err != nil {
		return TemporalMetadata{}, err
	}
	return t, nil
}

func (t TemporalMetadata) Validate() error {
	if t.UpdatedAt != nil && t.UpdatedAt.Before(t.CreatedAt) {
		return fmt.Errorf("%w (created %s, updated %s)", ErrUpdatedBeforeCreated, t.CreatedAt, t.UpdatedAt)
	}
	if t.ArchivedAt != nil && t.ArchivedAt.Before(t.CreatedAt) {
		return fmt.Errorf("%w (created %s, archived %s)", ErrArchivedBeforeCreated, t.CreatedAt, t.ArchivedAt)
	}
	if t.UpdatedAt != nil && t.ArchivedAt != nil && t.ArchivedAt.Before(*t.UpdatedAt) {
		return fmt.Errorf("%w (updated %s, archived %s)", ErrArchivedBeforeUpdated, t.UpdatedAt, t.ArchivedAt)
	}
	return nil
}

// MarkUpdated records an update instant, which may not move backwards.
func (t *TemporalMetadata) MarkUpdated(at time.Time) error {
	if at.Before(t.CreatedAt) {
		return fmt.Errorf("%w (created %s, updated %s)", ErrUpdatedBeforeCreated, t.CreatedAt, at)
	}
	if t.UpdatedAt != nil && at.Before(*t.UpdatedAt) {
		return fmt.Errorf("%w (previous update %s, updated %s)", ErrUpdatedBeforeCreated, t.UpdatedAt, at)
	}
	t.UpdatedAt = &at
	return nil
}

// MarkArchived records the archive instant.
func (t *TemporalMetadata) MarkArchived(at time.Time) error {
	if at.Before(t.CreatedAt) {
		return fmt.Errorf("%w (created %s, archived %s)", ErrArchivedBeforeCreated, t.CreatedAt, at)
	}
	if t.UpdatedAt != nil && at.Before(*t.UpdatedAt) {
		return fmt.Errorf("%w (updated %s, archived %s)", ErrArchivedBeforeUpdated, t.UpdatedAt, at)
	}
	t.ArchivedAt = &at
	return nil
}

func (t TemporalMetadata) IsArchived() bool {
	return t.ArchivedAt != nil
}

// LastModified is updated_at when present, otherwise created_at.
func (t TemporalMetadata) LastModified() time.Time {
	if t.UpdatedAt != nil {
		return *t.UpdatedAt
	}
	return t.CreatedAt
}
