package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidLimit is returned for a zero query limit.
	ErrInvalidLimit = errors.New("limit must be greater than zero")
	// ErrEmptyQueryVector is returned when a query carries a zero-length vector.
	ErrEmptyQueryVector = errors.New("query vector cannot be empty")
	// ErrInvalidSignalFilter is returned for a signal minimum outside [0, 1].
	ErrInvalidSignalFilter = errors.New("signal minimum must be in range [0.0, 1.0]")
	// ErrInvalidDateRange is returned when a range start falls after its end.
	ErrInvalidDateRange = errors.New("date range invalid: start is after end")
)

// TemporalFilter restricts memories by creation and update instants. Each
// bound is optional; both bounds are exclusive, like the signal minimums.
type TemporalFilter struct {
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
	UpdatedAfter  *time.Time `json:"updated_after,omitempty"`
	UpdatedBefore *time.Time `json:"updated_before,omitempty"`
}

// NewTemporalFilter validates that each range's start precedes its end.
func NewTemporalFilter(createdAfter, createdBefore, updatedAfter, updatedBefore *time.Time) (*TemporalFilter, error) {
	f := &TemporalFilter{
		CreatedAfter:  createdAfter,
		CreatedBefore: createdBefore,
		UpdatedAfter:  updatedAfter,
		UpdatedBefore: updatedBefore,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *TemporalFilter) Validate() error {
	if f.CreatedAfter != nil && f.CreatedBefore != nil && f.CreatedAfter.After(*f.CreatedBefore) {
		return fmt.Errorf("%w (created %s..%s)", ErrInvalidDateRange, f.CreatedAfter, f.CreatedBefore)
	}
	if f.UpdatedAfter != nil && f.UpdatedBefore != nil && f.UpdatedAfter.After(*f.UpdatedBefore) {
		return fmt.Errorf("%w (updated %s..%s)", ErrInvalidDateRange, f.UpdatedAfter, f.UpdatedBefore)
	}
	return nil
}

func (f *TemporalFilter) HasCreatedRange() bool {
	return f.CreatedAfter != nil || f.CreatedBefore != nil
}

func (f *TemporalFilter) HasUpdatedRange() bool {
	return f.UpdatedAfter != nil || f.UpdatedBefore != nil
}

// SignalFilter restricts memories to those strictly above the given signal
// minimums.
type SignalFilter struct {
	MinCertainty *float32 `json:"min_certainty,omitempty"`
	MinSalience  *float32 `json:"min_salience,omitempty"`
}

// NewSignalFilter validates that each minimum lies in the unit interval.
func NewSignalFilter(minCertainty, minSalience *float32) (*SignalFilter, error) {
	f := &SignalFilter{MinCertainty: minCertainty, MinSalience: minSalience}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *SignalFilter) Validate() error {
	if f.MinCertainty != nil && (*f.MinCertainty < 0 || *f.MinCertainty > 1) {
		return fmt.Errorf("%w: min_certainty %v", ErrInvalidSignalFilter, *f.MinCertainty)
	}
	if f.MinSalience != nil && (*f.MinSalience < 0 || *f.MinSalience > 1) {
		return fmt.Errorf("%w: min_salience %v", ErrInvalidSignalFilter, *f.MinSalience)
	}
	return nil
}

func (f *SignalFilter) IsEmpty() bool {
	return f.MinCertainty == nil && f.MinSalience == nil
}

// Query is the backend-agnostic retrieval descriptor, built once per call and
// read-only afterwards. Tags have "any of" semantics; Kinds restrict to a set;
// the vector is required for similarity search and ignored by metadata scans.
type Query struct {
	Context         MemoryContext   `json:"context"`
	Vector          []float32       `json:"vector,omitempty"`
	Limit           uint32          `json:"limit"`
	IncludeArchived bool            `json:"include_archived"`
	Kinds           []MemoryKind    `json:"kinds,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	Temporal        *TemporalFilter `json:"temporal,omitempty"`
	Signals         *SignalFilter   `json:"signals,omitempty"`
}

// Validate checks the query before it touches a backend.
func (q Query) Validate() error {
	if err := q.Context.Validate(); err != nil {
		return err
	}
	if q.Limit == 0 {
		return ErrInvalidLimit
	}
	if q.Vector != nil && len(q.Vector) == 0 {
		return ErrEmptyQueryVector
	}
	if q.Signals != nil {
		if err := q.Signals.Validate(); err != nil {
			return err
		}
	}
	if q.Temporal != nil {
		if err := q.Temporal.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// QueryForUser is a convenience scan query scoped to one user.
func QueryForUser(userID string, limit uint32) Query {
	return Query{Context: MemoryContext{UserID: userID}, Limit: limit}
}
