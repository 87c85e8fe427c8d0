// Package store persists memories as vector-plus-payload points and
// translates the backend-agnostic query model into each engine's native
// filtering. Both backends must produce the same ids for the same query
// over the same data.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/domain"
)

var (
	// ErrNotFound is returned when a point lookup matches nothing. It is
	// an expected outcome, not a failure.
	ErrNotFound = errors.New("memory not found")

	// ErrVectorRequired is returned when Search is called without a query
	// vector.
	ErrVectorRequired = errors.New("search requires a query vector")
)

// Record is one point to persist: the memory payload plus its embedding.
type Record struct {
	Memory *domain.Memory
	Vector []float32
}

// SearchResult pairs a memory with its cosine similarity to the query
// vector. Results are ordered most similar first.
type SearchResult struct {
	Memory *domain.Memory
	Score  float32
}

// VectorStore is the storage contract. Implementations: PgVectorStore
// (relational, server-side filtering) and ChromemStore (embedded,
// in-process filtering).
type VectorStore interface {
	// CreateCollection provisions the backing collection. Idempotent.
	CreateCollection(ctx context.Context) error

	// Insert upserts records keyed by memory id.
	Insert(ctx context.Context, records []Record) error

	// Get returns the memory with the given id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.Memory, error)

	// Update replaces a memory's payload. A nil vector keeps the stored
	// embedding. Returns ErrNotFound when the id is absent.
	Update(ctx context.Context, memory *domain.Memory, vector []float32) error

	// Delete removes the point, or returns ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns memories matching the query's filters, newest first.
	// The query vector is ignored.
	List(ctx context.Context, query domain.Query) ([]*domain.Memory, error)

	// Search returns up to query.Limit filtered memories ordered by
	// similarity to query.Vector, or ErrVectorRequired without one.
	Search(ctx context.Context, query domain.Query) ([]SearchResult, error)

	// Reset drops all points but keeps the collection.
	Reset(ctx context.Context) error

	// DeleteCollection removes the collection entirely.
	DeleteCollection(ctx context.Context) error
}

// MatchesQuery applies a query's filters to a memory in-process. The
// embedded backend filters with this; the relational backend translates
// the same predicates to SQL, and the two must agree.
func MatchesQuery(m *domain.Memory, q domain.Query) bool {
	if q.Context.HasUser() && m.Context.UserID != q.Context.UserID {
		return false
	}
	if q.Context.HasAgent() && m.Context.AgentID != q.Context.AgentID {
		return false
	}
	if q.Context.HasRun() && m.Context.RunID != q.Context.RunID {
		return false
	}
	if !q.IncludeArchived && m.IsArchived() {
		return false
	}

	if len(q.Kinds) > 0 {
		found := false
		for _, k := range q.Kinds {
			if m.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(q.Tags) > 0 {
		found := false
		for _, want := range q.Tags {
			for _, have := range m.Content.Tags {
				if want == have {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}

	if q.Temporal != nil {
		t := q.Temporal
		if t.CreatedAfter != nil && !m.Temporal.CreatedAt.After(*t.CreatedAfter) {
			return false
		}
		if t.CreatedBefore != nil && !m.Temporal.CreatedAt.Before(*t.CreatedBefore) {
			return false
		}
		if t.UpdatedAfter != nil && (m.Temporal.UpdatedAt == nil || !m.Temporal.UpdatedAt.After(*t.UpdatedAfter)) {
			return false
		}
		if t.UpdatedBefore != nil && (m.Temporal.UpdatedAt == nil || !m.Temporal.UpdatedAt.Before(*t.UpdatedBefore)) {
			return false
		}
	}

	if q.Signals != nil {
		s := q.Signals
		if s.MinCertainty != nil && m.Signals.Certainty.Value() <= *s.MinCertainty {
			return false
		}
		if s.MinSalience != nil && m.Signals.Salience.Value() <= *s.MinSalience {
			return false
		}
	}

	return true
}
