package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/domain"
)

func TestTranslateQueryContextAndLifecycle(t *testing.T) {
	q := domain.Query{
		Context: domain.MemoryContext{UserID: "alice"},
		Limit:   10,
	}

	where, args := translateQuery(q, 0)

	assert.Equal(t, `payload->'context'->>'user_id' = $1 AND payload->>'lifecycle' = $2`, where)
	require.Len(t, args, 2)
	assert.Equal(t, "alice", args[0])
	assert.Equal(t, "Active", args[1])
}

func TestTranslateQueryIncludeArchivedDropsLifecycle(t *testing.T) {
	q := domain.Query{
		Context:         domain.MemoryContext{UserID: "alice"},
		IncludeArchived: true,
		Limit:           10,
	}

	where, _ := translateQuery(q, 0)
	assert.NotContains(t, where, "lifecycle")
}

func TestTranslateQueryKindsAndTags(t *testing.T) {
	q := domain.Query{
		Context: domain.MemoryContext{UserID: "alice"},
		Kinds:   []domain.MemoryKind{domain.KindSemantic, domain.KindEpisodic},
		Tags:    []string{"food", "travel"},
		Limit:   10,
	}

	where, args := translateQuery(q, 0)

	assert.Contains(t, where, `payload->>'kind' = ANY($3::text[])`)
	assert.Contains(t, where, `payload->'content'->'tags' ?| $4::text[]`)
	require.Len(t, args, 4)
	assert.Equal(t, []string{"Semantic", "Episodic"}, args[2])
	assert.Equal(t, []string{"food", "travel"}, args[3])
}

func TestTranslateQueryTemporalAndSignals(t *testing.T) {
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	minCertainty := float32(0.5)

	q := domain.Query{
		Context:  domain.MemoryContext{UserID: "alice"},
		Temporal: &domain.TemporalFilter{CreatedAfter: &after},
		Signals:  &domain.SignalFilter{MinCertainty: &minCertainty},
		Limit:    10,
	}

	where, args := translateQuery(q, 0)

	assert.Contains(t, where, `(payload->'temporal'->>'created_at')::timestamptz > $3`)
	assert.Contains(t, where, `(payload->'signals'->>'certainty')::float8 > $4`)
	require.Len(t, args, 4)
	assert.Equal(t, minCertainty, args[3])
}

func TestTranslateQueryEmptyFilters(t *testing.T) {
	q := domain.Query{IncludeArchived: true, Limit: 5}
	where, args := translateQuery(q, 0)
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, args)
}
