package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/domain"
)

func TestMatchesQuerySignalThresholdsAreStrict(t *testing.T) {
	m := buildMemory(t, "alice", "anything", domain.KindSemantic, nil, time.Now().UTC())
	// certainty is 0.9, salience 0.6

	exactly := float32(0.9)
	below := float32(0.5)

	q := domain.Query{Context: domain.MemoryContext{UserID: "alice"}, Limit: 5}

	q.Signals = &domain.SignalFilter{MinCertainty: &below}
	assert.True(t, MatchesQuery(m, q))

	q.Signals = &domain.SignalFilter{MinCertainty: &exactly}
	assert.False(t, MatchesQuery(m, q), "threshold equal to the value must exclude")
}

func TestMatchesQueryUpdatedFilterSkipsNeverUpdated(t *testing.T) {
	now := time.Now().UTC()
	m := buildMemory(t, "alice", "anything", domain.KindSemantic, nil, now)

	after := now.Add(-time.Hour)
	q := domain.Query{
		Context:  domain.MemoryContext{UserID: "alice"},
		Temporal: &domain.TemporalFilter{UpdatedAfter: &after},
		Limit:    5,
	}
	assert.False(t, MatchesQuery(m, q), "memory without updated_at cannot match an updated range")

	require.NoError(t, m.MarkUpdated(now.Add(time.Minute)))
	assert.True(t, MatchesQuery(m, q))
}

func TestMatchesQueryContextScoping(t *testing.T) {
	m := buildMemory(t, "alice", "anything", domain.KindSemantic, nil, time.Now().UTC())

	assert.True(t, MatchesQuery(m, domain.Query{Context: domain.MemoryContext{UserID: "alice"}, Limit: 5}))
	assert.False(t, MatchesQuery(m, domain.Query{Context: domain.MemoryContext{UserID: "bob"}, Limit: 5}))
	assert.False(t, MatchesQuery(m, domain.Query{Context: domain.MemoryContext{UserID: "alice", AgentID: "helper"}, Limit: 5}))
}

func TestMatchesQueryTemporalBoundsAreStrict(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := buildMemory(t, "alice", "anything", domain.KindSemantic, nil, created)

	q := domain.Query{Context: domain.MemoryContext{UserID: "alice"}, Limit: 5}

	q.Temporal = &domain.TemporalFilter{CreatedAfter: &created}
	assert.False(t, MatchesQuery(m, q), "bound equal to created_at must exclude")

	justBefore := created.Add(-time.Second)
	q.Temporal = &domain.TemporalFilter{CreatedAfter: &justBefore}
	assert.True(t, MatchesQuery(m, q))

	q.Temporal = &domain.TemporalFilter{CreatedBefore: &created}
	assert.False(t, MatchesQuery(m, q), "bound equal to created_at must exclude")

	justAfter := created.Add(time.Second)
	q.Temporal = &domain.TemporalFilter{CreatedBefore: &justAfter}
	assert.True(t, MatchesQuery(m, q))

	updated := created.Add(time.Hour)
	require.NoError(t, m.MarkUpdated(updated))
	q.Temporal = &domain.TemporalFilter{UpdatedAfter: &updated}
	assert.False(t, MatchesQuery(m, q), "bound equal to updated_at must exclude")
}
