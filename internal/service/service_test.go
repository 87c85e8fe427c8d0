package service

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mnemo-ai/mnemo/internal/annotate"
	"github.com/mnemo-ai/mnemo/internal/domain"
	"github.com/mnemo-ai/mnemo/internal/provider"
	"github.com/mnemo-ai/mnemo/internal/retry"
	"github.com/mnemo-ai/mnemo/internal/store"
)

// tableEmbedder maps known inputs to fixed vectors so retrieval behaves
// deterministically in tests.
type tableEmbedder struct {
	vectors map[string][]float32
}

func (b *tableEmbedder) Name() string { return "stub-embed" }

func (b *tableEmbedder) EmbedBatch(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		if v, ok := b.vectors[input]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0.1, 0.1, 0.1}
		}
	}
	return out, nil
}

// lengthReranker scores each document by its length. Deterministic and
// order-independent, which is what the pipeline tests need.
type lengthReranker struct {
	lastDocs []string
}

func (b *lengthReranker) Name() string { return "stub-rerank" }

func (b *lengthReranker) RerankDocuments(ctx context.Context, model, query string, documents []string, topN int) ([]provider.RankedIndex, error) {
	b.lastDocs = documents
	ranked := make([]provider.RankedIndex, len(documents))
	for i, doc := range documents {
		ranked[i] = provider.RankedIndex{Index: i, Score: float64(len(doc))}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}

type stubAnnotator struct {
	annotation annotate.Annotation
	err        error
	lastRaw    string
}

func (a *stubAnnotator) Annotate(ctx context.Context, rawContent string) (annotate.Annotation, error) {
	a.lastRaw = rawContent
	if a.err != nil {
		return annotate.Annotation{}, a.err
	}
	return a.annotation, nil
}

func testPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.InitialBackoff = 0
	p.AttemptTimeout = 0
	return p
}

func newTestService(t *testing.T, embedder *tableEmbedder, reranker *lengthReranker, annotator *stubAnnotator) (*MemoryService, *store.ChromemStore) {
	t.Helper()

	vs := store.NewChromemStore("service_test")
	require.NoError(t, vs.CreateCollection(context.Background()))

	svc := NewMemoryService(
		vs,
		annotator,
		provider.NewEmbeddingModel(embedder, "embed-model", testPolicy(), 8),
		provider.NewRerankingModel(reranker, "rerank-model", testPolicy()),
		zap.NewNop(),
	)
	return svc, vs
}

func defaultAnnotator() *stubAnnotator {
	return &stubAnnotator{annotation: annotate.Annotation{
		Summary: "User prefers green tea over coffee",
		Tags:    []string{"tea", "preference"},
		Kind:    domain.KindInstruction,
		Model:   "annotate-model",
	}}
}

func TestCreatePersistsAnnotatedMemory(t *testing.T) {
	ctx := context.Background()
	embedder := &tableEmbedder{vectors: map[string][]float32{
		"User prefers green tea over coffee": {1, 0, 0},
	}}
	annotator := defaultAnnotator()
	svc, vs := newTestService(t, embedder, &lengthReranker{}, annotator)

	memCtx, err := domain.ContextForUser("alice")
	require.NoError(t, err)

	m, err := svc.Create(ctx, CreateRequest{Context: memCtx, RawContent: "user: green tea please, never coffee"})
	require.NoError(t, err)
	assert.Equal(t, "User prefers green tea over coffee", m.Content.Summary)
	assert.Equal(t, domain.KindInstruction, m.Kind)
	assert.Equal(t, domain.OriginUser, m.Provenance.Origin)
	assert.Equal(t, "annotate-model", m.Provenance.Method.Model)
	assert.Contains(t, annotator.lastRaw, "green tea please")

	stored, err := vs.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, stored.ID)
	assert.True(t, stored.IsActive())
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, &tableEmbedder{}, &lengthReranker{}, defaultAnnotator())
	memCtx, err := domain.ContextForUser("alice")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateRequest{RawContent: "something"})
	assert.ErrorIs(t, err, domain.ErrEmptyContext)

	_, err = svc.Create(context.Background(), CreateRequest{Context: memCtx, RawContent: "   "})
	assert.ErrorIs(t, err, ErrEmptyRawContent)
}

func TestCreateThenSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	embedder := &tableEmbedder{vectors: map[string][]float32{
		"User prefers green tea over coffee": {1, 0, 0},
		"tea preferences":                    {0.9, 0.1, 0},
	}}
	svc, _ := newTestService(t, embedder, &lengthReranker{}, defaultAnnotator())

	memCtx, err := domain.ContextForUser("alice")
	require.NoError(t, err)

	created, err := svc.Create(ctx, CreateRequest{Context: memCtx, RawContent: "user: green tea please"})
	require.NoError(t, err)

	found, err := svc.Search(ctx, memCtx, "tea preferences")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)
}

func TestSearchEmptyStoreReturnsNothing(t *testing.T) {
	svc, _ := newTestService(t, &tableEmbedder{}, &lengthReranker{}, defaultAnnotator())
	memCtx, err := domain.ContextForUser("alice")
	require.NoError(t, err)

	found, err := svc.Search(context.Background(), memCtx, "anything")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMultiSearchPipelineDeterministic(t *testing.T) {
	ctx := context.Background()
	embedder := &tableEmbedder{vectors: map[string][]float32{
		"User prefers green tea over coffee":    {1, 0, 0},
		"Weekend hikes in the hills near town":  {0, 1, 0},
		"Deploys happen on Tuesdays":            {0, 0, 1},
		"tea":                                   {0.95, 0.05, 0},
		"hike":                                  {0.05, 0.95, 0},
		"favorite tea and weekend hikes please": {0.5, 0.5, 0},
	}}
	reranker := &lengthReranker{}
	annotator := defaultAnnotator()
	svc, _ := newTestService(t, embedder, reranker, annotator)

	memCtx, err := domain.ContextForUser("alice")
	require.NoError(t, err)

	summaries := []string{
		"User prefers green tea over coffee",
		"Weekend hikes in the hills near town",
		"Deploys happen on Tuesdays",
	}
	for _, summary := range summaries {
		annotator.annotation.Summary = summary
		_, err := svc.Create(ctx, CreateRequest{Context: memCtx, RawContent: summary})
		require.NoError(t, err)
	}

	first, err := svc.MultiSearch(ctx, memCtx, "favorite tea and weekend hikes please")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Same request again: identical result order regardless of fan-out
	// completion order.
	second, err := svc.MultiSearch(ctx, memCtx, "favorite tea and weekend hikes please")
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	// The candidate pool crossed sub-queries without de-duplication, so
	// the reranker saw at least as many docs as distinct memories.
	assert.GreaterOrEqual(t, len(reranker.lastDocs), len(summaries))
}

func TestUpdateArchivesAndPatches(t *testing.T) {
	ctx := context.Background()
	embedder := &tableEmbedder{vectors: map[string][]float32{
		"User prefers green tea over coffee": {1, 0, 0},
		"User prefers oolong":                {0.8, 0.2, 0},
	}}
	svc, vs := newTestService(t, embedder, &lengthReranker{}, defaultAnnotator())

	memCtx, err := domain.ContextForUser("alice")
	require.NoError(t, err)
	m, err := svc.Create(ctx, CreateRequest{Context: memCtx, RawContent: "green tea"})
	require.NoError(t, err)

	newSummary := "User prefers oolong"
	updated, err := svc.Update(ctx, m.ID, UpdatePatch{Summary: &newSummary, Archive: true})
	require.NoError(t, err)
	assert.Equal(t, newSummary, updated.Content.Summary)
	assert.True(t, updated.IsArchived())

	stored, err := vs.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsArchived())
	assert.Equal(t, newSummary, stored.Content.Summary)
}

func TestUpdateValidation(t *testing.T) {
	svc, _ := newTestService(t, &tableEmbedder{}, &lengthReranker{}, defaultAnnotator())

	_, err := svc.Update(context.Background(), uuid.New(), UpdatePatch{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	summary := "anything"
	_, err = svc.Update(context.Background(), uuid.New(), UpdatePatch{Summary: &summary})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteMissingMemory(t *testing.T) {
	svc, _ := newTestService(t, &tableEmbedder{}, &lengthReranker{}, defaultAnnotator())
	assert.ErrorIs(t, svc.Delete(context.Background(), uuid.New()), store.ErrNotFound)
}

func TestListValidatesQuery(t *testing.T) {
	svc, _ := newTestService(t, &tableEmbedder{}, &lengthReranker{}, defaultAnnotator())

	_, err := svc.List(context.Background(), domain.Query{Limit: 0})
	require.Error(t, err)
}

func TestListScopedToContext(t *testing.T) {
	ctx := context.Background()
	embedder := &tableEmbedder{vectors: map[string][]float32{
		"User prefers green tea over coffee": {1, 0, 0},
	}}
	svc, _ := newTestService(t, embedder, &lengthReranker{}, defaultAnnotator())

	alice, err := domain.ContextForUser("alice")
	require.NoError(t, err)
	bob, err := domain.ContextForUser("bob")
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateRequest{Context: alice, RawContent: "green tea"})
	require.NoError(t, err)

	mine, err := svc.List(ctx, domain.Query{Context: alice, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := svc.List(ctx, domain.Query{Context: bob, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
