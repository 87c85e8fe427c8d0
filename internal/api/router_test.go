package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mnemo-ai/mnemo/internal/annotate"
	"github.com/mnemo-ai/mnemo/internal/domain"
	"github.com/mnemo-ai/mnemo/internal/provider"
	"github.com/mnemo-ai/mnemo/internal/retry"
	"github.com/mnemo-ai/mnemo/internal/service"
	"github.com/mnemo-ai/mnemo/internal/store"
)

type stubBackend struct{}

func (stubBackend) Name() string { return "stub" }

func (stubBackend) EmbedBatch(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (stubBackend) RerankDocuments(ctx context.Context, model, query string, documents []string, topN int) ([]provider.RankedIndex, error) {
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

// bareBackend has no embedding or rerank capability, so retrieval paths
// surface *UnsupportedCapabilityError.
type bareBackend struct{}

func (bareBackend) Name() string { return "bare" }

type echoAnnotator struct{}

func (echoAnnotator) Annotate(ctx context.Context, rawContent string) (annotate.Annotation, error) {
	return annotate.Annotation{
		Summary: strings.TrimSpace(rawContent),
		Tags:    []string{"test"},
		Kind:    domain.KindSemantic,
		Model:   "annotate-model",
	}, nil
}

func testPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.InitialBackoff = 0
	p.AttemptTimeout = 0
	return p
}

func newTestApp(t *testing.T, backend provider.Backend, opts Options) *App {
	t.Helper()

	vs := store.NewChromemStore("api_test")
	require.NoError(t, vs.CreateCollection(context.Background()))

	svc := service.NewMemoryService(
		vs,
		echoAnnotator{},
		provider.NewEmbeddingModel(backend, "embed-model", testPolicy(), 8),
		provider.NewRerankingModel(backend, "rerank-model", testPolicy()),
		zap.NewNop(),
	)
	return NewApp(svc, zap.NewNop(), opts)
}

func doJSON(t *testing.T, app *App, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func decodeMemory(t *testing.T, rec *httptest.ResponseRecorder) domain.Memory {
	t.Helper()

	var m domain.Memory
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&m))
	return m
}

func TestCreateAndGetMemory(t *testing.T) {
	app := newTestApp(t, stubBackend{}, Options{})

	rec := doJSON(t, app, http.MethodPost, "/v1/memories", map[string]any{
		"user_id": "alice",
		"content": "user: I drink green tea every morning",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	created := decodeMemory(t, rec)
	assert.Equal(t, "alice", created.Context.UserID)
	assert.Equal(t, "user: I drink green tea every morning", created.Content.Summary)
	assert.True(t, created.IsActive())

	rec = doJSON(t, app, http.MethodGet, "/v1/memories/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeMemory(t, rec)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateValidation(t *testing.T) {
	app := newTestApp(t, stubBackend{}, Options{})

	rec := doJSON(t, app, http.MethodPost, "/v1/memories", map[string]any{
		"user_id": "alice",
		"content": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, app, http.MethodPost, "/v1/memories", map[string]any{
		"content": "no owner",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, app, http.MethodPost, "/v1/memories", map[string]any{
		"user_id":   "alice",
		"content":   "partial signals",
		"certainty": 0.9,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMemoryErrors(t *testing.T) {
	app := newTestApp(t, stubBackend{}, Options{})

	rec := doJSON(t, app, http.MethodGet, "/v1/memories/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/v1/memories/4f9d6a6e-40ce-4f6a-9c2f-0d6a7a4f2b11", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAndDeleteMemory(t *testing.T) {
	app := newTestApp(t, stubBackend{}, Options{})

	rec := doJSON(t, app, http.MethodPost, "/v1/memories", map[string]any{
		"user_id": "alice",
		"content": "user: deploys go out on Tuesdays",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeMemory(t, rec)

	rec = doJSON(t, app, http.MethodPatch, "/v1/memories/"+created.ID.String(), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, app, http.MethodPatch, "/v1/memories/"+created.ID.String(), map[string]any{
		"archive": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeMemory(t, rec)
	assert.True(t, updated.IsArchived())

	rec = doJSON(t, app, http.MethodDelete, "/v1/memories/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/v1/memories/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMemories(t *testing.T) {
	app := newTestApp(t, stubBackend{}, Options{})

	for i := 0; i < 3; i++ {
		rec := doJSON(t, app, http.MethodPost, "/v1/memories", map[string]any{
			"user_id": "alice",
			"content": fmt.Sprintf("note number %d", i),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, app, http.MethodGet, "/v1/memories?user_id=alice&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Memories []domain.Memory `json:"memories"`
		Count    int             `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Memories, 2)

	rec = doJSON(t, app, http.MethodGet, "/v1/memories?user_id=alice&limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/v1/memories?user_id=alice&kinds=mythical", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/v1/memories?limit=5", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchMemories(t *testing.T) {
	app := newTestApp(t, stubBackend{}, Options{})

	rec := doJSON(t, app, http.MethodPost, "/v1/memories", map[string]any{
		"user_id": "alice",
		"content": "user: I drink green tea every morning",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, app, http.MethodPost, "/v1/memories/search", map[string]any{
		"user_id": "alice",
		"query":   "what does the user drink",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Memories []domain.Memory `json:"memories"`
		Query    string          `json:"query"`
		Count    int             `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "what does the user drink", resp.Query)

	rec = doJSON(t, app, http.MethodPost, "/v1/memories/search", map[string]any{
		"user_id": "alice",
		"query":   "what does the user drink",
		"refine":  true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, app, http.MethodPost, "/v1/memories/search", map[string]any{
		"user_id": "alice",
		"query":   "  ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviderFailureMapsToBadGateway(t *testing.T) {
	app := newTestApp(t, bareBackend{}, Options{})

	rec := doJSON(t, app, http.MethodPost, "/v1/memories/search", map[string]any{
		"user_id": "alice",
		"query":   "anything",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, stubBackend{}, Options{})

	rec := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := newTestApp(t, stubBackend{}, Options{
		Ping: func(ctx context.Context) error { return errors.New("backend down") },
	})
	rec = doJSON(t, failing, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitRejectsBurst(t *testing.T) {
	app := newTestApp(t, stubBackend{}, Options{RateLimitRPS: 1, RateLimitBurst: 1})

	rec := doJSON(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
