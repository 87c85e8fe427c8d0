package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mnemo-ai/mnemo/internal/retry"
)

// DocumentFormat selects how structured documents are serialized before
// being sent to the reranking backend.
type DocumentFormat string

const (
	FormatJSON       DocumentFormat = "json"
	FormatJSONPretty DocumentFormat = "json-pretty"
	FormatYAML       DocumentFormat = "yaml"
)

// Ranked pairs a caller document with its position in the submitted list
// and the backend's relevance score. Results are ordered best first.
type Ranked[T any] struct {
	Document T
	Index    int
	Score    float64
}

// RerankingModel binds a rerank-capable backend to a model id.
type RerankingModel struct {
	backend Backend
	model   string
	policy  retry.Policy
}

func NewRerankingModel(backend Backend, model string, policy retry.Policy) RerankingModel {
	return RerankingModel{backend: backend, model: model, policy: policy}
}

func (m RerankingModel) Model() string { return m.model }

// Rerank scores plain-text documents against the query and returns up to
// topN results, best first, each mapped back onto the caller's list.
func (m RerankingModel) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Ranked[string], error) {
	return rerankSerialized(ctx, m, query, documents, documents, topN)
}

// RerankStructured serializes documents per format, reranks the rendered
// text, and maps scores back onto the original values. A document that
// cannot be serialized is a deterministic caller bug and is never retried.
func RerankStructured[T any](ctx context.Context, m RerankingModel, query string, documents []T, format DocumentFormat, topN int) ([]Ranked[T], error) {
	rendered := make([]string, len(documents))
	for i, doc := range documents {
		text, err := serializeDocument(doc, format)
		if err != nil {
			return nil, fmt.Errorf("serialize document %d for rerank: %w", i, err)
		}
		rendered[i] = text
	}
	return rerankSerialized(ctx, m, query, documents, rendered, topN)
}

func rerankSerialized[T any](ctx context.Context, m RerankingModel, query string, documents []T, rendered []string, topN int) ([]Ranked[T], error) {
	reranker, ok := m.backend.(DocumentReranker)
	if !ok {
		return nil, &UnsupportedCapabilityError{Provider: m.backend.Name(), Capability: "reranking"}
	}
	if len(documents) == 0 {
		return nil, nil
	}

	policy := m.policy
	if policy.Retryable == nil {
		policy.Retryable = IsRetryable
	}

	results, err := retry.Do(ctx, policy, func(ctx context.Context) ([]RankedIndex, error) {
		return reranker.RerankDocuments(ctx, m.model, query, rendered, topN)
	})
	if err != nil {
		return nil, err
	}

	// Index mapping happens outside the envelope: a backend pointing past
	// the candidate list is broken in a way another attempt won't fix.
	ranked := make([]Ranked[T], 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, &InvalidResponseError{
				Provider: m.backend.Name(),
				Reason:   fmt.Sprintf("rerank index %d outside document list of length %d", r.Index, len(documents)),
			}
		}
		ranked = append(ranked, Ranked[T]{Document: documents[r.Index], Index: r.Index, Score: r.Score})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}

func serializeDocument(doc any, format DocumentFormat) (string, error) {
	switch format {
	case FormatJSONPretty:
		b, err := json.MarshalIndent(doc, "", "  ")
		return string(b), err
	case FormatYAML:
		b, err := yaml.Marshal(doc)
		return string(b), err
	default:
		b, err := json.Marshal(doc)
		return string(b), err
	}
}
