// Package provider abstracts remote model APIs behind capability interfaces.
// A backend implements whichever capabilities its vendor offers; model
// handles bind a backend to a model id and route every call through the
// retry envelope.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/retry"
)

// Backend is a configured vendor client. Capabilities are discovered by
// interface assertion; a missing capability surfaces as
// *UnsupportedCapabilityError at call time, never at construction.
type Backend interface {
	Name() string
}

// TextGenerator produces free-form text.
type TextGenerator interface {
	GenerateText(ctx context.Context, model string, prompt Prompt) (string, error)
}

// ObjectGenerator produces raw JSON text conforming to a schema. How the
// schema is enforced is backend-specific: in-prompt instruction or a forced
// tool call.
type ObjectGenerator interface {
	GenerateRawObject(ctx context.Context, model string, prompt Prompt, schema map[string]any) (string, error)
}

// BatchEmbedder embeds many inputs in one call, preserving input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// SingleEmbedder embeds one input per call. Used with the bounded fan-out
// in EmbeddingModel when a backend lacks batching.
type SingleEmbedder interface {
	EmbedOne(ctx context.Context, model string, input string) ([]float32, error)
}

// RankedIndex is one rerank result: a position into the submitted document
// list plus its relevance score.
type RankedIndex struct {
	Index int
	Score float64
}

// DocumentReranker scores documents against a query, best first.
type DocumentReranker interface {
	RerankDocuments(ctx context.Context, model, query string, documents []string, topN int) ([]RankedIndex, error)
}

// LanguageModel binds a text-capable backend to a model id.
type LanguageModel struct {
	backend Backend
	model   string
	policy  retry.Policy
}

func NewLanguageModel(backend Backend, model string, policy retry.Policy) LanguageModel {
	return LanguageModel{backend: backend, model: model, policy: policy}
}

func (m LanguageModel) Model() string { return m.model }

// GenerateText runs a text completion under the retry envelope.
func (m LanguageModel) GenerateText(ctx context.Context, prompt Prompt) (string, error) {
	gen, ok := m.backend.(TextGenerator)
	if !ok {
		return "", &UnsupportedCapabilityError{Provider: m.backend.Name(), Capability: "text generation"}
	}
	return retry.Do(ctx, m.withClassifier(), func(ctx context.Context) (string, error) {
		text, err := gen.GenerateText(ctx, m.model, prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	})
}

// GenerateObject asks the model for a T-shaped object. The schema is derived
// from T by reflection; fenced or malformed output is a retryable
// deserialization failure since the next attempt may parse cleanly.
func GenerateObject[T any](ctx context.Context, m LanguageModel, prompt Prompt) (T, error) {
	var zero T
	gen, ok := m.backend.(ObjectGenerator)
	if !ok {
		return zero, &UnsupportedCapabilityError{Provider: m.backend.Name(), Capability: "structured output"}
	}

	schema := SchemaFor(zero)
	return retry.Do(ctx, m.withClassifier(), func(ctx context.Context) (T, error) {
		raw, err := gen.GenerateRawObject(ctx, m.model, prompt, schema)
		if err != nil {
			return zero, err
		}
		cleaned := StripFences(raw)
		if cleaned == "" {
			return zero, ErrEmptyResponse
		}
		var value T
		if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
			return zero, &DeserializationError{Raw: cleaned, Err: err}
		}
		return value, nil
	})
}

func (m LanguageModel) withClassifier() retry.Policy {
	p := m.policy
	if p.Retryable == nil {
		p.Retryable = IsRetryable
	}
	return p
}

// StripFences removes a markdown code fence wrapper if present. Models often
// wrap JSON output in ```json fences despite instructions.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```yaml")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// objectInstruction is appended to the system text by backends that enforce
// schemas in-prompt rather than through a tool call.
func objectInstruction(schema map[string]any) (string, error) {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	return fmt.Sprintf(
		"Respond with a single JSON object matching this JSON schema, with no surrounding prose or markdown fences:\n%s",
		encoded,
	), nil
}
