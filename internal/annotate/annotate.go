// Package annotate turns raw conversation content into structured memory
// metadata: a summary, retrieval tags, and a memory kind.
package annotate

import (
	"context"
	"fmt"

	"github.com/mnemo-ai/mnemo/internal/domain"
	"github.com/mnemo-ai/mnemo/internal/provider"
)

// Annotation is what the create path needs before it can build a Memory.
// Model records which model produced it, for provenance.
type Annotation struct {
	Summary string
	Tags    []string
	Kind    domain.MemoryKind
	Model   string
}

// Annotator extracts an Annotation from raw content.
type Annotator interface {
	Annotate(ctx context.Context, rawContent string) (Annotation, error)
}

// llmAnnotated is the schema the model fills in.
type llmAnnotated struct {
	Summary string   `json:"summary" description:"Concise, information-dense summary of the key points"`
	Tags    []string `json:"tags" description:"3-7 lowercase keywords for categorization and retrieval"`
	Kind    string   `json:"kind" description:"One of: Semantic, Episodic, Procedural, Instruction, Relational, Working, Prospective"`
}

// LLMAnnotator produces annotations through a language model's structured
// output capability.
type LLMAnnotator struct {
	model provider.LanguageModel
}

func NewLLMAnnotator(model provider.LanguageModel) *LLMAnnotator {
	return &LLMAnnotator{model: model}
}

func (a *LLMAnnotator) Annotate(ctx context.Context, rawContent string) (Annotation, error) {
	out, err := provider.GenerateObject[llmAnnotated](ctx, a.model, provider.UserText(annotationPrompt, rawContent))
	if err != nil {
		return Annotation{}, fmt.Errorf("annotate content: %w", err)
	}

	kind, err := domain.ParseKind(out.Kind)
	if err != nil {
		return Annotation{}, fmt.Errorf("annotation kind: %w", err)
	}

	return Annotation{Summary: out.Summary, Tags: out.Tags, Kind: kind, Model: a.model.Model()}, nil
}
