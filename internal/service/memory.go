// Package service orchestrates the memory lifecycle: annotation, embedding,
// storage, and the retrieval pipeline. All collaborators are injected at
// construction; the service holds no global state.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mnemo-ai/mnemo/internal/annotate"
	"github.com/mnemo-ai/mnemo/internal/domain"
	"github.com/mnemo-ai/mnemo/internal/provider"
	"github.com/mnemo-ai/mnemo/internal/store"
)

var (
	// ErrEmptyRawContent is returned when create is called with blank
	// content.
	ErrEmptyRawContent = errors.New("raw content cannot be empty or whitespace")

	// ErrNoFieldsToUpdate is returned when an update patch changes
	// nothing.
	ErrNoFieldsToUpdate = errors.New("update requires at least one field")
)

// Signal defaults for memories created from raw content. The annotation
// model classifies kind and content but does not score strength.
var (
	defaultCertainty = domain.Credence(1.0)
	defaultSalience  = domain.Credence(0.5)
)

// annotationPromptName identifies the extraction prompt in provenance
// records.
const annotationPromptName = "memory-annotation"

// MemoryService is the single entry point for memory operations.
type MemoryService struct {
	store     store.VectorStore
	annotator annotate.Annotator
	embedder  provider.EmbeddingModel
	reranker  provider.RerankingModel
	logger    *zap.Logger
}

func NewMemoryService(vs store.VectorStore, an annotate.Annotator, em provider.EmbeddingModel, rm provider.RerankingModel, logger *zap.Logger) *MemoryService {
	return &MemoryService{
		store:     vs,
		annotator: an,
		embedder:  em,
		reranker:  rm,
		logger:    logger,
	}
}

// CreateRequest carries raw conversation content plus ownership context.
// Signals and Provenance are optional; absent signals get the extraction
// defaults, absent provenance records the annotating model.
type CreateRequest struct {
	Context    domain.MemoryContext
	RawContent string
	Signals    *domain.MemorySignals
	Provenance *domain.Provenance
}

// Create annotates raw content, embeds the resulting summary, and persists
// the memory. Nothing is written before the final insert, so a failure at
// any step leaves no partial state and the whole request is safe to retry.
func (s *MemoryService) Create(ctx context.Context, req CreateRequest) (*domain.Memory, error) {
	if err := req.Context.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.RawContent) == "" {
		return nil, ErrEmptyRawContent
	}

	ann, err := s.annotator.Annotate(ctx, req.RawContent)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}

	content, err := domain.NewContent(ann.Summary, ann.Tags)
	if err != nil {
		return nil, fmt.Errorf("annotated content: %w", err)
	}

	signals := domain.MemorySignals{Certainty: defaultCertainty, Salience: defaultSalience}
	if req.Signals != nil {
		signals = *req.Signals
	}

	prov := domain.Provenance{
		Origin: domain.OriginUser,
		Method: domain.ExtractedMethod(ann.Model, annotationPromptName),
	}
	if req.Provenance != nil {
		prov = *req.Provenance
	}

	m, err := domain.NewMemory(req.Context, ann.Kind, content, signals, prov, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.EmbedOne(ctx, m.Summary())
	if err != nil {
		return nil, fmt.Errorf("embed summary: %w", err)
	}

	if err := s.store.Insert(ctx, []store.Record{{Memory: m, Vector: vector}}); err != nil {
		return nil, fmt.Errorf("persist memory: %w", err)
	}

	s.logger.Info("memory created",
		zap.String("id", m.ID.String()),
		zap.String("kind", string(m.Kind)),
	)
	return m, nil
}

// Get returns the memory with the given id, or store.ErrNotFound.
func (s *MemoryService) Get(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	return s.store.Get(ctx, id)
}

// UpdatePatch describes a partial update. Nil fields keep the stored value;
// Tags replaces the whole tag set when non-nil.
type UpdatePatch struct {
	Summary *string
	Tags    []string
	Signals *domain.MemorySignals
	Archive bool
}

func (p UpdatePatch) empty() bool {
	return p.Summary == nil && p.Tags == nil && p.Signals == nil && !p.Archive
}

// Update applies a patch to a stored memory. A changed summary re-embeds
// so search stays consistent with the payload.
func (s *MemoryService) Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*domain.Memory, error) {
	if patch.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	m, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	summaryChanged := false

	if patch.Summary != nil || patch.Tags != nil {
		summary := m.Content.Summary
		if patch.Summary != nil {
			summaryChanged = *patch.Summary != m.Content.Summary
			summary = *patch.Summary
		}
		tags := m.Content.Tags
		if patch.Tags != nil {
			tags = patch.Tags
		}
		content, err := domain.NewContent(summary, tags)
		if err != nil {
			return nil, err
		}
		m.Content = content
	}

	if patch.Signals != nil {
		m.Signals = *patch.Signals
	}

	if err := m.MarkUpdated(now); err != nil {
		return nil, err
	}
	if patch.Archive {
		if err := m.Archive(now); err != nil {
			return nil, err
		}
	}

	var vector []float32
	if summaryChanged {
		vector, err = s.embedder.EmbedOne(ctx, m.Summary())
		if err != nil {
			return nil, fmt.Errorf("re-embed summary: %w", err)
		}
	}

	if err := s.store.Update(ctx, m, vector); err != nil {
		return nil, err
	}

	s.logger.Info("memory updated",
		zap.String("id", m.ID.String()),
		zap.Bool("re_embedded", summaryChanged),
		zap.Bool("archived", patch.Archive),
	)
	return m, nil
}

// Delete removes a memory, or returns store.ErrNotFound.
func (s *MemoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("memory deleted", zap.String("id", id.String()))
	return nil
}

// List returns memories matching the query's filters, newest first.
func (s *MemoryService) List(ctx context.Context, query domain.Query) ([]*domain.Memory, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, query)
}
