package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mnemo-ai/mnemo/internal/domain"
	"github.com/mnemo-ai/mnemo/internal/refine"
)

// ErrSearchPool marks a concurrency-infrastructure failure in the fan-out
// pool, as opposed to a failing search itself.
var ErrSearchPool = errors.New("search pool failure")

const (
	// fanOutPermits bounds concurrent sub-query searches per request.
	fanOutPermits = 8
	// subQueryLimit is the per-sub-query candidate cap in multi-search.
	subQueryLimit = 5
	// singleSearchLimit is the candidate cap for single-query search.
	singleSearchLimit = 20
	// rerankTop is the final result count after reranking.
	rerankTop = 6
)

// Search embeds the query once, retrieves up to twenty candidates scoped to
// the context, and reranks them down to the top six.
func (s *MemoryService) Search(ctx context.Context, memCtx domain.MemoryContext, query string) ([]*domain.Memory, error) {
	if err := memCtx.Validate(); err != nil {
		return nil, err
	}

	vector, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.store.Search(ctx, domain.Query{
		Context: memCtx,
		Vector:  vector,
		Limit:   singleSearchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	pool := make([]*domain.Memory, len(results))
	for i, r := range results {
		pool[i] = r.Memory
	}
	return s.rerankPool(ctx, query, pool)
}

// MultiSearch decomposes the query into sub-queries, embeds them in one
// batched call, fans the searches out under a permit bound, and reranks the
// merged candidate pool against the original query. Duplicate candidates
// across sub-queries are kept; the rerank decides what survives.
func (s *MemoryService) MultiSearch(ctx context.Context, memCtx domain.MemoryContext, query string) ([]*domain.Memory, error) {
	if err := memCtx.Validate(); err != nil {
		return nil, err
	}

	subQueries := refine.Segment(query)
	s.logger.Debug("query segmented",
		zap.String("query", query),
		zap.Int("sub_queries", len(subQueries)),
	)

	vectors, err := s.embedder.Embed(ctx, subQueries)
	if err != nil {
		return nil, fmt.Errorf("embed sub-queries: %w", err)
	}

	var (
		mu   sync.Mutex
		pool []*domain.Memory
	)
	sem := semaphore.NewWeighted(fanOutPermits)
	g, gctx := errgroup.WithContext(ctx)

	for _, vector := range vectors {
		vector := vector
		if err := sem.Acquire(gctx, 1); err != nil {
			// The group context is only cancelled once a search has
			// already failed; surface that instead of the permit error.
			if searchErr := g.Wait(); searchErr != nil {
				return nil, fmt.Errorf("sub-query search: %w", searchErr)
			}
			return nil, fmt.Errorf("%w: %v", ErrSearchPool, err)
		}
		g.Go(func() error {
			defer sem.Release(1)
			results, err := s.store.Search(gctx, domain.Query{
				Context: memCtx,
				Vector:  vector,
				Limit:   subQueryLimit,
			})
			if err != nil {
				return err
			}
			// Appended in completion order; ordering comes from the
			// rerank, not from here.
			mu.Lock()
			for _, r := range results {
				pool = append(pool, r.Memory)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sub-query search: %w", err)
	}

	s.logger.Debug("fan-out complete", zap.Int("candidates", len(pool)))
	return s.rerankPool(ctx, query, pool)
}

// rerankPool scores candidate summaries against the query and materializes
// the final order by indexed lookup into the untouched pool.
func (s *MemoryService) rerankPool(ctx context.Context, query string, pool []*domain.Memory) ([]*domain.Memory, error) {
	if len(pool) == 0 {
		return nil, nil
	}

	summaries := make([]string, len(pool))
	for i, m := range pool {
		summaries[i] = m.Summary()
	}

	topN := rerankTop
	if len(pool) < topN {
		topN = len(pool)
	}

	ranked, err := s.reranker.Rerank(ctx, query, summaries, topN)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	out := make([]*domain.Memory, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, pool[r.Index])
	}
	return out, nil
}
