package provider

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mnemo-ai/mnemo/internal/retry"
)

// ErrEmptyEmbedInput is returned when Embed is called with no inputs.
var ErrEmptyEmbedInput = errors.New("embedding requires at least one input")

// DefaultEmbedParallels bounds concurrent single-input embedding calls when
// the backend lacks batching.
const DefaultEmbedParallels = 1000

// EmbeddingModel binds an embedding-capable backend to a model id.
type EmbeddingModel struct {
	backend      Backend
	model        string
	policy       retry.Policy
	maxParallels int64
}

func NewEmbeddingModel(backend Backend, model string, policy retry.Policy, maxParallels int64) EmbeddingModel {
	if maxParallels < 1 {
		maxParallels = DefaultEmbedParallels
	}
	return EmbeddingModel{backend: backend, model: model, policy: policy, maxParallels: maxParallels}
}

func (m EmbeddingModel) Model() string { return m.model }

// Embed returns one vector per input, in input order. A batching backend
// gets a single retried call; otherwise each input is embedded concurrently
// under the parallelism bound, each call retried independently.
func (m EmbeddingModel) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyEmbedInput
	}

	policy := m.withClassifier()

	if batch, ok := m.backend.(BatchEmbedder); ok {
		return retry.Do(ctx, policy, func(ctx context.Context) ([][]float32, error) {
			vectors, err := batch.EmbedBatch(ctx, m.model, inputs)
			if err != nil {
				return nil, err
			}
			if len(vectors) != len(inputs) {
				return nil, &InvalidResponseError{
					Provider: m.backend.Name(),
					Reason:   "embedding count does not match input count",
				}
			}
			return vectors, nil
		})
	}

	single, ok := m.backend.(SingleEmbedder)
	if !ok {
		return nil, &UnsupportedCapabilityError{Provider: m.backend.Name(), Capability: "embedding"}
	}

	vectors := make([][]float32, len(inputs))
	sem := semaphore.NewWeighted(m.maxParallels)
	g, gctx := errgroup.WithContext(ctx)

	for i, input := range inputs {
		i, input := i, input
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			vector, err := retry.Do(gctx, policy, func(ctx context.Context) ([]float32, error) {
				return single.EmbedOne(ctx, m.model, input)
			})
			if err != nil {
				return err
			}
			vectors[i] = vector
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedOne embeds a single input.
func (m EmbeddingModel) EmbedOne(ctx context.Context, input string) ([]float32, error) {
	vectors, err := m.Embed(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m EmbeddingModel) withClassifier() retry.Policy {
	p := m.policy
	if p.Retryable == nil {
		p.Retryable = IsRetryable
	}
	return p
}
