// Package llm provides text embedding backends with dimension validation.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphi011/episearch/internal/config"
)

// ErrEmbedding indicates the embedding backend is unavailable or rejected
// the input. Check with errors.Is(); the wrapped message carries the cause.
var ErrEmbedding = errors.New("embedding failed")

// Embedder generates fixed-dimension embedding vectors for text. Results
// are deterministic for identical input and model version.
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// More efficient than multiple Embed calls for bulk operations.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	// CRITICAL: must match the corpus-wide configured dimension; every
	// stored vector is validated against it.
	Dimension() int
}

// New creates an Embedder based on the provided configuration.
func New(ctx context.Context, cfg config.Config) (Embedder, error) {
	switch cfg.EmbedProvider {
	case config.ProviderOllama, config.ProviderOpenAI:
		return NewLangchainEmbedder(cfg)

	case config.ProviderBedrock:
		return NewBedrockEmbedder(ctx, cfg.EmbedModel, cfg.EmbedDimension, cfg.AWSRegion)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}
}

func embedErr(model, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrEmbedding, model, fmt.Sprintf(format, args...))
}
