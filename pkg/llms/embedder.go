// Package llms holds the text embedding providers.
package llms

import (
	"context"
	"fmt"
	"time"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/models"
)

var log = internal.GetLogger()

const (
	ServiceVertexAI = "vertexai"
	ServiceOpenAI   = "openai"
	ServiceLocal    = "local"

	defaultTimeout = 60 * time.Second
)

// NewEmbedder builds the embedding provider named by cfg.Embeddings.Service.
func NewEmbedder(ctx context.Context, cfg *config.Config) (models.Embedder, error) {
	ec := cfg.Embeddings
	timeout := defaultTimeout
	if ec.TimeoutSeconds > 0 {
		timeout = time.Duration(ec.TimeoutSeconds) * time.Second
	}
	httpClient := NewRetryableHTTPClient(ec.RetryMax, timeout)

	switch ec.Service {
	case ServiceVertexAI:
		client, err := NewVertexClient(ctx, ec.Project, ec.Location, httpClient)
		if err != nil {
			return nil, err
		}
		return NewVertexEmbedder(client, ec.Model, ec.Dimensions), nil
	case ServiceOpenAI:
		return NewOpenAIEmbedder(ec, httpClient)
	case ServiceLocal:
		return NewLocalEmbedder(ec.ServerURL, ec.Model, httpClient)
	default:
		return nil, fmt.Errorf("unknown embeddings service %q", ec.Service)
	}
}

// warnOversizedBatch logs a caller exceeding a provider's batch limit. The
// call still goes ahead and the provider decides.
func warnOversizedBatch(provider string, size, maxSize int) {
	if maxSize > 0 && size > maxSize {
		log.Warnf(
			"%s embedding batch of %d texts exceeds the maximum of %d",
			provider,
			size,
			maxSize,
		)
	}
}

// embedOne embeds a single text through a batch call.
func embedOne(ctx context.Context, e models.Embedder, provider, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, models.NewEmbeddingProviderError(
			provider,
			fmt.Errorf("expected 1 embedding, got %d", len(vectors)),
		)
	}
	return vectors[0], nil
}
