package models

import "context"

// Embedder converts text into fixed-length vectors using an external provider.
// Implementations do not retry. Failures are returned as EmbeddingProviderError.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts in a single provider call. Callers should not pass
	// more than MaxBatchSize texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	MaxBatchSize() int
	// Model is the provider's model name, recorded alongside stored embeddings.
	Model() string
}

// Reducer projects an embedding into the 3D visualization space.
type Reducer interface {
	Project(vec []float32) (Coordinate3D, error)
	IsLoaded() bool
}

// ProjectionService turns a submitted biography into coordinates, a cluster and
// similar persons.
type ProjectionService interface {
	GenerateEmbedding(
		ctx context.Context,
		req *UserEmbeddingRequest,
		topK int,
	) (*UserEmbeddingResponse, error)
	Ready() bool
}
