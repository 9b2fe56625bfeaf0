package llms

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

// VertexMaxBatchSize is the number of texts sent in one Vertex AI embedding call.
const VertexMaxBatchSize = 5

type embedContentFunc func(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.EmbedContentConfig,
) (*genai.EmbedContentResponse, error)

var _ models.Embedder = (*VertexEmbedder)(nil)

// VertexEmbedder embeds texts with a Vertex AI text embedding model.
type VertexEmbedder struct {
	embedContent embedContentFunc
	model        string
	dimensions   int
}

// NewVertexClient creates a genai client on the Vertex AI backend. httpClient
// may be nil, in which case application default credentials are used.
func NewVertexClient(
	ctx context.Context,
	project, location string,
	httpClient *http.Client,
) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:    genai.BackendVertexAI,
		Project:    project,
		Location:   location,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}
	return client, nil
}

func NewVertexEmbedder(client *genai.Client, model string, dimensions int) *VertexEmbedder {
	return &VertexEmbedder{
		embedContent: client.Models.EmbedContent,
		model:        model,
		dimensions:   dimensions,
	}
}

func (v *VertexEmbedder) Model() string {
	return v.model
}

func (v *VertexEmbedder) MaxBatchSize() int {
	return VertexMaxBatchSize
}

func (v *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, v, ServiceVertexAI, text)
}

func (v *VertexEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	warnOversizedBatch(ServiceVertexAI, len(texts), VertexMaxBatchSize)

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{
				{Text: text},
			},
		}
	}

	embedConfig := &genai.EmbedContentConfig{}
	if v.dimensions > 0 {
		dims := int32(v.dimensions) //nolint:gosec
		embedConfig.OutputDimensionality = &dims
	}

	result, err := v.embedContent(ctx, v.model, contents, embedConfig)
	if err != nil {
		return nil, models.NewEmbeddingProviderError(ServiceVertexAI, err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, models.NewEmbeddingProviderError(
			ServiceVertexAI,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), got),
		)
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, models.NewEmbeddingProviderError(
				ServiceVertexAI,
				fmt.Errorf("empty embedding vector at index %d", i),
			)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}
