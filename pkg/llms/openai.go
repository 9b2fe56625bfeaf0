package llms

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/pkg/models"
)

const (
	EmbeddingsOpenAIAPIKeyNotSetError = "LIFEEMBEDDING_OPENAI_API_KEY is not set" //nolint:gosec

	// OpenAIMaxBatchSize is well under the API's input limit.
	OpenAIMaxBatchSize = 100

	// the chat client builder needs a chat model even when only embedding
	openAIChatModel = "gpt-3.5-turbo"
)

var _ models.Embedder = (*OpenAIEmbedder)(nil)

// OpenAIEmbedder embeds texts with the OpenAI embeddings API, or any
// compatible endpoint.
type OpenAIEmbedder struct {
	client *openai.Chat
	model  string
}

func NewOpenAIEmbedder(cfg config.EmbeddingsConfig, httpClient *http.Client) (*OpenAIEmbedder, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New(EmbeddingsOpenAIAPIKeyNotSetError)
	}

	options := []openai.Option{
		openai.WithHTTPClient(httpClient),
		openai.WithModel(openAIChatModel),
		openai.WithToken(cfg.OpenAIAPIKey),
	}
	if cfg.Model != "" {
		options = append(options, openai.WithEmbeddingModel(cfg.Model))
	}
	if cfg.OpenAIEndpoint != "" {
		options = append(options, openai.WithBaseURL(cfg.OpenAIEndpoint))
	}

	client, err := openai.NewChat(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return &OpenAIEmbedder{client: client, model: cfg.Model}, nil
}

func (o *OpenAIEmbedder) Model() string {
	return o.model
}

func (o *OpenAIEmbedder) MaxBatchSize() int {
	return OpenAIMaxBatchSize
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, o, ServiceOpenAI, text)
}

func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	warnOversizedBatch(ServiceOpenAI, len(texts), OpenAIMaxBatchSize)

	embeddings, err := o.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, models.NewEmbeddingProviderError(ServiceOpenAI, err)
	}
	if len(embeddings) != len(texts) {
		return nil, models.NewEmbeddingProviderError(
			ServiceOpenAI,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddings)),
		)
	}
	return embeddings, nil
}
