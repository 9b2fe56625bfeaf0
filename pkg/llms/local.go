package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

// LocalMaxBatchSize bounds requests to the local NLP server.
const LocalMaxBatchSize = 32

type localEmbedding struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

type localEmbeddingCollection struct {
	Embeddings []localEmbedding `json:"embeddings"`
}

var _ models.Embedder = (*LocalEmbedder)(nil)

// LocalEmbedder embeds texts with a self-hosted NLP server exposing
// POST /embeddings/document.
type LocalEmbedder struct {
	url        string
	model      string
	httpClient *http.Client
}

func NewLocalEmbedder(serverURL, model string, httpClient *http.Client) (*LocalEmbedder, error) {
	if serverURL == "" {
		return nil, errors.New("embeddings.server_url is required for the local service")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LocalEmbedder{
		url:        strings.TrimSuffix(serverURL, "/") + "/embeddings/document",
		model:      model,
		httpClient: httpClient,
	}, nil
}

func (l *LocalEmbedder) Model() string {
	return l.model
}

func (l *LocalEmbedder) MaxBatchSize() int {
	return LocalMaxBatchSize
}

func (l *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, l, ServiceLocal, text)
}

func (l *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	warnOversizedBatch(ServiceLocal, len(texts), LocalMaxBatchSize)

	collection := localEmbeddingCollection{Embeddings: make([]localEmbedding, len(texts))}
	for i, text := range texts {
		collection.Embeddings[i] = localEmbedding{Text: text}
	}

	body, err := l.post(ctx, collection)
	if err != nil {
		return nil, models.NewEmbeddingProviderError(ServiceLocal, err)
	}

	var response localEmbeddingCollection
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, models.NewEmbeddingProviderError(
			ServiceLocal,
			fmt.Errorf("error unmarshaling response body: %w", err),
		)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, models.NewEmbeddingProviderError(
			ServiceLocal,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Embeddings)),
		)
	}

	vectors := make([][]float32, len(response.Embeddings))
	for i := range response.Embeddings {
		vectors[i] = response.Embeddings[i].Embedding
	}
	return vectors, nil
}

func (l *LocalEmbedder) post(ctx context.Context, collection localEmbeddingCollection) ([]byte, error) {
	jsonBody, err := json.Marshal(collection)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making POST request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error making POST request: %d - %s", resp.StatusCode, resp.Status)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	return bodyBytes, nil
}
