package llms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/areknoster/hypert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/genai"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/pkg/models"
)

func newLocalServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings/document", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		var req localEmbeddingCollection
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for i := range req.Embeddings {
			req.Embeddings[i].Embedding = []float32{float32(len(req.Embeddings[i].Text)), float32(i)}
		}
		_ = json.NewEncoder(w).Encode(req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLocalEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("EmbedBatch", func(t *testing.T) {
		srv := newLocalServer(t, http.StatusOK)
		e, err := NewLocalEmbedder(srv.URL+"/", "local-model", NewRetryableHTTPClient(0, 5*time.Second))
		require.NoError(t, err)

		vectors, err := e.EmbedBatch(ctx, []string{"ab", "abcd"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{2, 0}, {4, 1}}, vectors)
		assert.Equal(t, "local-model", e.Model())
	})

	t.Run("Embed", func(t *testing.T) {
		srv := newLocalServer(t, http.StatusOK)
		e, err := NewLocalEmbedder(srv.URL, "", nil)
		require.NoError(t, err)

		vector, err := e.Embed(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []float32{3, 0}, vector)
	})

	t.Run("ProviderError", func(t *testing.T) {
		srv := newLocalServer(t, http.StatusInternalServerError)
		e, err := NewLocalEmbedder(srv.URL, "", nil)
		require.NoError(t, err)

		_, err = e.Embed(ctx, "abc")
		var providerErr *models.EmbeddingProviderError
		require.ErrorAs(t, err, &providerErr)
		assert.Equal(t, ServiceLocal, providerErr.Provider)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		e, err := NewLocalEmbedder("http://127.0.0.1:0", "", nil)
		require.NoError(t, err)
		vectors, err := e.EmbedBatch(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, vectors)
	})

	t.Run("MissingURL", func(t *testing.T) {
		_, err := NewLocalEmbedder("", "", nil)
		assert.Error(t, err)
	})
}

func TestVertexEmbedderBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("ValuesInOrder", func(t *testing.T) {
		var gotModel string
		var gotDims int32
		e := &VertexEmbedder{
			model:      "text-embedding-004",
			dimensions: 768,
			embedContent: func(
				_ context.Context,
				model string,
				contents []*genai.Content,
				cfg *genai.EmbedContentConfig,
			) (*genai.EmbedContentResponse, error) {
				gotModel = model
				gotDims = *cfg.OutputDimensionality
				resp := &genai.EmbedContentResponse{}
				for i, c := range contents {
					resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{
						Values: []float32{float32(i), float32(len(c.Parts[0].Text))},
					})
				}
				return resp, nil
			},
		}

		vectors, err := e.EmbedBatch(ctx, []string{"a", "bb", "ccc"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{0, 1}, {1, 2}, {2, 3}}, vectors)
		assert.Equal(t, "text-embedding-004", gotModel)
		assert.Equal(t, int32(768), gotDims)
		assert.Equal(t, VertexMaxBatchSize, e.MaxBatchSize())
	})

	t.Run("OversizedBatchProceeds", func(t *testing.T) {
		calls := 0
		e := &VertexEmbedder{
			embedContent: func(
				_ context.Context,
				_ string,
				contents []*genai.Content,
				_ *genai.EmbedContentConfig,
			) (*genai.EmbedContentResponse, error) {
				calls++
				resp := &genai.EmbedContentResponse{}
				for range contents {
					resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: []float32{1}})
				}
				return resp, nil
			},
		}

		vectors, err := e.EmbedBatch(ctx, []string{"1", "2", "3", "4", "5", "6", "7"})
		require.NoError(t, err)
		assert.Len(t, vectors, 7)
		assert.Equal(t, 1, calls)
	})

	t.Run("ErrorIsWrappedNotRetried", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		calls := 0
		e := &VertexEmbedder{
			embedContent: func(
				context.Context,
				string,
				[]*genai.Content,
				*genai.EmbedContentConfig,
			) (*genai.EmbedContentResponse, error) {
				calls++
				return nil, cause
			},
		}

		_, err := e.Embed(ctx, "text")
		assert.ErrorIs(t, err, cause)
		var providerErr *models.EmbeddingProviderError
		assert.ErrorAs(t, err, &providerErr)
		assert.Equal(t, 1, calls)
	})

	t.Run("ShortResponse", func(t *testing.T) {
		e := &VertexEmbedder{
			embedContent: func(
				context.Context,
				string,
				[]*genai.Content,
				*genai.EmbedContentConfig,
			) (*genai.EmbedContentResponse, error) {
				return &genai.EmbedContentResponse{}, nil
			},
		}
		_, err := e.EmbedBatch(ctx, []string{"a"})
		var providerErr *models.EmbeddingProviderError
		assert.ErrorAs(t, err, &providerErr)
	})
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object": "embedding", "index": 0, "embedding": [0.5, 0.25]},
				{"object": "embedding", "index": 1, "embedding": [0.125, 1]}
			],
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`))
	}))
	defer srv.Close()

	cfg := config.EmbeddingsConfig{
		Model:          "text-embedding-3-small",
		OpenAIAPIKey:   "test-key",
		OpenAIEndpoint: srv.URL,
	}
	e, err := NewOpenAIEmbedder(cfg, NewRetryableHTTPClient(0, 5*time.Second))
	require.NoError(t, err)

	vectors, err := e.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.25}, {0.125, 1}}, vectors)

	_, err = NewOpenAIEmbedder(config.EmbeddingsConfig{}, nil)
	assert.EqualError(t, err, EmbeddingsOpenAIAPIKeyNotSetError)
}

func TestNewEmbedderUnknownService(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Embeddings.Service = "bogus"
	_, err := NewEmbedder(context.Background(), &cfg)
	assert.Error(t, err)
}

func shouldUpdateRecordings() bool {
	return os.Getenv("UPDATE_TESTS") == "true"
}

// newRecordingClient replays recorded provider traffic from testdata. With
// UPDATE_TESTS=true it records fresh traffic using application default credentials.
func newRecordingClient(t *testing.T, dir string) *http.Client {
	t.Helper()
	namingScheme, err := hypert.NewContentHashNamingScheme(dir)
	require.NoError(t, err)

	client := hypert.TestClient(t, shouldUpdateRecordings(),
		hypert.WithNamingScheme(namingScheme),
		hypert.WithRequestValidator(hypert.ComposedRequestValidator(
			hypert.PathValidator(),
			hypert.QueryParamsValidator(),
			hypert.MethodValidator(),
		)),
	)

	if shouldUpdateRecordings() {
		ctx := context.Background()
		creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
		require.NoError(t, err)
		return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, client), creds.TokenSource)
	}
	return client
}

func TestVertexEmbedderRecorded(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping vertex ai test in short mode")
	}
	dir := filepath.Join("testdata", "vertex")
	if _, err := os.Stat(dir); err != nil && !shouldUpdateRecordings() {
		t.Skip("no vertex ai recordings, set UPDATE_TESTS=true to record")
	}

	ctx := context.Background()
	client, err := NewVertexClient(
		ctx,
		os.Getenv("GOOGLE_PROJECT_ID"),
		os.Getenv("GOOGLE_REGION"),
		newRecordingClient(t, dir),
	)
	require.NoError(t, err)

	e := NewVertexEmbedder(client, "text-embedding-004", 768)
	vectors, err := e.EmbedBatch(ctx, []string{
		"Ada Lovelace was an English mathematician.",
		"Studied Mathematics from Cambridge.",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	for _, v := range vectors {
		assert.Len(t, v, 768)
	}
}
