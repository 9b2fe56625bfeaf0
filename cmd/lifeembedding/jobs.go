package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/pkg/llms"
	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/server/handlertools"
	"github.com/lifeembedding/lifeembedding/pkg/tasks"
)

// embedCorpus runs the corpus embedding job against the configured store.
func embedCorpus(ctx context.Context, cfg *config.Config, output string) error {
	corpusStore, err := newCorpusStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer corpusStore.Close()

	embedder, err := llms.NewEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	job := tasks.NewCorpusEmbedder(cfg, corpusStore, embedder)
	job.OutputPath = output

	report, err := job.Run(ctx)
	if err != nil {
		return err
	}
	log.Info(report.String())
	return nil
}

// projectFile projects the biography in path and writes the result as JSON.
func projectFile(ctx context.Context, cfg *config.Config, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var req models.UserEmbeddingRequest
	if err := json.NewDecoder(f).Decode(&req); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if err := handlertools.Validate.Struct(&req); err != nil {
		return models.NewBadRequestError(err.Error())
	}

	appState, err := NewAppState(ctx, cfg)
	if err != nil {
		return err
	}
	defer appState.CorpusStore.Close()

	if appState.Projection == nil || !appState.Projection.Ready() {
		return models.ErrModelNotReady
	}

	resp, err := appState.Projection.GenerateEmbedding(ctx, &req, cfg.Search.DefaultTopK)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
