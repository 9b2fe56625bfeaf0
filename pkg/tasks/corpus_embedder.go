package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/narrative"
)

// CorpusEmbeddingReport summarises a corpus embedding run.
type CorpusEmbeddingReport struct {
	Persons       int           `json:"persons"`
	SkippedEvents int           `json:"skipped_events"`
	Batches       int           `json:"batches"`
	FailedBatches int           `json:"failed_batches"`
	Embedded      int           `json:"embedded"`
	Inserted      int           `json:"inserted"`
	FailedInserts int           `json:"failed_inserts"`
	Duration      time.Duration `json:"duration"`
}

func (r *CorpusEmbeddingReport) String() string {
	return fmt.Sprintf(
		"embedded %s of %s persons in %s batches (%s failed), inserted %s (%s failed), skipped %s events, took %s",
		humanize.Comma(int64(r.Embedded)),
		humanize.Comma(int64(r.Persons)),
		humanize.Comma(int64(r.Batches)),
		humanize.Comma(int64(r.FailedBatches)),
		humanize.Comma(int64(r.Inserted)),
		humanize.Comma(int64(r.FailedInserts)),
		humanize.Comma(int64(r.SkippedEvents)),
		r.Duration.Round(time.Millisecond),
	)
}

// CorpusEmbedder narrates and embeds every corpus person and stores the vectors.
type CorpusEmbedder struct {
	store           models.CorpusStore
	embedder        models.Embedder
	batchSize       int
	insertBatchSize int
	maxTextChars    int
	limiter         *rate.Limiter
	// OutputPath, when set, also receives the embedding records as JSON.
	OutputPath string
}

func NewCorpusEmbedder(
	cfg *config.Config,
	store models.CorpusStore,
	embedder models.Embedder,
) *CorpusEmbedder {
	batchSize := cfg.Embeddings.BatchSize
	if maxBatch := embedder.MaxBatchSize(); batchSize <= 0 || (maxBatch > 0 && batchSize > maxBatch) {
		batchSize = maxBatch
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	limit := rate.Inf
	if cfg.Embeddings.BatchPauseMs > 0 {
		limit = rate.Every(time.Duration(cfg.Embeddings.BatchPauseMs) * time.Millisecond)
	}

	return &CorpusEmbedder{
		store:           store,
		embedder:        embedder,
		batchSize:       batchSize,
		insertBatchSize: cfg.Embeddings.InsertBatchSize,
		maxTextChars:    cfg.Embeddings.MaxTextChars,
		limiter:         rate.NewLimiter(limit, 1),
	}
}

type corpusText struct {
	personID string
	text     string
}

// Run embeds the whole corpus. A failed provider batch is logged and skipped
// and the run continues. Only store reads and context cancellation abort it.
func (c *CorpusEmbedder) Run(ctx context.Context) (*CorpusEmbeddingReport, error) {
	start := time.Now()
	report := &CorpusEmbeddingReport{}

	persons, err := c.store.ListPersonsWithEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	report.Persons = len(persons)
	log.Infof("generating embeddings for %s persons, batch size %d", humanize.Comma(int64(len(persons))), c.batchSize)

	texts := make([]corpusText, len(persons))
	for i := range persons {
		text, stats := narrative.LifeNarrative(&persons[i])
		report.SkippedEvents += stats.SkippedEvents
		text, truncated := internal.TruncateRunes(text, c.maxTextChars)
		if truncated {
			log.Debugf("narrative for %s truncated to %d characters", persons[i].PersonID, c.maxTextChars)
		}
		texts[i] = corpusText{personID: persons[i].PersonID, text: text}
	}

	var records []models.PersonEmbedding
	for _, batch := range internal.ChunkSlice(texts, c.batchSize) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		report.Batches++

		batchRecords, err := c.embedBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.FailedBatches++
			log.Errorf("failed to embed batch starting at %s: %v", batch[0].personID, err)
			continue
		}
		records = append(records, batchRecords...)

		if report.Batches%10 == 0 {
			log.Infof("processed %d/%d persons (%d batches)", len(records), len(texts), report.Batches)
		}
	}
	report.Embedded = len(records)

	if c.OutputPath != "" {
		if err := writeEmbeddingRecords(c.OutputPath, records); err != nil {
			return nil, err
		}
	}

	report.Inserted, report.FailedInserts = c.insert(ctx, records)
	report.Duration = time.Since(start)

	log.Info(report.String())
	return report, nil
}

func (c *CorpusEmbedder) embedBatch(ctx context.Context, batch []corpusText) ([]models.PersonEmbedding, error) {
	inputs := make([]string, len(batch))
	for i, t := range batch {
		inputs[i] = t.text
	}

	vectors, err := c.embedder.EmbedBatch(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vectors))
	}

	now := time.Now().UTC()
	records := make([]models.PersonEmbedding, len(batch))
	for i, t := range batch {
		text, _ := internal.TruncateRunes(t.text, EmbeddingTextMaxChars)
		records[i] = models.PersonEmbedding{
			PersonID:       t.personID,
			Vector:         vectors[i],
			EmbeddingModel: c.embedder.Model(),
			EmbeddingDim:   len(vectors[i]),
			EmbeddingText:  text,
			CreatedAt:      now,
		}
	}
	return records, nil
}

// insert stores records in chunks. A failed chunk is logged and counted.
func (c *CorpusEmbedder) insert(ctx context.Context, records []models.PersonEmbedding) (int, int) {
	size := c.insertBatchSize
	if size <= 0 {
		size = len(records)
	}

	var inserted, failed int
	for _, chunk := range internal.ChunkSlice(records, size) {
		if err := c.store.PutEmbeddings(ctx, chunk); err != nil {
			failed += len(chunk)
			log.Errorf("failed to insert %d embeddings: %v", len(chunk), err)
			continue
		}
		inserted += len(chunk)
		log.Debugf("inserted %d/%d embeddings", inserted, len(records))
	}
	return inserted, failed
}

func writeEmbeddingRecords(path string, records []models.PersonEmbedding) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode embeddings: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write embeddings to %s: %w", path, err)
	}
	log.Infof("saved %s embeddings to %s", humanize.Comma(int64(len(records))), path)
	return nil
}
