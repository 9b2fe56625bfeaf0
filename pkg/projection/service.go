// Package projection places a submitted biography in the corpus space: it
// narrates, embeds and reduces the biography, then finds its cluster and
// nearest corpus persons.
package projection

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/narrative"
	"github.com/lifeembedding/lifeembedding/pkg/search"
)

var log = internal.GetLogger()

var tracer = otel.Tracer("github.com/lifeembedding/lifeembedding/pkg/projection")

var _ models.ProjectionService = &Service{}

// corpusSnapshot is the read-only corpus state searched by every request.
type corpusSnapshot struct {
	clusters    []models.ClusterDescriptor
	clusterInfo map[int]models.ClusterInfo
	index       *models.CorpusIndex
	loadedAt    time.Time
}

type Service struct {
	store        models.CorpusStore
	embedder     models.Embedder
	reducer      models.Reducer
	maxTextChars int
	snapshot     atomic.Pointer[corpusSnapshot]
}

func NewService(
	cfg *config.Config,
	store models.CorpusStore,
	embedder models.Embedder,
	reducer models.Reducer,
) *Service {
	return &Service{
		store:        store,
		embedder:     embedder,
		reducer:      reducer,
		maxTextChars: cfg.Embeddings.MaxTextChars,
	}
}

// LoadCorpus reads the clusters and the corpus coordinates from the store.
// Calling it again replaces the snapshot.
func (s *Service) LoadCorpus(ctx context.Context) error {
	infos, err := s.store.ClustersInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to load clusters: %w", err)
	}
	if len(infos) == 0 {
		return models.NewPreconditionViolation("empty cluster set")
	}
	clusters := make([]models.ClusterDescriptor, len(infos))
	clusterInfo := make(map[int]models.ClusterInfo, len(infos))
	for i, info := range infos {
		clusters[i] = info.Descriptor()
		clusterInfo[info.ClusterID] = info
	}
	if err := models.ValidateClusters(clusters); err != nil {
		return err
	}

	index, err := s.store.FetchAllCoordinates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corpus coordinates: %w", err)
	}

	s.snapshot.Store(&corpusSnapshot{
		clusters:    clusters,
		clusterInfo: clusterInfo,
		index:       index,
		loadedAt:    time.Now().UTC(),
	})
	log.Infof("loaded corpus with %d clusters and %d persons", len(clusters), index.Len())
	return nil
}

// Ready reports whether the reduction models and the corpus are loaded.
func (s *Service) Ready() bool {
	return s.reducer.IsLoaded() && s.snapshot.Load() != nil
}

// GenerateEmbedding projects req into the corpus space and returns its nearest
// cluster and the topK most similar persons.
func (s *Service) GenerateEmbedding(
	ctx context.Context,
	req *models.UserEmbeddingRequest,
	topK int,
) (resp *models.UserEmbeddingResponse, err error) {
	start := time.Now()

	ctx, span := tracer.Start(
		ctx,
		"projection.GenerateEmbedding",
		trace.WithAttributes(
			attribute.Int("top_k", topK),
			attribute.Int("life_events", len(req.LifeEvents)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	snapshot := s.snapshot.Load()
	if !s.reducer.IsLoaded() || snapshot == nil {
		return nil, models.ErrModelNotReady
	}
	if len(snapshot.clusters) == 0 {
		return nil, models.NewPreconditionViolation("empty cluster set")
	}

	text := narrative.Synthesize(req.NarrativeInput())
	text, truncated := internal.TruncateRunes(text, s.maxTextChars)
	if truncated {
		log.Warnf("narrative truncated to %d characters", s.maxTextChars)
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed narrative: %w", err)
	}

	point, err := s.reducer.Project(vector)
	if err != nil {
		if errors.Is(err, models.ErrPreconditionViolation) {
			log.Errorf("projection failed: %v", err)
		}
		return nil, fmt.Errorf("failed to project embedding: %w", err)
	}

	nearest, _, err := search.NearestCluster(point, snapshot.clusters)
	if err != nil {
		log.Errorf("cluster lookup failed: %v", err)
		return nil, err
	}

	neighbors, err := search.TopK(point, snapshot.index, topK)
	if err != nil {
		log.Errorf("similarity search failed: %v", err)
		return nil, err
	}

	similar, err := s.similarPersons(ctx, neighbors)
	if err != nil {
		return nil, err
	}

	cluster, ok := snapshot.clusterInfo[nearest.ClusterID]
	if !ok {
		cluster = models.ClusterInfo{
			ClusterID:      nearest.ClusterID,
			ClusterLabel:   nearest.ClusterLabel,
			TopOccupations: []models.OccupationCount{},
			AvgCoordinates: nearest.Centroid,
		}
	}

	return &models.UserEmbeddingResponse{
		UserCoordinates:    point,
		NearestCluster:     cluster,
		SimilarPersons:     similar,
		NarrativeText:      text,
		EmbeddingDimension: len(vector),
		ProcessingTimeMs:   float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

// similarPersons enriches neighbors with their stored person fields. A neighbor
// missing from the store keeps only its id and distance.
func (s *Service) similarPersons(
	ctx context.Context,
	neighbors []models.Neighbor,
) ([]models.SimilarPerson, error) {
	ids := make([]string, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.PersonID
	}
	summaries, err := s.store.GetPersonSummaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to enrich similar persons: %w", err)
	}

	similar := make([]models.SimilarPerson, len(neighbors))
	for i, n := range neighbors {
		similar[i] = models.SimilarPerson{
			PersonID:        n.PersonID,
			Distance:        n.Distance,
			SimilarityScore: models.SimilarityScore(n.Distance),
		}
		summary, ok := summaries[n.PersonID]
		if !ok {
			log.Warnf("similar person %s missing from store", n.PersonID)
			continue
		}
		similar[i].Name = summary.Name
		similar[i].Description = summary.Description
		similar[i].Occupation = summary.Occupation
		similar[i].ClusterID = summary.ClusterID
		similar[i].ClusterLabel = summary.ClusterLabel
	}
	return similar, nil
}
