package models

import "context"

// CorpusStore is the persistence boundary for the precomputed corpus.
type CorpusStore interface {
	// ListPersons returns persons ordered by name.
	ListPersons(ctx context.Context, limit, offset int) ([]PersonSummary, error)
	// GetPerson returns a NotFoundError when personID does not exist.
	GetPerson(ctx context.Context, personID string) (*PersonDetail, error)
	// GetPersonSummaries returns summaries keyed by person id. Unknown ids are omitted.
	GetPersonSummaries(ctx context.Context, personIDs []string) (map[string]PersonSummary, error)
	VisualizationPersons(ctx context.Context) ([]VisualizationPerson, error)
	// ClustersInfo returns clusters ordered by id with centroid, size and top occupations.
	ClustersInfo(ctx context.Context) ([]ClusterInfo, error)
	PersonsByCluster(ctx context.Context, clusterID int) ([]PersonSummary, error)
	// FetchClusters returns the validated cluster descriptors.
	FetchClusters(ctx context.Context) ([]ClusterDescriptor, error)
	// FetchAllCoordinates returns the validated corpus index ordered by person id.
	FetchAllCoordinates(ctx context.Context) (*CorpusIndex, error)
	// FetchAllEmbeddings returns person ids and vectors ordered by person id.
	FetchAllEmbeddings(ctx context.Context) ([]string, [][]float32, error)
	// ListPersonsWithEvents returns every person with chronologically ordered events.
	ListPersonsWithEvents(ctx context.Context) ([]PersonWithEvents, error)
	PutEmbeddings(ctx context.Context, records []PersonEmbedding) error
	Ping(ctx context.Context) error
	Close() error
}
