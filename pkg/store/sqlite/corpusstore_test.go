package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeembedding/lifeembedding/pkg/models"
	"github.com/lifeembedding/lifeembedding/pkg/store"
)

func strPtr(s string) *string { return &s }

func datePtr(year int) *models.Date {
	d := models.NewDate(year, 1, 1)
	return &d
}

func newTestStore(t *testing.T) *CorpusStore {
	t.Helper()
	s, err := NewCorpusStore(":memory:", 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	persons := []models.PersonWithEvents{
		{
			Person: models.Person{
				PersonID:   "Q1",
				WikidataID: "Q1",
				Name:       "Marie Curie",
				Occupation: []string{"physicist", "chemist"},
				BirthDate:  datePtr(1867),
				BirthPlace: strPtr("Warsaw"),
			},
			Events: []models.LifeEvent{
				{EventType: "residence", EventTitle: "Paris"},
				{EventType: "award", EventTitle: "Nobel Prize in Chemistry", PointInTime: datePtr(1911)},
				{EventType: "education", EventTitle: "University of Paris", StartDate: datePtr(1891)},
			},
		},
		{
			Person: models.Person{
				PersonID:   "Q2",
				WikidataID: "Q2",
				Name:       "Albert Einstein",
				Occupation: []string{"physicist"},
			},
			Events: []models.LifeEvent{
				{
					EventType:    "employment",
					EventTitle:   "Patent clerk",
					Organization: strPtr("Swiss Patent Office"),
					StartDate:    datePtr(1902),
				},
			},
		},
		{
			Person: models.Person{
				PersonID:    "Q3",
				WikidataID:  "Q3",
				Name:        "Claude Monet",
				Description: strPtr("French painter"),
				Occupation:  []string{"painter"},
			},
		},
		{
			Person: models.Person{PersonID: "Q4", WikidataID: "Q4", Name: "Unplaced Person"},
		},
	}
	require.NoError(t, s.PutPersons(ctx, persons))

	require.NoError(t, s.PutCoordinates(ctx, []store.CoordinateRecord{
		{PersonID: "Q1", Coordinates: models.Coordinate3D{X: 1}, ClusterID: 0, ClusterLabel: "Science"},
		{PersonID: "Q2", Coordinates: models.Coordinate3D{X: 3}, ClusterID: 0, ClusterLabel: "Science"},
		{PersonID: "Q3", Coordinates: models.Coordinate3D{Y: 10}, ClusterID: 1, ClusterLabel: "Art"},
	}))
	return s
}

func TestListPersons(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	persons, err := s.ListPersons(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, persons, 4)

	names := make([]string, len(persons))
	for i, p := range persons {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"Albert Einstein", "Claude Monet", "Marie Curie", "Unplaced Person"}, names)

	assert.Nil(t, persons[3].Coordinates)
	assert.Nil(t, persons[3].ClusterID)
	require.NotNil(t, persons[1].Coordinates)
	assert.Equal(t, models.Coordinate3D{Y: 10}, *persons[1].Coordinates)
	require.NotNil(t, persons[1].Description)
	assert.Equal(t, "French painter", *persons[1].Description)

	page, err := s.ListPersons(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Claude Monet", page[0].Name)
	assert.Equal(t, "Marie Curie", page[1].Name)
}

func TestGetPerson(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		person, err := s.GetPerson(ctx, "Q1")
		require.NoError(t, err)
		assert.Equal(t, "Marie Curie", person.Name)
		assert.Equal(t, []string{"physicist", "chemist"}, person.Occupation)
		require.NotNil(t, person.BirthDate)
		assert.Equal(t, "1867-01-01", person.BirthDate.String())
		assert.Equal(t, 3, person.TotalEvents)
		assert.Equal(t, map[string]int{"residence": 1, "award": 1, "education": 1}, person.EventTypes)
		require.NotNil(t, person.ClusterID)
		assert.Equal(t, 0, *person.ClusterID)
		require.NotNil(t, person.Coordinates)
		assert.Equal(t, 1.0, person.Coordinates.X)
	})

	t.Run("without coordinates", func(t *testing.T) {
		person, err := s.GetPerson(ctx, "Q4")
		require.NoError(t, err)
		assert.Nil(t, person.Coordinates)
		assert.Equal(t, 0, person.TotalEvents)
		assert.Empty(t, person.EventTypes)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.GetPerson(ctx, "Q404")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestGetPersonSummaries(t *testing.T) {
	s := newTestStore(t)

	summaries, err := s.GetPersonSummaries(context.Background(), []string{"Q2", "Q3", "Q404"})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
	assert.Equal(t, "Albert Einstein", summaries["Q2"].Name)
	_, ok := summaries["Q404"]
	assert.False(t, ok)

	empty, err := s.GetPersonSummaries(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestVisualizationPersons(t *testing.T) {
	s := newTestStore(t)

	persons, err := s.VisualizationPersons(context.Background())
	require.NoError(t, err)
	require.Len(t, persons, 3)
	assert.Equal(t, "Albert Einstein", persons[0].Name)
	assert.Equal(t, 3.0, persons[0].X)
	assert.Equal(t, "Science", persons[0].ClusterLabel)
	assert.Equal(t, "Claude Monet", persons[1].Name)
	assert.Equal(t, 1, persons[1].ClusterID)
}

func TestClusters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	clusters, err := s.ClustersInfo(ctx)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	assert.Equal(t, 0, clusters[0].ClusterID)
	assert.Equal(t, "Science", clusters[0].ClusterLabel)
	assert.Equal(t, 2, clusters[0].PersonCount)
	assert.Equal(t, models.Coordinate3D{X: 2}, clusters[0].AvgCoordinates)
	assert.Equal(t, []models.OccupationCount{
		{Occupation: "physicist", Count: 2},
		{Occupation: "chemist", Count: 1},
	}, clusters[0].TopOccupations)

	assert.Equal(t, []models.OccupationCount{{Occupation: "painter", Count: 1}}, clusters[1].TopOccupations)

	descriptors, err := s.FetchClusters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.ClusterDescriptor{
		{ClusterID: 0, ClusterLabel: "Science", Centroid: models.Coordinate3D{X: 2}},
		{ClusterID: 1, ClusterLabel: "Art", Centroid: models.Coordinate3D{Y: 10}},
	}, descriptors)

	persons, err := s.PersonsByCluster(ctx, 0)
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, "Albert Einstein", persons[0].Name)
	assert.Equal(t, "Marie Curie", persons[1].Name)

	none, err := s.PersonsByCluster(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFetchAllCoordinates(t *testing.T) {
	s := newTestStore(t)

	index, err := s.FetchAllCoordinates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, index.PersonIDs)
	assert.Equal(t, models.Coordinate3D{X: 3}, index.Coordinates[1])
}

func TestListPersonsWithEvents(t *testing.T) {
	s := newTestStore(t)

	persons, err := s.ListPersonsWithEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, persons, 4)

	assert.Equal(t, "Q1", persons[0].PersonID)
	types := make([]string, len(persons[0].Events))
	for i, e := range persons[0].Events {
		types[i] = e.EventType
	}
	assert.Equal(t, []string{"education", "award", "residence"}, types)

	require.Len(t, persons[1].Events, 1)
	require.NotNil(t, persons[1].Events[0].Organization)
	assert.Equal(t, "Swiss Patent Office", *persons[1].Events[0].Organization)
	assert.Empty(t, persons[3].Events)
}

func TestPutPersonsReplacesEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.PutPersons(ctx, []models.PersonWithEvents{{
		Person: models.Person{PersonID: "Q2", WikidataID: "Q2", Name: "Albert Einstein"},
		Events: []models.LifeEvent{{EventType: "award", EventTitle: "Nobel Prize in Physics"}},
	}})
	require.NoError(t, err)

	person, err := s.GetPerson(ctx, "Q2")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"award": 1}, person.EventTypes)
}

func TestPutEmbeddings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []models.PersonEmbedding{
		{PersonID: "Q2", Vector: []float32{1, 2, 3}, EmbeddingModel: "text-embedding-004", EmbeddingText: "a"},
		{PersonID: "Q1", Vector: []float32{0.5, 0, -1}, EmbeddingModel: "text-embedding-004", EmbeddingText: "b"},
	}
	require.NoError(t, s.PutEmbeddings(ctx, records))

	records[0].Vector = []float32{4, 5, 6}
	require.NoError(t, s.PutEmbeddings(ctx, records[:1]))

	ids, vectors, err := s.FetchAllEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2"}, ids)
	assert.Equal(t, [][]float32{{0.5, 0, -1}, {4, 5, 6}}, vectors)

	err = s.PutEmbeddings(ctx, []models.PersonEmbedding{{PersonID: "Q3", Vector: []float32{1}}})
	assert.ErrorIs(t, err, store.ErrEmbeddingMismatch)
}

func TestPutCoordinatesUnknownPerson(t *testing.T) {
	s := newTestStore(t)

	err := s.PutCoordinates(context.Background(), []store.CoordinateRecord{
		{PersonID: "Q404", ClusterID: 0, ClusterLabel: "Science"},
	})
	var storageErr *store.StorageError
	assert.ErrorAs(t, err, &storageErr)
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
