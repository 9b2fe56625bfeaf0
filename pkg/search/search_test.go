package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

func testClusters() []models.ClusterDescriptor {
	return []models.ClusterDescriptor{
		{ClusterID: 0, ClusterLabel: "Scientists", Centroid: models.Coordinate3D{X: 0, Y: 0, Z: 0}},
		{ClusterID: 1, ClusterLabel: "Artists", Centroid: models.Coordinate3D{X: 10, Y: 0, Z: 0}},
		{ClusterID: 2, ClusterLabel: "Athletes", Centroid: models.Coordinate3D{X: 0, Y: 10, Z: -3.5}},
		{ClusterID: 3, ClusterLabel: "Politicians", Centroid: models.Coordinate3D{X: -4.25, Y: 1.5, Z: 7}},
	}
}

func testIndex() *models.CorpusIndex {
	return &models.CorpusIndex{
		PersonIDs: []string{"p1", "p2", "p3", "p4", "p5"},
		Coordinates: []models.Coordinate3D{
			{X: 1, Y: 1, Z: 1},
			{X: 3, Y: 0, Z: 0},
			{X: -2, Y: 0, Z: 0},
			{X: 0.5, Y: -7, Z: 2.25},
			{X: 2, Y: 0, Z: 0},
		},
	}
}

func TestNearestCluster(t *testing.T) {
	t.Run("CentroidSelfMatch", func(t *testing.T) {
		clusters := testClusters()
		for _, c := range clusters {
			got, d, err := NearestCluster(c.Centroid, clusters)
			require.NoError(t, err)
			assert.Equal(t, c, got)
			assert.Equal(t, 0.0, d)
		}
	})

	t.Run("Nearest", func(t *testing.T) {
		got, d, err := NearestCluster(models.Coordinate3D{X: 7, Y: 0, Z: 0}, testClusters())
		require.NoError(t, err)
		assert.Equal(t, 1, got.ClusterID)
		assert.InDelta(t, 3.0, d, 1e-12)
	})

	t.Run("TieFirstWins", func(t *testing.T) {
		got, _, err := NearestCluster(models.Coordinate3D{X: 5, Y: 0, Z: 0}, testClusters())
		require.NoError(t, err)
		assert.Equal(t, 0, got.ClusterID)
	})

	t.Run("Empty", func(t *testing.T) {
		_, _, err := NearestCluster(models.Coordinate3D{}, nil)
		assert.ErrorIs(t, err, models.ErrPreconditionViolation)
	})
}

func TestTopK(t *testing.T) {
	index := testIndex()
	n := index.Len()

	t.Run("SelfMatchFirst", func(t *testing.T) {
		for i, c := range index.Coordinates {
			got, err := TopK(c, index, 3)
			require.NoError(t, err)
			require.NotEmpty(t, got)
			assert.Equal(t, models.Neighbor{PersonID: index.PersonIDs[i], Distance: 0}, got[0])
		}
	})

	for _, k := range []int{-1, 0, 1, n, n + 5} {
		t.Run(fmt.Sprintf("Length_k=%d", k), func(t *testing.T) {
			got, err := TopK(models.Coordinate3D{}, index, k)
			require.NoError(t, err)
			assert.Len(t, got, max(0, min(k, n)))
		})
	}

	t.Run("SortedAscending", func(t *testing.T) {
		got, err := TopK(models.Coordinate3D{}, index, n)
		require.NoError(t, err)
		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
		}
	})

	t.Run("StableTies", func(t *testing.T) {
		// p3 and p5 are both at distance 2 from the origin
		got, err := TopK(models.Coordinate3D{}, index, 3)
		require.NoError(t, err)
		ids := []string{got[0].PersonID, got[1].PersonID, got[2].PersonID}
		assert.Equal(t, []string{"p1", "p3", "p5"}, ids)
	})

	t.Run("MalformedIndex", func(t *testing.T) {
		bad := &models.CorpusIndex{PersonIDs: []string{"p1"}}
		_, err := TopK(models.Coordinate3D{}, bad, 1)
		assert.ErrorIs(t, err, models.ErrPreconditionViolation)

		_, err = TopK(models.Coordinate3D{}, nil, 1)
		assert.ErrorIs(t, err, models.ErrPreconditionViolation)
	})

	t.Run("EmptyIndex", func(t *testing.T) {
		got, err := TopK(models.Coordinate3D{}, &models.CorpusIndex{}, 3)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
