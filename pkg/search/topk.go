package search

import (
	"sort"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

// TopK returns the k corpus persons closest to point, nearest first. Equal
// distances keep index order. k <= 0 yields an empty result and k > N yields
// all N persons.
func TopK(point models.Coordinate3D, index *models.CorpusIndex, k int) ([]models.Neighbor, error) {
	if err := index.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 || index.Len() == 0 {
		return []models.Neighbor{}, nil
	}

	distances := make([]float64, index.Len())
	order := make([]int, index.Len())
	for i, c := range index.Coordinates {
		distances[i] = Distance(point, c)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	k = min(k, index.Len())
	neighbors := make([]models.Neighbor, k)
	for j := 0; j < k; j++ {
		i := order[j]
		neighbors[j] = models.Neighbor{PersonID: index.PersonIDs[i], Distance: distances[i]}
	}
	return neighbors, nil
}
