// Package store holds what the corpus store implementations share.
package store

import (
	"sort"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

// TopOccupationLimit is the number of occupations reported per cluster.
const TopOccupationLimit = 5

// ClusterOccupationRow is one (cluster, occupation) count from an aggregate query.
type ClusterOccupationRow struct {
	ClusterID  int    `bun:"cluster_id"`
	Occupation string `bun:"occupation"`
	Count      int    `bun:"count"`
}

// TopOccupations groups rows by cluster and keeps the limit most frequent
// occupations of each, most frequent first and then alphabetically.
func TopOccupations(rows []ClusterOccupationRow, limit int) map[int][]models.OccupationCount {
	byCluster := make(map[int][]models.OccupationCount)
	for _, r := range rows {
		byCluster[r.ClusterID] = append(byCluster[r.ClusterID], models.OccupationCount{
			Occupation: r.Occupation,
			Count:      r.Count,
		})
	}
	for id, counts := range byCluster {
		sort.SliceStable(counts, func(i, j int) bool {
			if counts[i].Count != counts[j].Count {
				return counts[i].Count > counts[j].Count
			}
			return counts[i].Occupation < counts[j].Occupation
		})
		if limit > 0 && len(counts) > limit {
			counts = counts[:limit]
		}
		byCluster[id] = counts
	}
	return byCluster
}

// ValidateEmbeddings checks every record carries a vector of the expected width.
// expected <= 0 only requires the width to agree with EmbeddingDim.
func ValidateEmbeddings(records []models.PersonEmbedding, expected int) error {
	for _, r := range records {
		want := expected
		if want <= 0 {
			want = r.EmbeddingDim
		}
		if len(r.Vector) != want {
			return NewEmbeddingMismatchError(r.PersonID, want, len(r.Vector))
		}
	}
	return nil
}

// CoordinateRecord is a projected corpus point with its cluster assignment.
type CoordinateRecord struct {
	PersonID        string
	Coordinates     models.Coordinate3D
	ReductionMethod string
	ClusterID       int
	ClusterLabel    string
}
