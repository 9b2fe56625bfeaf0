// Package search locates the nearest cluster and the nearest corpus persons for
// a point in the 3D visualization space.
package search

import (
	"github.com/viterin/vek"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

// Distance is the Euclidean distance between two points.
func Distance(a, b models.Coordinate3D) float64 {
	return vek.Distance(a.Slice(), b.Slice())
}

// NearestCluster returns the cluster whose centroid is closest to point, along
// with that distance. The first of several equally near clusters wins.
// An empty cluster set is a precondition violation.
func NearestCluster(
	point models.Coordinate3D,
	clusters []models.ClusterDescriptor,
) (models.ClusterDescriptor, float64, error) {
	if len(clusters) == 0 {
		return models.ClusterDescriptor{}, 0, models.NewPreconditionViolation("cluster set is empty")
	}

	best := 0
	bestDistance := Distance(point, clusters[0].Centroid)
	for i := 1; i < len(clusters); i++ {
		d := Distance(point, clusters[i].Centroid)
		if d < bestDistance {
			best = i
			bestDistance = d
		}
	}
	return clusters[best], bestDistance, nil
}
