package models

import "fmt"

type Coordinate3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Slice returns the coordinate as an [x, y, z] slice.
func (c Coordinate3D) Slice() []float64 {
	return []float64{c.X, c.Y, c.Z}
}

// ClusterDescriptor identifies a cluster by its centroid in the 3D space.
type ClusterDescriptor struct {
	ClusterID    int          `json:"cluster_id"`
	ClusterLabel string       `json:"cluster_label"`
	Centroid     Coordinate3D `json:"centroid"`
}

// ValidateClusters checks that cluster ids are unique.
func ValidateClusters(clusters []ClusterDescriptor) error {
	seen := make(map[int]struct{}, len(clusters))
	for _, c := range clusters {
		if _, ok := seen[c.ClusterID]; ok {
			return NewPreconditionViolation("duplicate cluster_id %d", c.ClusterID)
		}
		seen[c.ClusterID] = struct{}{}
	}
	return nil
}

// CorpusIndex holds the stored coordinates of every corpus person.
// PersonIDs[i] corresponds to Coordinates[i].
type CorpusIndex struct {
	PersonIDs   []string
	Coordinates []Coordinate3D
}

func (ci *CorpusIndex) Len() int {
	return len(ci.PersonIDs)
}

// Validate checks the parallel slices have equal length.
func (ci *CorpusIndex) Validate() error {
	if ci == nil {
		return NewPreconditionViolation("corpus index is nil")
	}
	if len(ci.PersonIDs) != len(ci.Coordinates) {
		return NewPreconditionViolation(
			"corpus index has %d person ids but %d coordinates",
			len(ci.PersonIDs),
			len(ci.Coordinates),
		)
	}
	return nil
}

// Neighbor is a single similarity search hit.
type Neighbor struct {
	PersonID string  `json:"person_id"`
	Distance float64 `json:"distance"`
}

// SimilarityScore maps a distance onto (0, 1], with 1 for an exact match.
func SimilarityScore(distance float64) float64 {
	return 1 / (1 + distance)
}

func (c Coordinate3D) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", c.X, c.Y, c.Z)
}
