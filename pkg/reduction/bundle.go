// Package reduction projects embeddings into the 3D visualization space with a
// pre-fitted PCA stage followed by a UMAP transform.
package reduction

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

// Bundle is the serialized form of both fitted stages.
type Bundle struct {
	PCA  PCAParams  `json:"pca"`
	UMAP UMAPParams `json:"umap"`
}

// PCAParams are the fitted parameters of the linear stage. Components is K x D.
type PCAParams struct {
	Mean              []float64   `json:"mean"`
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance,omitempty"`
	Whiten            bool        `json:"whiten"`
}

// UMAPParams hold the training set of the manifold stage: the PCA-reduced
// training points and their fitted 3D embedding, row aligned.
type UMAPParams struct {
	NNeighbors        int         `json:"n_neighbors"`
	TrainingReduced   [][]float64 `json:"training_reduced"`
	TrainingEmbedding [][]float64 `json:"training_embedding"`
}

// ReadBundle decodes a bundle from r.
func ReadBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode reduction bundle: %w", err)
	}
	return &b, nil
}

// LoadBundleFile reads a bundle from a JSON file.
func LoadBundleFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reduction bundle %s: %w", path, err)
	}
	defer f.Close()

	return ReadBundle(f)
}

// Validate checks that the two stages agree on their dimensions.
func (b *Bundle) Validate() error {
	k := len(b.PCA.Components)
	if k == 0 {
		return models.NewPreconditionViolation("pca has no components")
	}
	if len(b.PCA.Mean) == 0 {
		return models.NewPreconditionViolation("pca mean is empty")
	}
	for i, row := range b.PCA.Components {
		if len(row) != len(b.PCA.Mean) {
			return models.NewPreconditionViolation(
				"pca component %d has %d columns, expected %d", i, len(row), len(b.PCA.Mean),
			)
		}
	}
	if b.PCA.Whiten && len(b.PCA.ExplainedVariance) != k {
		return models.NewPreconditionViolation(
			"pca whitening needs %d explained variances, got %d", k, len(b.PCA.ExplainedVariance),
		)
	}

	n := len(b.UMAP.TrainingReduced)
	if n == 0 {
		return models.NewPreconditionViolation("umap has no training points")
	}
	if len(b.UMAP.TrainingEmbedding) != n {
		return models.NewPreconditionViolation(
			"umap has %d training points but %d embeddings", n, len(b.UMAP.TrainingEmbedding),
		)
	}
	if b.UMAP.NNeighbors <= 0 {
		return models.NewPreconditionViolation("umap n_neighbors must be positive")
	}
	for i := range b.UMAP.TrainingReduced {
		if len(b.UMAP.TrainingReduced[i]) != k {
			return models.NewPreconditionViolation(
				"umap training point %d has %d dims, expected %d", i, len(b.UMAP.TrainingReduced[i]), k,
			)
		}
		if len(b.UMAP.TrainingEmbedding[i]) != 3 {
			return models.NewPreconditionViolation(
				"umap training embedding %d has %d dims, expected 3", i, len(b.UMAP.TrainingEmbedding[i]),
			)
		}
	}
	return nil
}
