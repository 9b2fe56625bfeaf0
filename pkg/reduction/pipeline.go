package reduction

import (
	"errors"
	"sync/atomic"

	"github.com/lifeembedding/lifeembedding/internal"
	"github.com/lifeembedding/lifeembedding/pkg/models"
)

var log = internal.GetLogger()

var ErrAlreadyLoaded = errors.New("reduction models already loaded")

type stages struct {
	pca  *PCA
	umap *UMAPTransform
}

// Pipeline applies PCA then UMAP. It starts unloaded and moves to loaded
// exactly once. Loaded stages are read-only and safe for concurrent use.
type Pipeline struct {
	stages atomic.Pointer[stages]
}

var _ models.Reducer = (*Pipeline)(nil)

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Load validates the bundle and installs both stages.
func (p *Pipeline) Load(b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}
	pca, err := NewPCA(b.PCA)
	if err != nil {
		return err
	}
	umap, err := NewUMAPTransform(b.UMAP)
	if err != nil {
		return err
	}

	if !p.stages.CompareAndSwap(nil, &stages{pca: pca, umap: umap}) {
		return ErrAlreadyLoaded
	}
	log.Infof(
		"reduction models loaded: pca %d -> %d, umap %d training points, %d neighbors",
		pca.InputDim(),
		pca.OutputDim(),
		len(umap.reduced),
		umap.nNeighbors,
	)
	return nil
}

// LoadFile reads a bundle from path and loads it.
func (p *Pipeline) LoadFile(path string) error {
	b, err := LoadBundleFile(path)
	if err != nil {
		return err
	}
	return p.Load(b)
}

func (p *Pipeline) IsLoaded() bool {
	return p.stages.Load() != nil
}

// Project maps an embedding to 3D. It returns models.ErrModelNotReady before Load.
func (p *Pipeline) Project(vec []float32) (models.Coordinate3D, error) {
	s := p.stages.Load()
	if s == nil {
		return models.Coordinate3D{}, models.ErrModelNotReady
	}

	x := make([]float64, len(vec))
	for i, v := range vec {
		x[i] = float64(v)
	}

	reduced, err := s.pca.Transform(x)
	if err != nil {
		return models.Coordinate3D{}, err
	}
	return s.umap.Transform(reduced)
}
