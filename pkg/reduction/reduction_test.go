package reduction

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

func testBundle() *Bundle {
	return &Bundle{
		PCA: PCAParams{
			Mean: []float64{1, 1, 1},
			Components: [][]float64{
				{1, 0, 0},
				{0, 1, 0},
			},
		},
		UMAP: UMAPParams{
			NNeighbors: 3,
			TrainingReduced: [][]float64{
				{0, 0},
				{1, 0},
				{0, 1},
				{5, 5},
			},
			TrainingEmbedding: [][]float64{
				{0, 0, 0},
				{1, 1, 1},
				{2, 2, 2},
				{9, 9, 9},
			},
		},
	}
}

func loadedPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p := NewPipeline()
	require.NoError(t, p.Load(testBundle()))
	return p
}

func TestPipelineNotReady(t *testing.T) {
	p := NewPipeline()
	assert.False(t, p.IsLoaded())

	_, err := p.Project([]float32{1, 1, 1})
	assert.ErrorIs(t, err, models.ErrModelNotReady)
}

func TestPipelineProject(t *testing.T) {
	p := loadedPipeline(t)
	assert.True(t, p.IsLoaded())

	t.Run("ExactTrainingPoint", func(t *testing.T) {
		c, err := p.Project([]float32{1, 1, 1})
		require.NoError(t, err)
		assert.Equal(t, models.Coordinate3D{X: 0, Y: 0, Z: 0}, c)

		c, err = p.Project([]float32{2, 1, 7})
		require.NoError(t, err)
		assert.Equal(t, models.Coordinate3D{X: 1, Y: 1, Z: 1}, c)
	})

	t.Run("Deterministic", func(t *testing.T) {
		vec := []float32{1.3, 1.2, 0}
		first, err := p.Project(vec)
		require.NoError(t, err)
		second, err := p.Project(vec)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("WeightedAverageOfNeighbours", func(t *testing.T) {
		c, err := p.Project([]float32{1.3, 1.2, 0})
		require.NoError(t, err)
		// the three nearest training embeddings lie on the diagonal in [0, 2]
		assert.InDelta(t, c.X, c.Y, 1e-12)
		assert.InDelta(t, c.X, c.Z, 1e-12)
		assert.GreaterOrEqual(t, c.X, 0.0)
		assert.LessOrEqual(t, c.X, 2.0)
	})

	t.Run("WrongDimension", func(t *testing.T) {
		_, err := p.Project([]float32{1, 1})
		assert.ErrorIs(t, err, models.ErrPreconditionViolation)
	})
}

func TestPipelineLoadOnce(t *testing.T) {
	p := loadedPipeline(t)
	assert.ErrorIs(t, p.Load(testBundle()), ErrAlreadyLoaded)
	assert.True(t, p.IsLoaded())
}

func TestPipelineLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reduction.json")
	data, err := json.Marshal(testBundle())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	p := NewPipeline()
	require.NoError(t, p.LoadFile(path))
	assert.True(t, p.IsLoaded())

	err = NewPipeline().LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPCAWhiten(t *testing.T) {
	params := testBundle().PCA
	params.Whiten = true
	params.ExplainedVariance = []float64{4, 1}

	pca, err := NewPCA(params)
	require.NoError(t, err)

	reduced, err := pca.Transform([]float64{5, 3, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 2}, reduced, 1e-12)
}

func TestBundleValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Bundle)
	}{
		{"NoComponents", func(b *Bundle) { b.PCA.Components = nil }},
		{"ComponentWidth", func(b *Bundle) { b.PCA.Components[1] = []float64{0, 1} }},
		{"WhitenWithoutVariance", func(b *Bundle) { b.PCA.Whiten = true }},
		{"EmbeddingCount", func(b *Bundle) { b.UMAP.TrainingEmbedding = b.UMAP.TrainingEmbedding[:2] }},
		{"ReducedWidth", func(b *Bundle) { b.UMAP.TrainingReduced[0] = []float64{0, 0, 0} }},
		{"EmbeddingNot3D", func(b *Bundle) { b.UMAP.TrainingEmbedding[2] = []float64{1, 2} }},
		{"NoNeighbors", func(b *Bundle) { b.UMAP.NNeighbors = 0 }},
	}

	require.NoError(t, testBundle().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBundle()
			tt.mutate(b)
			assert.ErrorIs(t, b.Validate(), models.ErrPreconditionViolation)
			assert.False(t, func() bool {
				p := NewPipeline()
				_ = p.Load(b)
				return p.IsLoaded()
			}())
		})
	}
}

func TestMembershipWeights(t *testing.T) {
	weights := membershipWeights([]float64{1, 2, 3, 4})

	var sum float64
	for i, w := range weights {
		sum += w
		if i > 0 {
			assert.LessOrEqual(t, w, weights[i-1])
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
