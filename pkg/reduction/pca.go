package reduction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

// PCA is a fitted linear projection from D input dims to K components.
type PCA struct {
	mean       *mat.VecDense
	components *mat.Dense
	// scale is 1/sqrt(explained variance) per component when whitening, else nil.
	scale []float64
}

func NewPCA(params PCAParams) (*PCA, error) {
	k := len(params.Components)
	if k == 0 || len(params.Mean) == 0 {
		return nil, models.NewPreconditionViolation("pca parameters are empty")
	}
	d := len(params.Mean)

	data := make([]float64, 0, k*d)
	for i, row := range params.Components {
		if len(row) != d {
			return nil, models.NewPreconditionViolation(
				"pca component %d has %d columns, expected %d", i, len(row), d,
			)
		}
		data = append(data, row...)
	}

	p := &PCA{
		mean:       mat.NewVecDense(d, append([]float64(nil), params.Mean...)),
		components: mat.NewDense(k, d, data),
	}

	if params.Whiten {
		if len(params.ExplainedVariance) != k {
			return nil, models.NewPreconditionViolation(
				"pca whitening needs %d explained variances, got %d", k, len(params.ExplainedVariance),
			)
		}
		p.scale = make([]float64, k)
		for i, v := range params.ExplainedVariance {
			if v <= 0 {
				return nil, models.NewPreconditionViolation("explained variance %d is not positive", i)
			}
			p.scale[i] = 1 / math.Sqrt(v)
		}
	}

	return p, nil
}

// InputDim is D.
func (p *PCA) InputDim() int {
	return p.mean.Len()
}

// OutputDim is K.
func (p *PCA) OutputDim() int {
	r, _ := p.components.Dims()
	return r
}

// Transform computes (x - mean) · componentsᵀ, whitened when configured.
func (p *PCA) Transform(x []float64) ([]float64, error) {
	if len(x) != p.InputDim() {
		return nil, fmt.Errorf(
			"embedding has %d dims, pca expects %d: %w",
			len(x),
			p.InputDim(),
			models.ErrPreconditionViolation,
		)
	}

	centered := mat.NewVecDense(len(x), nil)
	centered.SubVec(mat.NewVecDense(len(x), x), p.mean)

	out := mat.NewVecDense(p.OutputDim(), nil)
	out.MulVec(p.components, centered)

	reduced := make([]float64, p.OutputDim())
	for i := range reduced {
		reduced[i] = out.AtVec(i)
		if p.scale != nil {
			reduced[i] *= p.scale[i]
		}
	}
	return reduced, nil
}
