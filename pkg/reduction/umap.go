package reduction

import (
	"fmt"
	"math"
	"sort"

	"github.com/viterin/vek"

	"github.com/lifeembedding/lifeembedding/pkg/models"
)

const (
	smoothKNNIterations = 64
	smoothKNNTolerance  = 1e-5
	minKDistScale       = 1e-3
	minSigma            = 1e-12
)

// UMAPTransform places new points into a fitted UMAP embedding. A point is
// mapped to the membership-weighted average of the embeddings of its nearest
// training points, the same initialisation umap-learn uses for transform.
type UMAPTransform struct {
	nNeighbors int
	reduced    [][]float64
	embedding  [][]float64
}

func NewUMAPTransform(params UMAPParams) (*UMAPTransform, error) {
	n := len(params.TrainingReduced)
	if n == 0 || len(params.TrainingEmbedding) != n {
		return nil, models.NewPreconditionViolation(
			"umap has %d training points and %d embeddings", n, len(params.TrainingEmbedding),
		)
	}
	if params.NNeighbors <= 0 {
		return nil, models.NewPreconditionViolation("umap n_neighbors must be positive")
	}
	for i, row := range params.TrainingEmbedding {
		if len(row) != 3 {
			return nil, models.NewPreconditionViolation("umap embedding %d is not 3D", i)
		}
	}

	k := params.NNeighbors
	if k > n {
		k = n
	}
	return &UMAPTransform{
		nNeighbors: k,
		reduced:    params.TrainingReduced,
		embedding:  params.TrainingEmbedding,
	}, nil
}

// InputDim is the dimensionality of the reduced training points.
func (u *UMAPTransform) InputDim() int {
	return len(u.reduced[0])
}

func (u *UMAPTransform) Transform(x []float64) (models.Coordinate3D, error) {
	if len(x) != u.InputDim() {
		return models.Coordinate3D{}, fmt.Errorf(
			"reduced vector has %d dims, umap expects %d: %w",
			len(x),
			u.InputDim(),
			models.ErrPreconditionViolation,
		)
	}

	indices, dists := u.nearest(x)
	if dists[0] == 0 {
		e := u.embedding[indices[0]]
		return models.Coordinate3D{X: e[0], Y: e[1], Z: e[2]}, nil
	}

	weights := membershipWeights(dists)

	var c models.Coordinate3D
	for j, idx := range indices {
		e := u.embedding[idx]
		c.X += weights[j] * e[0]
		c.Y += weights[j] * e[1]
		c.Z += weights[j] * e[2]
	}
	return c, nil
}

// nearest returns the indices and distances of the k closest training points,
// closest first. Equal distances keep training order.
func (u *UMAPTransform) nearest(x []float64) ([]int, []float64) {
	all := make([]float64, len(u.reduced))
	order := make([]int, len(u.reduced))
	for i, row := range u.reduced {
		all[i] = vek.Distance(x, row)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return all[order[a]] < all[order[b]]
	})

	indices := order[:u.nNeighbors]
	dists := make([]float64, len(indices))
	for j, idx := range indices {
		dists[j] = all[idx]
	}
	return indices, dists
}

// membershipWeights computes the smooth kNN fuzzy memberships of a point to
// its neighbours, normalised to sum to one. rho is the nearest distance and
// sigma is found by binary search so the memberships sum to log2(k).
func membershipWeights(dists []float64) []float64 {
	rho := dists[0]
	target := math.Log2(float64(len(dists)))

	membershipSum := func(sigma float64) float64 {
		var s float64
		for _, d := range dists {
			s += membership(d, rho, sigma)
		}
		return s
	}

	lo, hi, sigma := 0.0, math.Inf(1), 1.0
	for i := 0; i < smoothKNNIterations; i++ {
		s := membershipSum(sigma)
		if math.Abs(s-target) < smoothKNNTolerance {
			break
		}
		if s > target {
			hi = sigma
			sigma = (lo + hi) / 2
		} else {
			lo = sigma
			if math.IsInf(hi, 1) {
				sigma *= 2
			} else {
				sigma = (lo + hi) / 2
			}
		}
	}

	floor := minKDistScale * vek.Mean(dists)
	if sigma < floor {
		sigma = floor
	}
	if sigma < minSigma {
		sigma = minSigma
	}

	weights := make([]float64, len(dists))
	var total float64
	for j, d := range dists {
		weights[j] = membership(d, rho, sigma)
		total += weights[j]
	}
	for j := range weights {
		weights[j] /= total
	}
	return weights
}

func membership(d, rho, sigma float64) float64 {
	if d-rho <= 0 {
		return 1
	}
	return math.Exp(-(d - rho) / sigma)
}
