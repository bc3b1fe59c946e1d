package scatterfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//////
// Gaussian process regression.
//////

// rbfKernel implements the radial basis function (Gaussian) kernel:
//
//	k(x1, x2) = exp(-gamma * sum((x1 - x2)^2))
//
// It measures the similarity between two points, 1.0 for identical points
// and approaching 0.0 with distance. Panics if the input vectors have
// different lengths; that is a programmer error, not a data condition.
func rbfKernel(x1, x2 []float64, gamma float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}

	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	return math.Exp(-gamma * sum)
}

// GPRegressor is an exact Gaussian process regressor with an RBF kernel.
//
// Fit computes the posterior weights alpha = (K + noise*I)^-1 y through a
// Cholesky factorization; Predict evaluates the posterior mean as the
// kernel-weighted sum of alpha. The family declares no search space and is
// fitted directly with defaults.
//
// Memory grows quadratically with the number of training rows (the kernel
// matrix is materialized), which is fine for the curve lengths this
// pipeline handles.
type GPRegressor struct {
	// Gamma is the RBF kernel coefficient.
	Gamma float64

	// Noise is the diagonal jitter added to the kernel matrix. It models
	// observation noise and keeps the factorization positive definite.
	Noise float64

	train  [][]float64
	alpha  []float64
	fitted bool
}

// NewGPRegressor builds a regressor from sampled hyperparameters
// ("gamma", "noise"); nil applies the defaults.
func NewGPRegressor(params map[string]float64) *GPRegressor {
	return &GPRegressor{
		Gamma: paramOr(params, "gamma", 0.5),
		Noise: paramOr(params, "noise", 1e-4),
	}
}

// Fit factorizes the regularized kernel matrix and solves for the
// posterior weights.
//
// Returns ErrConvergence (wrapped) when the kernel matrix is not positive
// definite, so the benchmark can record the family as failed without
// aborting the run.
func (g *GPRegressor) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return fmt.Errorf("GPRegressor.Fit: %d rows vs %d targets: %w", n, len(y), ErrDimensionMismatch)
	}

	g.train = make([][]float64, n)
	for i, row := range X {
		g.train[i] = append([]float64(nil), row...)
	}

	kernel := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := rbfKernel(g.train[i], g.train[j], g.Gamma)
			if i == j {
				v += g.Noise
			}

			kernel.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(kernel); !ok {
		return fmt.Errorf("GPRegressor.Fit: kernel matrix not positive definite: %w", ErrConvergence)
	}

	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, mat.NewVecDense(n, y)); err != nil {
		return fmt.Errorf("GPRegressor.Fit: posterior solve failed: %w", ErrConvergence)
	}

	g.alpha = make([]float64, n)
	for i := 0; i < n; i++ {
		g.alpha[i] = alpha.AtVec(i)
	}

	g.fitted = true

	return nil
}

// Predict evaluates the posterior mean at each row.
func (g *GPRegressor) Predict(X [][]float64) ([]float64, error) {
	if !g.fitted {
		return nil, fmt.Errorf("GPRegressor: %w", ErrNotFitted)
	}

	out := make([]float64, len(X))

	for i, row := range X {
		var sum float64
		for j, tr := range g.train {
			sum += g.alpha[j] * rbfKernel(row, tr, g.Gamma)
		}

		out[i] = sum
	}

	return out, nil
}
